package ike

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/vxconn/ike/crypto"
	"github.com/vxconn/ike/protocol"
)

func exchangedKexPair(t *testing.T, method protocol.KeTransformId) (crypto.KeyExchange, crypto.KeyExchange) {
	t.Helper()
	i, err := crypto.NewKeyExchange(rand.Reader, method)
	if err != nil {
		t.Fatal(err)
	}
	r, err := crypto.NewKeyExchange(rand.Reader, method)
	if err != nil {
		t.Fatal(err)
	}
	pubI, err := i.PublicKey()
	if err != nil {
		t.Fatal(err)
	}
	if err := r.SetPeerKey(pubI); err != nil {
		t.Fatal(err)
	}
	pubR, err := r.PublicKey()
	if err != nil {
		t.Fatal(err)
	}
	if err := i.SetPeerKey(pubR); err != nil {
		t.Fatal(err)
	}
	return i, r
}

func testSaID() SaID {
	return SaID{
		SpiI:      []byte{1, 2, 3, 4, 5, 6, 7, 8},
		SpiR:      []byte{9, 10, 11, 12, 13, 14, 15, 16},
		Initiator: true,
	}
}

func TestDeriveIkeKeysAgree(t *testing.T) {
	proposal := configWith(protocol.IKE_AES_GCM_16_PRF_SHA2_256_ECP_256).Proposals[0]
	keI, keR := exchangedKexPair(t, protocol.ECP_256)
	nonceI := bytes.Repeat([]byte{0xaa}, crypto.NonceSize)
	nonceR := bytes.Repeat([]byte{0xbb}, crypto.NonceSize)
	id := testSaID()

	kmI, kmR := NewKeymatV2(), NewKeymatV2()
	if err := kmI.DeriveIkeKeys(proposal, []crypto.KeyExchange{keI}, nonceI, nonceR, id, 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := kmR.DeriveIkeKeys(proposal, []crypto.KeyExchange{keR}, nonceI, nonceR, id, 0, nil); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(kmI.SKEYSEED, kmR.SKEYSEED) {
		t.Fatal("SKEYSEED differs between peers")
	}
	if !bytes.Equal(kmI.KEYMAT, kmR.KEYMAT) {
		t.Fatal("KEYMAT differs between peers")
	}
	// 3 prf + 2 SK_e (no SK_a for AEAD)
	want := 3*32 + 2*36
	if len(kmI.KEYMAT) != want {
		t.Fatalf("KEYMAT length: %d != %d", len(kmI.KEYMAT), want)
	}
	skEi, skEr, err := kmI.EncryptionKeys()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(skEi, skEr) {
		t.Error("SK_ei and SK_er must differ")
	}
	if _, skD := kmI.SkD(); len(skD) != 32 {
		t.Errorf("SK_d length: %d", len(skD))
	}
}

func TestDeriveIkeKeysChained(t *testing.T) {
	proposal := configWith(protocol.IKE_AES_GCM_16_PRF_SHA2_256_ECP_256).Proposals[0]
	keI, _ := exchangedKexPair(t, protocol.ECP_256)
	nonceI := bytes.Repeat([]byte{0x01}, crypto.NonceSize)
	nonceR := bytes.Repeat([]byte{0x02}, crypto.NonceSize)
	id := testSaID()

	km := NewKeymatV2()
	if err := km.DeriveIkeKeys(proposal, []crypto.KeyExchange{keI}, nonceI, nonceR, id, 0, nil); err != nil {
		t.Fatal(err)
	}
	initial := append([]byte{}, km.KEYMAT...)
	prfID, skD := km.SkD()
	skD = append([]byte{}, skD...)

	// chaining the same exchange off SK_d must land elsewhere
	if err := km.DeriveIkeKeys(proposal, []crypto.KeyExchange{keI}, nonceI, nonceR, id, prfID, skD); err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(initial, km.KEYMAT) {
		t.Fatal("chained derivation produced identical keymat")
	}
}

func TestDeriveIkeKeysMultiKe(t *testing.T) {
	proposal := configWith(protocol.IKE_AES_GCM_16_X25519_MLKEM_768).Proposals[0]
	ke1I, ke1R := exchangedKexPair(t, protocol.CURVE_25519)
	ke2I, ke2R := exchangedKexPair(t, protocol.MLKEM_768)
	nonceI := bytes.Repeat([]byte{0x0f}, crypto.NonceSize)
	nonceR := bytes.Repeat([]byte{0xf0}, crypto.NonceSize)
	id := testSaID()

	kmI, kmR := NewKeymatV2(), NewKeymatV2()
	err := kmI.DeriveIkeKeys(proposal, []crypto.KeyExchange{ke1I, ke2I}, nonceI, nonceR, id, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = kmR.DeriveIkeKeys(proposal, []crypto.KeyExchange{ke1R, ke2R}, nonceI, nonceR, id, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(kmI.KEYMAT, kmR.KEYMAT) {
		t.Fatal("multi-KE KEYMAT differs between peers")
	}

	// order matters: swapping the exchanges must change the keys
	kmX := NewKeymatV2()
	err = kmX.DeriveIkeKeys(proposal, []crypto.KeyExchange{ke2I, ke1I}, nonceI, nonceR, id, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(kmI.KEYMAT, kmX.KEYMAT) {
		t.Fatal("exchange order did not influence the keymat")
	}
}

func TestAddHashAlgorithm(t *testing.T) {
	km := NewKeymatV2()
	if km.AddHashAlgorithm(protocol.HASH_RESERVED) {
		t.Error("reserved hash accepted")
	}
	if !km.AddHashAlgorithm(protocol.HASH_SHA2_256) {
		t.Error("SHA2_256 refused")
	}
	if !km.AddHashAlgorithm(protocol.HASH_SHA2_256) {
		t.Error("duplicate add must still report acceptance")
	}
	km.AddHashAlgorithm(protocol.HASH_SHA2_384)
	if got := km.HashAlgorithms(); len(got) != 2 {
		t.Errorf("duplicates not dropped: %v", got)
	}
}
