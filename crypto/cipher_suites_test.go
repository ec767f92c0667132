package crypto

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/vxconn/ike/protocol"
)

func tr(t protocol.TransformType, id uint16, keyLen uint16) *protocol.SaTransform {
	return &protocol.SaTransform{
		Transform: protocol.Transform{Type: t, TransformId: id},
		KeyLength: keyLen,
	}
}

func TestSuiteAesGcm(t *testing.T) {
	cs, err := NewCipherSuite([]*protocol.SaTransform{
		tr(protocol.TRANSFORM_TYPE_ENCR, uint16(protocol.AEAD_AES_GCM_16), 256),
		tr(protocol.TRANSFORM_TYPE_PRF, uint16(protocol.PRF_HMAC_SHA2_256), 0),
		tr(protocol.TRANSFORM_TYPE_KE, uint16(protocol.ECP_256), 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !cs.IsAead() {
		t.Fatal("AES-GCM suite must be AEAD")
	}
	// 32B key + 4B salt
	if cs.KeyLen != 36 {
		t.Fatalf("unexpected SK_e length: %d", cs.KeyLen)
	}
	if cs.MacKeyLen != 0 {
		t.Fatalf("AEAD suite needs no SK_a: %d", cs.MacKeyLen)
	}
	testAeadRoundTrip(t, cs)
}

func TestSuiteChaCha(t *testing.T) {
	cs, err := NewCipherSuite([]*protocol.SaTransform{
		tr(protocol.TRANSFORM_TYPE_ENCR, uint16(protocol.ENCR_CHACHA20_POLY1305), 0),
		tr(protocol.TRANSFORM_TYPE_PRF, uint16(protocol.PRF_HMAC_SHA2_256), 0),
		tr(protocol.TRANSFORM_TYPE_KE, uint16(protocol.CURVE_25519), 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if cs.KeyLen != 36 {
		t.Fatalf("unexpected SK_e length: %d", cs.KeyLen)
	}
	testAeadRoundTrip(t, cs)
}

func testAeadRoundTrip(t *testing.T, cs *CipherSuite) {
	key := make([]byte, cs.KeyLen)
	rand.Read(key)
	aead, err := cs.BuildAead(key)
	if err != nil {
		t.Fatal(err)
	}
	nonce := make([]byte, aead.NonceSize())
	rand.Read(nonce)
	msg := []byte("initial exchange probe")
	sealed := aead.Seal(nil, nonce, msg, nil)
	opened, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(opened, msg) {
		t.Fatal("AEAD round trip mismatch")
	}
}

func TestSuiteCamelliaCbc(t *testing.T) {
	cs, err := NewCipherSuite([]*protocol.SaTransform{
		tr(protocol.TRANSFORM_TYPE_ENCR, uint16(protocol.ENCR_CAMELLIA_CBC), 256),
		tr(protocol.TRANSFORM_TYPE_PRF, uint16(protocol.PRF_HMAC_SHA2_384), 0),
		tr(protocol.TRANSFORM_TYPE_INTEG, uint16(protocol.AUTH_HMAC_SHA2_256_128), 0),
		tr(protocol.TRANSFORM_TYPE_KE, uint16(protocol.ECP_384), 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if cs.IsAead() {
		t.Fatal("CBC suite must not be AEAD")
	}
	if cs.KeyLen != 32 || cs.MacKeyLen != 32 || cs.MacLen != 16 {
		t.Fatalf("unexpected key sizes: %d/%d/%d", cs.KeyLen, cs.MacKeyLen, cs.MacLen)
	}
	key := make([]byte, cs.KeyLen)
	rand.Read(key)
	blk, err := cs.BuildBlock(key)
	if err != nil {
		t.Fatal(err)
	}
	if blk.BlockSize() != 16 {
		t.Fatalf("unexpected camellia block size: %d", blk.BlockSize())
	}
}

func TestSuiteRejects(t *testing.T) {
	// missing integrity on a non-AEAD cipher
	if _, err := NewCipherSuite([]*protocol.SaTransform{
		tr(protocol.TRANSFORM_TYPE_ENCR, uint16(protocol.ENCR_AES_CBC), 256),
		tr(protocol.TRANSFORM_TYPE_PRF, uint16(protocol.PRF_HMAC_SHA2_256), 0),
		tr(protocol.TRANSFORM_TYPE_KE, uint16(protocol.MODP_2048), 0),
	}); err == nil {
		t.Error("CBC suite without INTEG accepted")
	}
	// bogus key length
	if _, err := NewCipherSuite([]*protocol.SaTransform{
		tr(protocol.TRANSFORM_TYPE_ENCR, uint16(protocol.AEAD_AES_GCM_16), 100),
		tr(protocol.TRANSFORM_TYPE_PRF, uint16(protocol.PRF_HMAC_SHA2_256), 0),
		tr(protocol.TRANSFORM_TYPE_KE, uint16(protocol.ECP_256), 0),
	}); err == nil {
		t.Error("bad AES-GCM key length accepted")
	}
	// unknown additional key exchange method
	if _, err := NewCipherSuite([]*protocol.SaTransform{
		tr(protocol.TRANSFORM_TYPE_ENCR, uint16(protocol.AEAD_AES_GCM_16), 256),
		tr(protocol.TRANSFORM_TYPE_PRF, uint16(protocol.PRF_HMAC_SHA2_256), 0),
		tr(protocol.TRANSFORM_TYPE_KE, uint16(protocol.ECP_256), 0),
		tr(protocol.TRANSFORM_TYPE_ADDKE1, uint16(protocol.CURVE_448), 0),
	}); err == nil {
		t.Error("unsupported ADDKE method accepted")
	}
}
