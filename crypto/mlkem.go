package crypto

import (
	"io"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem1024"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"

	"github.com/vxconn/ike/protocol"
)

func addMlKem(m map[protocol.KeTransformId]kexFactory) {
	for _, g := range []struct {
		id     protocol.KeTransformId
		scheme kem.Scheme
	}{
		{protocol.MLKEM_768, mlkem768.Scheme()},
		{protocol.MLKEM_1024, mlkem1024.Scheme()},
	} {
		id, scheme := g.id, g.scheme
		m[id] = func(rnd io.Reader) (KeyExchange, error) {
			return newKemKex(rnd, id, scheme)
		}
	}
}

// kemKex adapts a KEM to the KeyExchange surface. The role decides
// the flow: whoever emits the public key first owns the key pair and
// later decapsulates; whoever sees the peer key first encapsulates,
// and PublicKey then returns the ciphertext.
type kemKex struct {
	id     protocol.KeTransformId
	scheme kem.Scheme
	rnd    io.Reader

	pk kem.PublicKey
	sk kem.PrivateKey

	local  []byte // wire value to send: public key or ciphertext
	shared []byte
}

func newKemKex(rnd io.Reader, id protocol.KeTransformId, scheme kem.Scheme) (*kemKex, error) {
	return &kemKex{id: id, scheme: scheme, rnd: rnd}, nil
}

func (k *kemKex) Method() protocol.KeTransformId { return k.id }

func (k *kemKex) PublicKey() ([]byte, error) {
	if k.local != nil {
		return k.local, nil
	}
	seed := make([]byte, k.scheme.SeedSize())
	if _, err := io.ReadFull(k.rnd, seed); err != nil {
		return nil, err
	}
	k.pk, k.sk = k.scheme.DeriveKeyPair(seed)
	pk, err := k.pk.MarshalBinary()
	if err != nil {
		return nil, err
	}
	k.local = pk
	return k.local, nil
}

func (k *kemKex) SetPeerKey(b []byte) error {
	if k.sk != nil {
		// we sent the public key; the peer value is a ciphertext
		if len(b) != k.scheme.CiphertextSize() {
			return kexError(k.id)
		}
		shared, err := k.scheme.Decapsulate(k.sk, b)
		if err != nil {
			return kexError(k.id)
		}
		k.shared = shared
		return nil
	}
	// responder: encapsulate against the peer public key
	pk, err := k.scheme.UnmarshalBinaryPublicKey(b)
	if err != nil {
		return kexError(k.id)
	}
	ct, shared, err := k.scheme.Encapsulate(pk)
	if err != nil {
		return kexError(k.id)
	}
	k.local = ct
	k.shared = shared
	return nil
}

func (k *kemKex) SharedSecret() ([]byte, error) {
	if k.shared == nil {
		return nil, kexError(k.id)
	}
	return k.shared, nil
}
