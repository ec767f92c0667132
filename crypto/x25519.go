package crypto

import (
	"io"

	"golang.org/x/crypto/curve25519"

	"github.com/vxconn/ike/protocol"
)

func addCurve25519(m map[protocol.KeTransformId]kexFactory) {
	m[protocol.CURVE_25519] = func(rnd io.Reader) (KeyExchange, error) {
		return newX25519Kex(rnd)
	}
}

type x25519Kex struct {
	private [32]byte
	peer    []byte
}

func newX25519Kex(rnd io.Reader) (*x25519Kex, error) {
	k := &x25519Kex{}
	if _, err := io.ReadFull(rnd, k.private[:]); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *x25519Kex) Method() protocol.KeTransformId { return protocol.CURVE_25519 }

func (k *x25519Kex) PublicKey() ([]byte, error) {
	return curve25519.X25519(k.private[:], curve25519.Basepoint)
}

func (k *x25519Kex) SetPeerKey(b []byte) error {
	if len(b) != curve25519.PointSize {
		return kexError(protocol.CURVE_25519)
	}
	k.peer = append([]byte{}, b...)
	return nil
}

func (k *x25519Kex) SharedSecret() ([]byte, error) {
	if k.peer == nil {
		return nil, kexError(protocol.CURVE_25519)
	}
	// X25519 rejects the all-zero shared secret itself
	shared, err := curve25519.X25519(k.private[:], k.peer)
	if err != nil {
		return nil, kexError(protocol.CURVE_25519)
	}
	return shared, nil
}
