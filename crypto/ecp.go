package crypto

import (
	"crypto/elliptic"
	"io"
	"math/big"

	"github.com/vxconn/ike/protocol"
)

func addEcpGroups(m map[protocol.KeTransformId]kexFactory) {
	for _, g := range []struct {
		id    protocol.KeTransformId
		curve elliptic.Curve
	}{
		{protocol.ECP_256, elliptic.P256()},
		{protocol.ECP_384, elliptic.P384()},
		{protocol.ECP_521, elliptic.P521()},
	} {
		id, curve := g.id, g.curve
		m[id] = func(rnd io.Reader) (KeyExchange, error) {
			return newEcpKex(rnd, id, curve)
		}
	}
}

type ecpKex struct {
	id      protocol.KeTransformId
	curve   elliptic.Curve
	private []byte
	px, py  *big.Int // peer point
}

func newEcpKex(rnd io.Reader, id protocol.KeTransformId, curve elliptic.Curve) (*ecpKex, error) {
	private, _, _, err := elliptic.GenerateKey(curve, rnd)
	if err != nil {
		return nil, err
	}
	return &ecpKex{id: id, curve: curve, private: private}, nil
}

func (k *ecpKex) Method() protocol.KeTransformId { return k.id }

// PublicKey is the concatenated x | y values, each padded to the
// field size (RFC 5903 section 7).
func (k *ecpKex) PublicKey() ([]byte, error) {
	x, y := k.curve.ScalarBaseMult(k.private)
	// stdlib marshal prepends the 0x04 point format octet
	return elliptic.Marshal(k.curve, x, y)[1:], nil
}

func (k *ecpKex) SetPeerKey(b []byte) error {
	x, y := elliptic.Unmarshal(k.curve, append([]byte{4}, b...))
	if x == nil {
		return kexError(k.id)
	}
	if !k.curve.IsOnCurve(x, y) {
		return kexError(k.id)
	}
	k.px, k.py = x, y
	return nil
}

// SharedSecret is the x value of the common point, padded to the
// field size.
func (k *ecpKex) SharedSecret() ([]byte, error) {
	if k.px == nil {
		return nil, kexError(k.id)
	}
	x, _ := k.curve.ScalarMult(k.px, k.py, k.private)
	shared := make([]byte, (k.curve.Params().BitSize+7)>>3)
	xb := x.Bytes()
	copy(shared[len(shared)-len(xb):], xb)
	return shared, nil
}
