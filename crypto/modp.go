package crypto

import (
	"io"
	"math/big"
	"strings"

	"github.com/vxconn/ike/protocol"
)

// MODP groups from RFC 3526, generator 2.

const modp2048Prime = `
	FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
	29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
	EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
	E485B576 625E7EC6 F44C42E9 A637ED6B 0BFF5CB6 F406B7ED
	EE386BFB 5A899FA5 AE9F2411 7C4B1FE6 49286651 ECE45B3D
	C2007CB8 A163BF05 98DA4836 1C55D39A 69163FA8 FD24CF5F
	83655D23 DCA3AD96 1C62F356 208552BB 9ED52907 7096966D
	670C354E 4ABC9804 F1746C08 CA18217C 32905E46 2E36CE3B
	E39E772C 180E8603 9B2783A2 EC07A28F B5C55DF0 6F4C52C9
	DE2BCBF6 95581718 3995497C EA956AE5 15D22618 98FA0510
	15728E5A 8AACAA68 FFFFFFFF FFFFFFFF`

const modp3072Prime = `
	FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
	29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
	EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
	E485B576 625E7EC6 F44C42E9 A637ED6B 0BFF5CB6 F406B7ED
	EE386BFB 5A899FA5 AE9F2411 7C4B1FE6 49286651 ECE45B3D
	C2007CB8 A163BF05 98DA4836 1C55D39A 69163FA8 FD24CF5F
	83655D23 DCA3AD96 1C62F356 208552BB 9ED52907 7096966D
	670C354E 4ABC9804 F1746C08 CA18217C 32905E46 2E36CE3B
	E39E772C 180E8603 9B2783A2 EC07A28F B5C55DF0 6F4C52C9
	DE2BCBF6 95581718 3995497C EA956AE5 15D22618 98FA0510
	15728E5A 8AAAC42D AD33170D 04507A33 A85521AB DF1CBA64
	ECFB8504 58DBEF0A 8AEA7157 5D060C7D B3970F85 A6E1E4C7
	ABF5AE8C DB0933D7 1E8C94E0 4A25619D CEE3D226 1AD2EE6B
	F12FFA06 D98A0864 D8760273 3EC86A64 521F2B18 177B200C
	BBE11757 7A615D6C 770988C0 BAD946E2 08E24FA0 74E5AB31
	43DB5BFC E0FD108E 4B82D120 A93AD2CA FFFFFFFF FFFFFFFF`

func addModpGroups(m map[protocol.KeTransformId]kexFactory) {
	for _, g := range []struct {
		id    protocol.KeTransformId
		prime string
	}{
		{protocol.MODP_2048, modp2048Prime},
		{protocol.MODP_3072, modp3072Prime},
	} {
		p, ok := new(big.Int).SetString(trim(g.prime), 16)
		if !ok {
			panic("bad MODP prime for " + g.id.String())
		}
		id := g.id
		m[id] = func(rnd io.Reader) (KeyExchange, error) {
			return newModpKex(rnd, id, p)
		}
	}
}

func trim(grp string) string {
	mm := func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\t' {
			return -1
		}
		return r
	}
	return strings.Map(mm, grp)
}

type modpKex struct {
	id         protocol.KeTransformId
	p, g       *big.Int
	private    *big.Int
	peerPublic *big.Int
}

func newModpKex(rnd io.Reader, id protocol.KeTransformId, p *big.Int) (*modpKex, error) {
	// x in [2, p-1); small window at the bottom is irrelevant for the
	// sizes in use
	private, err := randomBigInt(rnd, new(big.Int).Sub(p, big.NewInt(3)))
	if err != nil {
		return nil, err
	}
	private.Add(private, big.NewInt(2))
	return &modpKex{
		id:      id,
		p:       p,
		g:       big.NewInt(2),
		private: private,
	}, nil
}

func randomBigInt(rnd io.Reader, max *big.Int) (*big.Int, error) {
	bytes := make([]byte, (max.BitLen()+7)/8)
	if _, err := io.ReadFull(rnd, bytes); err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(bytes)
	return n.Mod(n, max), nil
}

func (k *modpKex) Method() protocol.KeTransformId { return k.id }

func (k *modpKex) PublicKey() ([]byte, error) {
	pub := new(big.Int).Exp(k.g, k.private, k.p)
	return k.pad(pub), nil
}

func (k *modpKex) SetPeerKey(b []byte) error {
	peer := new(big.Int).SetBytes(b)
	if peer.Sign() <= 0 || peer.Cmp(new(big.Int).Sub(k.p, big.NewInt(1))) >= 0 {
		return kexError(k.id)
	}
	k.peerPublic = peer
	return nil
}

func (k *modpKex) SharedSecret() ([]byte, error) {
	if k.peerPublic == nil {
		return nil, kexError(k.id)
	}
	shared := new(big.Int).Exp(k.peerPublic, k.private, k.p)
	return k.pad(shared), nil
}

// pad left-pads to the group length; the wire format keeps leading
// zero octets.
func (k *modpKex) pad(n *big.Int) []byte {
	b := make([]byte, (k.p.BitLen()+7)/8)
	nb := n.Bytes()
	copy(b[len(b)-len(nb):], nb)
	return b
}

func kexError(id protocol.KeTransformId) error {
	return protocol.ErrF(errKeyExchange, "%s", id)
}
