package crypto

import (
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
)

// NonceSize is what we put in NONCE payloads; RFC 7296 wants 16..256
// octets and at least half the negotiated prf key size.
const NonceSize = 32

// NonceGen produces fresh random nonces.
type NonceGen struct {
	rnd io.Reader
}

func NewNonceGen() *NonceGen {
	return &NonceGen{rnd: rand.Reader}
}

// Nonce allocates a nonce of exactly size octets.
func (g *NonceGen) Nonce(size int) ([]byte, error) {
	no := make([]byte, size)
	if _, err := io.ReadFull(g.rnd, no); err != nil {
		return nil, errors.Wrap(err, "nonce allocation failed")
	}
	return no, nil
}
