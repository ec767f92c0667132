package crypto

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/pkg/errors"
	"github.com/vxconn/ike/protocol"
)

// Prf is a keyed pseudo random function
type Prf struct {
	Apply       func(key, data []byte) []byte
	Length      int
	TransformId protocol.PrfTransformId
}

func (p *Prf) String() string {
	switch p.TransformId {
	case protocol.PRF_HMAC_SHA1:
		return "HMAC_SHA1"
	case protocol.PRF_HMAC_SHA2_256:
		return "HMAC_SHA2_256"
	case protocol.PRF_HMAC_SHA2_384:
		return "HMAC_SHA2_384"
	case protocol.PRF_HMAC_SHA2_512:
		return "HMAC_SHA2_512"
	}
	return "Unknown"
}

func prfTransform(prfID uint16) (*Prf, error) {
	id := protocol.PrfTransformId(prfID)
	switch id {
	case protocol.PRF_HMAC_SHA2_256:
		return &Prf{macPrf(sha256.New), sha256.Size, id}, nil
	case protocol.PRF_HMAC_SHA2_384:
		return &Prf{macPrf(sha512.New384), sha512.Size384, id}, nil
	case protocol.PRF_HMAC_SHA2_512:
		return &Prf{macPrf(sha512.New), sha512.Size, id}, nil
	case protocol.PRF_HMAC_SHA1:
		return &Prf{macPrf(sha1.New), sha1.Size, id}, nil
	default:
		return nil, errors.Errorf("unsupported PRF transform: %d", prfID)
	}
}

// NewPrf builds the prf for a transform id; used when chaining onto a
// predecessor whose proposal is gone.
func NewPrf(id protocol.PrfTransformId) (*Prf, error) {
	return prfTransform(uint16(id))
}

func macPrf(h func() hash.Hash) func(key, data []byte) []byte {
	return func(key, data []byte) []byte {
		mac := hmac.New(h, key)
		mac.Write(data)
		return mac.Sum(nil)
	}
}
