package crypto

import (
	"crypto/aes"
	"crypto/cipher"

	camellia "github.com/dgryski/go-camellia"
	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/vxconn/ike/protocol"
)

// CipherSuite is built from a negotiated proposal and knows how much
// key material each component consumes.
type CipherSuite struct {
	Prf *Prf

	KeMethod protocol.KeTransformId

	// lengths, in bytes, of the key material needed per component
	KeyLen, MacKeyLen int
	MacLen            int

	aeadFunc  func(key []byte) (cipher.AEAD, error)
	blockFunc func(key []byte) (cipher.Block, error)
	saltLen   int
}

// NewCipherSuite checks that the transforms of a chosen proposal fit
// together and are all implemented.
func NewCipherSuite(trs []*protocol.SaTransform) (*CipherSuite, error) {
	cs := &CipherSuite{}
	for _, tr := range trs {
		switch tr.Transform.Type {
		case protocol.TRANSFORM_TYPE_KE:
			cs.KeMethod = protocol.KeTransformId(tr.Transform.TransformId)
			if !HasKeyExchange(cs.KeMethod) {
				return nil, errors.Errorf("unsupported key exchange method %s", cs.KeMethod)
			}
		case protocol.TRANSFORM_TYPE_PRF:
			prf, err := prfTransform(tr.Transform.TransformId)
			if err != nil {
				return nil, err
			}
			cs.Prf = prf
		case protocol.TRANSFORM_TYPE_ENCR:
			if err := cs.setEncr(tr); err != nil {
				return nil, err
			}
		case protocol.TRANSFORM_TYPE_INTEG:
			macLen, macKeyLen, ok := integrityTransform(tr.Transform.TransformId)
			if !ok {
				return nil, errors.Errorf("unsupported integrity transform %d", tr.Transform.TransformId)
			}
			cs.MacLen, cs.MacKeyLen = macLen, macKeyLen
		case protocol.TRANSFORM_TYPE_ESN:
			// no keys
		default:
			if !tr.Transform.Type.IsAdditionalKe() {
				return nil, errors.Errorf("unsupported transform type %s", tr.Transform.Type)
			}
			if !HasKeyExchange(protocol.KeTransformId(tr.Transform.TransformId)) {
				return nil, errors.Errorf("unsupported additional key exchange method %d",
					tr.Transform.TransformId)
			}
		}
	}
	if cs.Prf == nil {
		return nil, errors.New("proposal has no prf")
	}
	if cs.aeadFunc == nil && cs.blockFunc == nil {
		return nil, errors.New("proposal has no cipher")
	}
	if cs.aeadFunc == nil && cs.MacKeyLen == 0 {
		return nil, errors.New("non-AEAD proposal has no integrity transform")
	}
	return cs, nil
}

func (cs *CipherSuite) setEncr(tr *protocol.SaTransform) error {
	keyBytes := int(tr.KeyLength) / 8
	switch protocol.EncrTransformId(tr.Transform.TransformId) {
	case protocol.AEAD_AES_GCM_16:
		switch keyBytes {
		case 16, 24, 32:
		default:
			return errors.Errorf("bad AES-GCM key length: %d", tr.KeyLength)
		}
		cs.saltLen = 4
		cs.KeyLen = keyBytes + cs.saltLen
		cs.aeadFunc = func(key []byte) (cipher.AEAD, error) {
			// trailing salt octets become the fixed nonce part;
			// callers handle them, the cipher sees only the key
			blk, err := aes.NewCipher(key[:len(key)-4])
			if err != nil {
				return nil, err
			}
			return cipher.NewGCM(blk)
		}
	case protocol.ENCR_CHACHA20_POLY1305:
		cs.saltLen = 4
		cs.KeyLen = chacha20poly1305.KeySize + cs.saltLen
		cs.aeadFunc = func(key []byte) (cipher.AEAD, error) {
			return chacha20poly1305.New(key[:len(key)-4])
		}
	case protocol.ENCR_AES_CBC:
		switch keyBytes {
		case 16, 24, 32:
		default:
			return errors.Errorf("bad AES-CBC key length: %d", tr.KeyLength)
		}
		cs.KeyLen = keyBytes
		cs.blockFunc = aes.NewCipher
	case protocol.ENCR_CAMELLIA_CBC:
		switch keyBytes {
		case 16, 24, 32:
		default:
			return errors.Errorf("bad Camellia key length: %d", tr.KeyLength)
		}
		cs.KeyLen = keyBytes
		cs.blockFunc = camellia.New
	default:
		return errors.Errorf("unsupported cipher transform %d", tr.Transform.TransformId)
	}
	return nil
}

// IsAead reports whether the suite needs no separate integrity keys.
func (cs *CipherSuite) IsAead() bool {
	return cs.aeadFunc != nil
}

// BuildAead constructs the AEAD for an SK_e key slice.
func (cs *CipherSuite) BuildAead(key []byte) (cipher.AEAD, error) {
	if cs.aeadFunc == nil {
		return nil, errors.New("suite is not AEAD")
	}
	if len(key) != cs.KeyLen {
		return nil, errors.Errorf("bad key length %d, need %d", len(key), cs.KeyLen)
	}
	return cs.aeadFunc(key)
}

// BuildBlock constructs the block cipher for an SK_e key slice.
func (cs *CipherSuite) BuildBlock(key []byte) (cipher.Block, error) {
	if cs.blockFunc == nil {
		return nil, errors.New("suite has no block cipher")
	}
	if len(key) != cs.KeyLen {
		return nil, errors.Errorf("bad key length %d, need %d", len(key), cs.KeyLen)
	}
	return cs.blockFunc(key)
}

func integrityTransform(id uint16) (macLen, macKeyLen int, ok bool) {
	switch protocol.AuthTransformId(id) {
	case protocol.AUTH_HMAC_SHA1_96:
		return 12, 20, true
	case protocol.AUTH_HMAC_SHA2_256_128:
		return 16, 32, true
	case protocol.AUTH_HMAC_SHA2_384_192:
		return 24, 48, true
	case protocol.AUTH_HMAC_SHA2_512_256:
		return 32, 64, true
	}
	return 0, 0, false
}
