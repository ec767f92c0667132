package ike

import (
	"crypto/rand"

	"github.com/pkg/errors"

	"github.com/vxconn/ike/crypto"
	"github.com/vxconn/ike/protocol"
)

// KeymatV2 holds the derived key suite of one IKE_SA and acts as the
// factory for key exchange objects and nonce generators.
//
// 2.14.  Generating Keying Material for the IKE SA
//
//   SKEYSEED = prf(Ni | Nr, g^ir)
//   {SK_d | SK_ai | SK_ar | SK_ei | SK_er | SK_pi | SK_pr}
//                  = prf+ (SKEYSEED, Ni | Nr | SPIi | SPIr)
//
// When chaining from a predecessor (rekeying, and every additional
// key exchange of RFC 9370):
//
//   SKEYSEED = prf(SK_d (old), g^ir (new) | Ni | Nr)
//
// with the shared secrets of the exchanges concatenated in plan order.
type KeymatV2 struct {
	suite *crypto.CipherSuite

	hashes []protocol.HashAlgorithmId

	// for test inspection
	SKEYSEED, KEYMAT []byte

	skD        []byte // keying material for rekeying and child SAs
	skAi, skAr []byte // integrity protection keys
	skEi, skEr []byte // encryption keys
	skPi, skPr []byte // AUTH payload keys
}

var errMissingCryptoKeys = errors.New("missing crypto keys")

func NewKeymatV2() *KeymatV2 {
	return &KeymatV2{}
}

// CreateKeyExchange instantiates the key exchange object for a
// method; nil when the method is not implemented.
func (t *KeymatV2) CreateKeyExchange(method protocol.KeTransformId) (crypto.KeyExchange, error) {
	return crypto.NewKeyExchange(rand.Reader, method)
}

// CreateNonceGen returns the nonce source for this keymat.
func (t *KeymatV2) CreateNonceGen() *crypto.NonceGen {
	return crypto.NewNonceGen()
}

// AddHashAlgorithm records a hash the peer supports for signature
// authentication; duplicates are dropped. Reports whether the hash
// was accepted.
func (t *KeymatV2) AddHashAlgorithm(h protocol.HashAlgorithmId) bool {
	if !h.ValidForIkev2() {
		return false
	}
	for _, have := range t.hashes {
		if have == h {
			return true
		}
	}
	t.hashes = append(t.hashes, h)
	return true
}

// HashAlgorithms lists the recorded hashes.
func (t *KeymatV2) HashAlgorithms() []protocol.HashAlgorithmId {
	return t.hashes
}

// SkD hands out the PRF id and SK_d for derivations chaining off this
// SA.
func (t *KeymatV2) SkD() (protocol.PrfTransformId, []byte) {
	if t.suite == nil {
		return 0, nil
	}
	return t.suite.Prf.TransformId, t.skD
}

// Suite is the negotiated cipher suite, nil before derivation.
func (t *KeymatV2) Suite() *crypto.CipherSuite {
	return t.suite
}

// DeriveIkeKeys computes the key suite. kes are the completed key
// exchanges in plan order; oldPrfID and skD come from the predecessor
// when chaining and are zero otherwise.
func (t *KeymatV2) DeriveIkeKeys(proposal *protocol.SaProposal, kes []crypto.KeyExchange,
	nonceI, nonceR []byte, id SaID, oldPrfID protocol.PrfTransformId, skD []byte) error {
	if len(kes) == 0 {
		return errors.New("no key exchange to derive from")
	}
	suite, err := crypto.NewCipherSuite(proposal.SaTransforms)
	if err != nil {
		return err
	}

	var shared []byte
	for _, ke := range kes {
		s, err := ke.SharedSecret()
		if err != nil {
			return err
		}
		shared = append(shared, s...)
	}

	nonces := append(append([]byte{}, nonceI...), nonceR...)
	var skeyseed []byte
	if len(skD) == 0 {
		skeyseed = suite.Prf.Apply(nonces, shared)
	} else {
		oldPrf, err := crypto.NewPrf(oldPrfID)
		if err != nil {
			return err
		}
		skeyseed = oldPrf.Apply(skD, append(append([]byte{}, shared...), nonces...))
	}

	kmLen := 3*suite.Prf.Length + 2*suite.KeyLen + 2*suite.MacKeyLen
	// KEYMAT = prf+ (SKEYSEED, Ni | Nr | SPIi | SPIr)
	keymat := prfplus(suite.Prf, skeyseed,
		append(nonces, append(append([]byte{}, id.SpiI...), id.SpiR...)...), kmLen)

	offset := suite.Prf.Length
	t.skD = keymat[0:offset]
	t.skAi = keymat[offset : offset+suite.MacKeyLen]
	offset += suite.MacKeyLen
	t.skAr = keymat[offset : offset+suite.MacKeyLen]
	offset += suite.MacKeyLen
	t.skEi = keymat[offset : offset+suite.KeyLen]
	offset += suite.KeyLen
	t.skEr = keymat[offset : offset+suite.KeyLen]
	offset += suite.KeyLen
	t.skPi = keymat[offset : offset+suite.Prf.Length]
	offset += suite.Prf.Length
	t.skPr = keymat[offset : offset+suite.Prf.Length]

	t.suite = suite
	t.SKEYSEED = skeyseed
	t.KEYMAT = keymat
	return nil
}

// EncryptionKeys hands out SK_ei / SK_er.
func (t *KeymatV2) EncryptionKeys() (skEi, skEr []byte, err error) {
	if t.skEi == nil || t.skEr == nil {
		return nil, nil, errMissingCryptoKeys
	}
	return t.skEi, t.skEr, nil
}

func prfplus(prf *crypto.Prf, key, data []byte, needed int) []byte {
	var ret, prev []byte
	var round = 1
	for len(ret) < needed {
		prev = prf.Apply(key, append(append(prev, data...), byte(round)))
		ret = append(ret, prev...)
		round++
	}
	return ret[:needed]
}
