package crypto

import (
	"io"

	"github.com/pkg/errors"
	"github.com/vxconn/ike/protocol"
)

// KeyExchange is one stateful key exchange: a classic DH-style group
// or a KEM. The local value to put on the wire comes from PublicKey;
// the peer's wire value goes into SetPeerKey; SharedSecret is valid
// once both halves are in.
//
// For KEMs the two roles differ: the side that emits its public key
// first (the initiator) decapsulates the peer value, the side that
// receives a public key first encapsulates and its PublicKey then
// returns the ciphertext.
type KeyExchange interface {
	Method() protocol.KeTransformId
	PublicKey() ([]byte, error)
	SetPeerKey([]byte) error
	SharedSecret() ([]byte, error)
}

var errKeyExchange = errors.New("invalid key exchange data")

type kexFactory func(rnd io.Reader) (KeyExchange, error)

var kexAlgoMap = map[protocol.KeTransformId]kexFactory{}

func init() {
	addModpGroups(kexAlgoMap)
	addEcpGroups(kexAlgoMap)
	addCurve25519(kexAlgoMap)
	addMlKem(kexAlgoMap)
}

// NewKeyExchange instantiates a key exchange object for the method.
func NewKeyExchange(rnd io.Reader, method protocol.KeTransformId) (KeyExchange, error) {
	factory, ok := kexAlgoMap[method]
	if !ok {
		return nil, errors.Errorf("unsupported key exchange method: %s", method)
	}
	return factory(rnd)
}

// HasKeyExchange reports whether the method can be instantiated.
func HasKeyExchange(method protocol.KeTransformId) bool {
	_, ok := kexAlgoMap[method]
	return ok
}
