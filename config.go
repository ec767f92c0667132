package ike

import (
	"net"

	"github.com/vxconn/ike/protocol"
)

// Settings are the tunables this package consumes. Field defaults
// follow the daemon's strongswan.conf-style keys.
type Settings struct {
	// SignatureAuthentication enables RFC 7427 hash negotiation
	SignatureAuthentication bool
	// FollowRedirects emits REDIRECT_SUPPORTED and acts on REDIRECT
	FollowRedirects bool
	// AcceptPrivateAlgs selects private-use transforms from unknown peers
	AcceptPrivateAlgs bool
	// PreferConfiguredProposals keeps local proposal order on selection
	PreferConfiguredProposals bool
	// PreferPreviousDhGroup reuses the predecessor's group on rekey
	PreferPreviousDhGroup bool
}

func DefaultSettings() *Settings {
	return &Settings{
		SignatureAuthentication:   true,
		FollowRedirects:           true,
		AcceptPrivateAlgs:         false,
		PreferConfiguredProposals: true,
		PreferPreviousDhGroup:     true,
	}
}

// Fragmentation policy of an IKE config.
type Fragmentation int

const (
	FragmentationYes Fragmentation = iota
	FragmentationAccept
	FragmentationNo
)

// Childless policy of an IKE config.
type Childless int

const (
	ChildlessAllow Childless = iota
	ChildlessNever
)

// SelectionFlags steer proposal selection.
type SelectionFlags uint

const (
	// SkipPrivate ignores private-use transform ids in supplied proposals
	SkipPrivate SelectionFlags = 1 << iota
	// PreferSupplied follows the supplied proposal order instead of ours
	PreferSupplied
)

// IkeConfig is the IKE-level connection configuration.
type IkeConfig struct {
	Name          string
	Proposals     protocol.Proposals
	Fragmentation Fragmentation
	Childless     Childless
}

// ProposalList returns deep copies; negotiation mutates proposals
// (SPI, transform promotion) and must not write into the config.
func (cfg *IkeConfig) ProposalList() protocol.Proposals {
	var list protocol.Proposals
	for _, p := range cfg.Proposals {
		list = append(list, p.Clone())
	}
	return list
}

// Algorithm returns the id of the first transform of the given type
// over the configured proposals.
func (cfg *IkeConfig) Algorithm(t protocol.TransformType) (uint16, bool) {
	for _, p := range cfg.Proposals {
		if id, ok := p.Algorithm(t); ok {
			return id, true
		}
	}
	return 0, false
}

// SelectProposal intersects supplied proposals with the configured
// ones and returns the agreed proposal, or nil. The result carries
// the supplied proposal's SPI and, per transform type, the preferred
// side's first transform that the other side also offers.
func (cfg *IkeConfig) SelectProposal(supplied protocol.Proposals, flags SelectionFlags) *protocol.SaProposal {
	try := func(local, offer *protocol.SaProposal) *protocol.SaProposal {
		if offer.ProtocolID != local.ProtocolID {
			return nil
		}
		if !offer.IsSpiSizeCorrect(len(offer.Spi)) {
			return nil
		}
		return intersectProposals(local, offer, flags)
	}
	if flags&PreferSupplied != 0 {
		for _, offer := range supplied {
			for _, local := range cfg.Proposals {
				if sel := try(local, offer); sel != nil {
					return sel
				}
			}
		}
		return nil
	}
	for _, local := range cfg.Proposals {
		for _, offer := range supplied {
			if sel := try(local, offer); sel != nil {
				return sel
			}
		}
	}
	return nil
}

func intersectProposals(local, offer *protocol.SaProposal, flags SelectionFlags) *protocol.SaProposal {
	preferred, other := local, offer
	if flags&PreferSupplied != 0 {
		preferred, other = offer, local
	}

	// both sides must agree on every transform type either of them
	// requires; missing INTEG is fine for AEAD suites, missing ESN is
	// fine for IKE
	types := transformTypes(local, offer)
	var chosen []*protocol.SaTransform
	for _, t := range types {
		pick := commonTransform(t, preferred, other, flags)
		if pick == nil {
			if !typeRequired(t, local, offer) {
				continue
			}
			return nil
		}
		cp := *pick
		cp.IsLast = false
		chosen = append(chosen, &cp)
	}
	if len(chosen) == 0 {
		return nil
	}
	return &protocol.SaProposal{
		IsLast:       true,
		Number:       offer.Number,
		ProtocolID:   offer.ProtocolID,
		Spi:          append([]byte{}, offer.Spi...),
		SaTransforms: chosen,
	}
}

// transformTypes lists the union of types in stable numeric order.
func transformTypes(a, b *protocol.SaProposal) []protocol.TransformType {
	seen := map[protocol.TransformType]bool{}
	var types []protocol.TransformType
	for t := protocol.TRANSFORM_TYPE_ENCR; t <= protocol.TRANSFORM_TYPE_ADDKE7; t++ {
		for _, p := range []*protocol.SaProposal{a, b} {
			if _, ok := p.Transform(t); ok && !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	return types
}

// typeRequired: a type present on only one side kills the match,
// except types that are optional by construction.
func typeRequired(t protocol.TransformType, local, offer *protocol.SaProposal) bool {
	_, inLocal := local.Transform(t)
	_, inOffer := offer.Transform(t)
	if inLocal && inOffer {
		return true
	}
	switch t {
	case protocol.TRANSFORM_TYPE_ESN:
		return false
	case protocol.TRANSFORM_TYPE_INTEG:
		// AEAD suites carry no integrity transform
		return false
	}
	return true
}

func commonTransform(t protocol.TransformType, preferred, other *protocol.SaProposal, flags SelectionFlags) *protocol.SaTransform {
	for _, tr := range preferred.SaTransforms {
		if tr.Transform.Type != t {
			continue
		}
		if flags&SkipPrivate != 0 && isPrivateTransform(tr) {
			continue
		}
		for _, o := range other.SaTransforms {
			if o.Transform == tr.Transform && o.KeyLength == tr.KeyLength {
				return tr
			}
		}
	}
	return nil
}

func isPrivateTransform(tr *protocol.SaTransform) bool {
	return tr.Transform.TransformId >= 1024
}

// AuthRuleType tags one constraint of an auth round.
type AuthRuleType int

const (
	AuthRuleIkeSignatureScheme AuthRuleType = iota + 1
)

// SignatureScheme carries the hash a configured scheme signs with.
type SignatureScheme struct {
	Hash protocol.HashAlgorithmId
}

// AuthRule is one entry of an auth config.
type AuthRule struct {
	Type   AuthRuleType
	Scheme *SignatureScheme
}

// AuthConfig is one authentication round of a peer config.
type AuthConfig struct {
	Rules []AuthRule
}

// PeerConfig is the per-peer configuration.
type PeerConfig struct {
	Name     string
	AuthCfgs []*AuthConfig
	PpkID    string
}

// AuthConfigs enumerates the authentication rounds. The local flag
// does not filter: every configured round is returned either way.
func (p *PeerConfig) AuthConfigs(local bool) []*AuthConfig {
	return p.AuthCfgs
}

// Backends finds alternative IKE configs for a host pair; the
// responder retries proposal selection against them when the active
// config does not match.
type Backends interface {
	IkeConfigs(me, other net.Addr) []*IkeConfig
}

// CredentialStore answers whether any PPK credential is on file.
type CredentialStore interface {
	HasPpk() bool
}
