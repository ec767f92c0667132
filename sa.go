package ike

import (
	"crypto/rand"
	"net"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/vxconn/ike/protocol"
)

// State of an IKE_SA.
type State int

const (
	StateCreated State = iota
	StateConnecting
	StateEstablished
	StateDeleting
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateConnecting:
		return "CONNECTING"
	case StateEstablished:
		return "ESTABLISHED"
	case StateDeleting:
		return "DELETING"
	}
	return "Unknown"
}

// Extension flags an SA learns about its peer during negotiation.
// A fixed-width bit set keeps the frequent supports checks O(1).
type Extension uint32

const (
	ExtSignatureAuth Extension = 1 << iota // RFC 7427
	ExtIkeFragmentation                    // RFC 7383
	ExtIkeRedirection                      // RFC 5685
	ExtIkeChildless                        // RFC 6023
	ExtPpk                                 // RFC 8784
	ExtIkeIntermediate                     // RFC 9242
	ExtSameVendor                          // peer runs this stack (vendor id)
)

// SaID identifies one IKE_SA on the wire.
type SaID struct {
	SpiI, SpiR protocol.Spi
	Initiator  bool
}

// MakeSpi allocates a fresh random 8B spi.
func MakeSpi() protocol.Spi {
	spi := make([]byte, 8)
	rand.Read(spi)
	return spi
}

// SpiIsZero reports an absent or all-zero spi, as sent before the
// responder has allocated one.
func SpiIsZero(spi protocol.Spi) bool {
	for _, b := range spi {
		if b != 0 {
			return false
		}
	}
	return true
}

// RedirectProvider decides whether an initiating client should be
// sent elsewhere (the provider side of RFC 5685).
type RedirectProvider interface {
	RedirectOnInit(sa *IkeSa) (*protocol.GwIdentity, bool)
}

// IkeSa is the security association container the tasks operate on.
// The SA outlives every task it carries; tasks hold plain references.
type IkeSa struct {
	id       SaID
	name     string
	uniqueID int

	state      State
	extensions Extension

	cfg     *IkeConfig
	peerCfg *PeerConfig
	keymat  *KeymatV2

	proposal *protocol.SaProposal

	otherHost net.Addr

	// redirect bookkeeping (initiator side)
	redirectedFrom net.Addr
	redirectedTo   *protocol.GwIdentity

	// environment
	Bus       *Bus
	Backends  Backends
	Creds     CredentialStore
	Redirects RedirectProvider
	Settings  *Settings

	Logger log.Logger
}

var saUniqueID int

// NewIkeSa builds an SA shell around its configuration. The initiator
// allocates its spi up front; the responder's comes with the first
// response.
func NewIkeSa(name string, initiator bool, cfg *IkeConfig, peerCfg *PeerConfig,
	bus *Bus, logger log.Logger) *IkeSa {
	saUniqueID++
	id := SaID{Initiator: initiator}
	if initiator {
		id.SpiI = MakeSpi()
	} else {
		id.SpiR = MakeSpi()
	}
	if bus == nil {
		bus = NewBus()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &IkeSa{
		id:       id,
		name:     name,
		uniqueID: saUniqueID,
		cfg:      cfg,
		peerCfg:  peerCfg,
		keymat:   NewKeymatV2(),
		Bus:      bus,
		Settings: DefaultSettings(),
		Logger:   logger,
	}
}

func (o *IkeSa) ID() *SaID            { return &o.id }
func (o *IkeSa) Name() string         { return o.name }
func (o *IkeSa) UniqueID() int        { return o.uniqueID }
func (o *IkeSa) Keymat() *KeymatV2    { return o.keymat }
func (o *IkeSa) IkeCfg() *IkeConfig   { return o.cfg }
func (o *IkeSa) PeerCfg() *PeerConfig { return o.peerCfg }

func (o *IkeSa) SetIkeCfg(cfg *IkeConfig) { o.cfg = cfg }

func (o *IkeSa) State() State { return o.state }

func (o *IkeSa) SetState(s State) {
	if o.state != s {
		level.Debug(o.Logger).Log("sa", o.name, "state", s)
		o.state = s
	}
}

func (o *IkeSa) OtherHost() net.Addr        { return o.otherHost }
func (o *IkeSa) SetOtherHost(addr net.Addr) { o.otherHost = addr }

func (o *IkeSa) Proposal() *protocol.SaProposal { return o.proposal }

func (o *IkeSa) SetProposal(p *protocol.SaProposal) { o.proposal = p }

func (o *IkeSa) EnableExtension(e Extension) {
	o.extensions |= e
}

func (o *IkeSa) SupportsExtension(e Extension) bool {
	return o.extensions&e != 0
}

// Reset rolls the SA back before another IKE_SA_INIT attempt (cookie
// or INVALID_KE_PAYLOAD retry). newSpi is only used when the peer may
// have state for the old one.
func (o *IkeSa) Reset(newSpi bool) {
	o.proposal = nil
	o.state = StateCreated
	if newSpi && o.id.Initiator {
		o.id.SpiI = MakeSpi()
	}
}

// RedirectedFrom is the gateway that sent us here, when this connect
// attempt is the result of a REDIRECT.
func (o *IkeSa) RedirectedFrom() net.Addr { return o.redirectedFrom }

func (o *IkeSa) SetRedirectedFrom(addr net.Addr) { o.redirectedFrom = addr }

// RedirectedTo is the gateway accepted by HandleRedirect.
func (o *IkeSa) RedirectedTo() *protocol.GwIdentity { return o.redirectedTo }

// HandleRedirect accepts or refuses a REDIRECT to the given gateway.
// Acceptance records the target so the daemon can reinitiate there.
func (o *IkeSa) HandleRedirect(gw *protocol.GwIdentity) bool {
	if gw == nil {
		return false
	}
	if !o.Settings.FollowRedirects {
		return false
	}
	level.Info(o.Logger).Log("sa", o.name, "msg", "redirected", "gateway", gw.String())
	o.redirectedTo = gw
	o.redirectedFrom = o.otherHost
	return true
}
