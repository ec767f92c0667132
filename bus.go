package ike

import (
	"github.com/vxconn/ike/crypto"
)

// AlertCode classifies conditions the daemon may want to surface to
// an operator or monitoring hook.
type AlertCode int

const (
	// AlertProposalMismatchIke is raised when no IKE proposal could
	// be agreed on; the payload carries the offending proposal list.
	AlertProposalMismatchIke AlertCode = iota + 1
)

// IkeKeysEvent is published once a keymat derivation succeeded.
type IkeKeysEvent struct {
	Sa             *IkeSa
	Kes            []crypto.KeyExchange
	NonceI, NonceR []byte
	// OldSa is non-nil only when a predecessor SK_d was consumed
	OldSa *IkeSa
}

// AlertListener receives alerts.
type AlertListener func(code AlertCode, payload interface{})

// IkeKeysListener receives key events.
type IkeKeysListener func(ev IkeKeysEvent)

// Bus fans daemon events out to registered listeners. All calls run
// on the caller's goroutine; the single-threaded discipline of the
// task scheduler applies.
type Bus struct {
	alertListeners []AlertListener
	keysListeners  []IkeKeysListener
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) OnAlert(l AlertListener) {
	b.alertListeners = append(b.alertListeners, l)
}

func (b *Bus) OnIkeKeys(l IkeKeysListener) {
	b.keysListeners = append(b.keysListeners, l)
}

func (b *Bus) Alert(code AlertCode, payload interface{}) {
	for _, l := range b.alertListeners {
		l(code, payload)
	}
}

func (b *Bus) IkeKeys(ev IkeKeysEvent) {
	for _, l := range b.keysListeners {
		l(ev)
	}
}
