package ike

import (
	"bytes"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/msgboxio/packets"

	"github.com/vxconn/ike/crypto"
	"github.com/vxconn/ike/protocol"
)

// IKE_SA_INIT
// a->b
//	HDR(SPIi=xxx, SPIr=0, IKE_SA_INIT, Flags: Initiator, Message ID=0),
//	SAi1, KEi, Ni, [N...]
// b->a
//	HDR((SPIi=xxx, SPIr=yyy, IKE_SA_INIT, Flags: Response, Message ID=0),
// 	SAr1, KEr, Nr, [N...]
//
// With multiple key exchanges (RFC 9370) the remaining exchanges run
// as IKE_INTERMEDIATE (initial) or IKE_FOLLOWUP_KE (rekey) rounds
// carrying one KE payload each. During a rekey keys are derived only
// once the whole chain is done; during the initial establishment they
// are derived after every exchange, each derivation chaining off the
// SK_d of the previous one.

// MaxRetries bounds the in-band retries after COOKIE or
// INVALID_KE_PAYLOAD.
const MaxRetries = 5

// MaxKeyExchanges is the primary exchange plus ADDKE1..7.
const MaxKeyExchanges = 8

type keyExchangeSlot struct {
	ttype  protocol.TransformType
	method protocol.KeTransformId
	done   bool
}

// IkeInitTask drives the initial exchange of an IKE_SA, as initiator
// or responder, including rekeying and chained key exchanges.
type IkeInitTask struct {
	sa *IkeSa

	initiator bool

	// oldSa is the SA being rekeyed, nil on initial establishment
	oldSa *IkeSa

	// key exchanges to perform, in plan order
	keyExchanges [MaxKeyExchanges]keyExchangeSlot

	// cursor into keyExchanges: the next exchange to perform
	keIndex int

	// method from the parsed or sent KE payload
	keMethod protocol.KeTransformId

	// current key exchange object
	ke crypto.KeyExchange

	// all key exchanges performed during rekeying
	kes []crypto.KeyExchange

	// applying the peer public value failed, or methods disagreed
	keFailed bool

	keymat *KeymatV2

	myNonce, otherNonce []byte

	nonceg *crypto.NonceGen

	// negotiated proposal for the new IKE_SA
	proposal *protocol.SaProposal

	// cookie received from the responder
	cookie []byte

	// retries done so far after COOKIE or a bad KE group
	retry int

	signatureAuthentication bool
	followRedirects         bool

	// dispatch vector; rebound when the multi-KE phase starts
	build   func(*Message) Status
	process func(*Message) Status

	// deferred derivation hooks
	postBuildFn, postProcessFn func(*Message) Status

	log log.Logger
}

// NewIkeInitTask creates the task for an SA entering negotiation.
// oldSa is non-nil when this initial exchange rekeys an existing SA.
func NewIkeInitTask(sa *IkeSa, initiator bool, oldSa *IkeSa) *IkeInitTask {
	t := &IkeInitTask{
		sa:                      sa,
		initiator:               initiator,
		oldSa:                   oldSa,
		keMethod:                protocol.KE_NONE,
		keymat:                  sa.Keymat(),
		nonceg:                  sa.Keymat().CreateNonceGen(),
		signatureAuthentication: sa.Settings.SignatureAuthentication,
		followRedirects:         sa.Settings.FollowRedirects,
		log:                     log.With(sa.Logger, "task", "IKE_INIT"),
	}
	if initiator {
		t.build = t.buildI
		t.process = t.processI
	} else {
		t.build = t.buildR
		t.process = t.processR
	}
	return t
}

func (t *IkeInitTask) Type() TaskType { return TaskTypeIkeInit }

func (t *IkeInitTask) Build(m *Message) Status { return t.build(m) }

func (t *IkeInitTask) Process(m *Message) Status { return t.process(m) }

// PreProcess validates a response ahead of Process; only the
// initiator has checks here.
func (t *IkeInitTask) PreProcess(m *Message) Status {
	if t.initiator {
		return t.preProcessI(m)
	}
	return Success
}

// PostBuild runs after the outgoing message was signed; with no
// deferred work pending it leaves the Build status in force.
func (t *IkeInitTask) PostBuild(m *Message) Status {
	if t.postBuildFn != nil {
		fn := t.postBuildFn
		t.postBuildFn = nil
		return fn(m)
	}
	return NeedMore
}

// PostProcess runs after an incoming message was fully handled; with
// no deferred work pending it leaves the Process status in force.
func (t *IkeInitTask) PostProcess(m *Message) Status {
	if t.postProcessFn != nil {
		fn := t.postProcessFn
		t.postProcessFn = nil
		return fn(m)
	}
	return NeedMore
}

// Migrate rebinds the task to a new SA, dropping volatile state
// including the peer nonce. Our own nonce and the cookie survive so
// the negotiation can continue.
func (t *IkeInitTask) Migrate(sa *IkeSa) {
	t.sa = sa
	t.keymat = sa.Keymat()
	t.proposal = nil
	t.otherNonce = nil
	t.keFailed = false
	t.clearKeyExchanges()
	t.postBuildFn, t.postProcessFn = nil, nil
	if t.initiator {
		t.build, t.process = t.buildI, t.processI
	} else {
		t.build, t.process = t.buildR, t.processR
	}
}

// Destroy releases owned state.
func (t *IkeInitTask) Destroy() {
	t.ke = nil
	t.proposal = nil
	t.nonceg = nil
	t.myNonce, t.otherNonce, t.cookie = nil, nil, nil
	t.clearKeyExchanges()
}

// LowerNonce returns the byte-wise smaller of the two nonces over
// their common prefix; peer tasks use it to pick rekey winners.
func (t *IkeInitTask) LowerNonce() []byte {
	n := len(t.myNonce)
	if len(t.otherNonce) < n {
		n = len(t.otherNonce)
	}
	if bytes.Compare(t.myNonce[:n], t.otherNonce[:n]) < 0 {
		return t.myNonce
	}
	return t.otherNonce
}

// exchange type for additional rounds: IKE_INTERMEDIATE during the
// initial establishment, IKE_FOLLOWUP_KE during a rekey
func (t *IkeInitTask) exchangeTypeMultiKe() protocol.IkeExchangeType {
	if t.oldSa != nil {
		return protocol.IKE_FOLLOWUP_KE
	}
	return protocol.IKE_INTERMEDIATE
}

func (t *IkeInitTask) generateNonce() bool {
	if t.nonceg == nil {
		level.Error(t.log).Log("msg", "no nonce generator found to create nonce")
		return false
	}
	no, err := t.nonceg.Nonce(crypto.NonceSize)
	if err != nil {
		level.Error(t.log).Log("msg", "nonce allocation failed", "err", err)
		return false
	}
	t.myNonce = no
	return true
}

// sendSupportedHashAlgorithms notifies the peer of the hashes we
// support or expect for signature authentication (RFC 7427).
func (t *IkeInitTask) sendSupportedHashAlgorithms(m *Message) {
	var algos []protocol.HashAlgorithmId
	seen := map[protocol.HashAlgorithmId]bool{}
	add := func(h protocol.HashAlgorithmId) {
		if h.ValidForIkev2() && !seen[h] {
			seen[h] = true
			algos = append(algos, h)
		}
	}
	if peer := t.sa.PeerCfg(); peer != nil {
		for _, auth := range peer.AuthConfigs(true) {
			for _, rule := range auth.Rules {
				if rule.Type == AuthRuleIkeSignatureScheme && rule.Scheme != nil {
					add(rule.Scheme.Hash)
				}
			}
		}
	}
	if len(algos) == 0 {
		for _, h := range []protocol.HashAlgorithmId{
			protocol.HASH_SHA2_256, protocol.HASH_SHA2_384,
			protocol.HASH_SHA2_512, protocol.HASH_SHA1,
		} {
			add(h)
		}
	}
	if len(algos) == 0 {
		return
	}
	data := make([]byte, 2*len(algos))
	for i, h := range algos {
		packets.WriteB16(data, 2*i, uint16(h))
	}
	m.AddNotify(false, protocol.SIGNATURE_HASH_ALGORITHMS, data)
	level.Debug(t.log).Log("msg", "sending supported signature hash algorithms", "algos", len(algos))
}

// handleSupportedHashAlgorithms stores the hashes the peer announced.
func (t *IkeInitTask) handleSupportedHashAlgorithms(n *protocol.NotifyPayload) {
	added := false
	for off := 0; off+2 <= len(n.Data); off += 2 {
		algo, _ := packets.ReadB16(n.Data, off)
		if t.keymat.AddHashAlgorithm(protocol.HashAlgorithmId(algo)) {
			added = true
		}
	}
	if added {
		t.sa.EnableExtension(ExtSignatureAuth)
	}
}

// sendUsePpk: the initiator announces a configured PPK, the responder
// confirms when it saw USE_PPK and has a PPK on file.
func (t *IkeInitTask) sendUsePpk() bool {
	if t.initiator {
		if peer := t.sa.PeerCfg(); peer != nil && peer.PpkID != "" {
			return true
		}
		return false
	}
	if t.sa.SupportsExtension(ExtPpk) && t.sa.Creds != nil && t.sa.Creds.HasPpk() {
		return true
	}
	return false
}

// buildPayloads fills SA, KE, NONCE and the status notifies of the
// initial exchange.
func (t *IkeInitTask) buildPayloads(m *Message) bool {
	id := t.sa.ID()
	ikeCfg := t.sa.IkeCfg()

	if t.initiator {
		proposals := ikeCfg.ProposalList()
		var withGroup, otherGroups protocol.Proposals
		for _, proposal := range proposals {
			// include the SPI of the new IKE_SA when rekeying
			if t.oldSa != nil {
				proposal.SetSpi(id.SpiI)
			}
			// move the selected method to the front of the proposal
			if proposal.PromoteTransform(protocol.TRANSFORM_TYPE_KE, uint16(t.keMethod)) {
				withGroup = append(withGroup, proposal)
			} else {
				// proposal without the group, keep it but move it back
				otherGroups = append(otherGroups, proposal)
			}
		}
		m.AddPayload(&protocol.SaPayload{
			PayloadHeader: &protocol.PayloadHeader{},
			Proposals:     append(withGroup, otherGroups...),
		})
	} else {
		if t.oldSa != nil {
			t.proposal.SetSpi(id.SpiR)
		}
		m.AddPayload(&protocol.SaPayload{
			PayloadHeader: &protocol.PayloadHeader{},
			Proposals:     protocol.Proposals{t.proposal},
		})
	}

	pub, err := t.ke.PublicKey()
	if err != nil {
		level.Error(t.log).Log("msg", "creating KE payload failed", "err", err)
		return false
	}
	m.AddPayload(&protocol.KePayload{
		PayloadHeader: &protocol.PayloadHeader{},
		KeTransformId: t.ke.Method(),
		KeyData:       pub,
	})

	m.AddPayload(&protocol.NoncePayload{
		PayloadHeader: &protocol.PayloadHeader{},
		Nonce:         t.myNonce,
	})

	// negotiate fragmentation if we are not rekeying
	if t.oldSa == nil && ikeCfg.Fragmentation != FragmentationNo {
		if t.initiator || t.sa.SupportsExtension(ExtIkeFragmentation) {
			m.AddNotify(false, protocol.IKEV2_FRAGMENTATION_SUPPORTED, nil)
		}
	}
	// submit supported hash algorithms for signature authentication
	if t.oldSa == nil && t.signatureAuthentication {
		if t.initiator || t.sa.SupportsExtension(ExtSignatureAuth) {
			t.sendSupportedHashAlgorithms(m)
		}
	}
	// tell the peer where we came from, or that we follow redirects
	if t.oldSa == nil && t.initiator && t.followRedirects {
		if from := t.sa.RedirectedFrom(); from != nil {
			if gw := protocol.GwIdentityFromAddr(from); gw != nil {
				m.AddNotify(false, protocol.REDIRECTED_FROM, protocol.RedirectData(gw, nil))
			}
		} else {
			m.AddNotify(false, protocol.REDIRECT_SUPPORTED, nil)
		}
	}
	if t.oldSa == nil && t.sendUsePpk() {
		m.AddNotify(false, protocol.USE_PPK, nil)
	}
	// notify the peer if we accept childless IKE_SAs
	if t.oldSa == nil && !t.initiator && t.sa.IkeCfg().Childless != ChildlessNever {
		m.AddNotify(false, protocol.CHILDLESS_IKEV2_SUPPORTED, nil)
	}
	return true
}

// processSaPayload selects a proposal; a responder that cannot match
// retries against alternative configs for the same host pair.
func (t *IkeInitTask) processSaPayload(m *Message, saPayload *protocol.SaPayload) {
	ikeCfg := t.sa.IkeCfg()

	var flags SelectionFlags
	if !t.sa.SupportsExtension(ExtSameVendor) && !t.sa.Settings.AcceptPrivateAlgs {
		flags |= SkipPrivate
	}
	if !t.sa.Settings.PreferConfiguredProposals {
		flags |= PreferSupplied
	}
	t.proposal = ikeCfg.SelectProposal(saPayload.Proposals, flags)
	if t.proposal != nil {
		return
	}
	var altCfg *IkeConfig
	if !t.initiator && t.oldSa == nil && t.sa.Backends != nil {
		me, other := m.GetDestination(), m.GetSource()
		for _, cfg := range t.sa.Backends.IkeConfigs(me, other) {
			if cfg == ikeCfg {
				// already tried and failed
				continue
			}
			level.Info(t.log).Log("msg", "no matching proposal found, trying alternative config",
				"config", cfg.Name)
			t.proposal = cfg.SelectProposal(saPayload.Proposals, flags)
			if t.proposal != nil {
				altCfg = cfg
				break
			}
		}
	}
	if altCfg != nil {
		t.sa.SetIkeCfg(altCfg)
	} else {
		t.sa.Bus.Alert(AlertProposalMismatchIke, saPayload.Proposals)
	}
}

// determineKeyExchanges collects the key exchange plan from the
// selected proposal: the primary method, then ADDKE1..7 in numeric
// order, compacted to the front.
func (t *IkeInitTask) determineKeyExchanges() {
	alg, _ := t.proposal.Algorithm(protocol.TRANSFORM_TYPE_KE)
	t.keyExchanges[0] = keyExchangeSlot{
		ttype:  protocol.TRANSFORM_TYPE_KE,
		method: protocol.KeTransformId(alg),
	}
	i := 1
	for tt := protocol.TRANSFORM_TYPE_ADDKE1; tt <= protocol.TRANSFORM_TYPE_ADDKE7; tt++ {
		if alg, ok := t.proposal.Algorithm(tt); ok {
			t.keyExchanges[i] = keyExchangeSlot{ttype: tt, method: protocol.KeTransformId(alg)}
			i++
		}
	}
}

func (t *IkeInitTask) additionalKeyExchangeRequired() bool {
	for i := t.keIndex; i < MaxKeyExchanges; i++ {
		if t.keyExchanges[i].ttype != 0 && !t.keyExchanges[i].done {
			return true
		}
	}
	return false
}

func (t *IkeInitTask) clearKeyExchanges() {
	for i := range t.keyExchanges {
		t.keyExchanges[i] = keyExchangeSlot{}
	}
	t.keIndex = 0
	t.kes = nil
}

// processKePayload applies a peer KE payload to the exchange planned
// at the cursor.
func (t *IkeInitTask) processKePayload(kep *protocol.KePayload) {
	method := t.keyExchanges[t.keIndex].method
	received := kep.KeTransformId

	if method != received {
		level.Error(t.log).Log("msg", "key exchange method in received payload doesn't match negotiated",
			"received", received, "negotiated", method)
		t.keFailed = true
		return
	}

	if !t.initiator {
		ke, err := t.keymat.CreateKeyExchange(method)
		if err != nil {
			// the build step fails without a key exchange object: the
			// initial exchange answers NO_PROPOSAL_CHOSEN, an
			// additional exchange answers INVALID_SYNTAX
			level.Error(t.log).Log("msg", "negotiated key exchange method not supported",
				"method", method)
			t.ke = nil
		} else {
			t.ke = ke
		}
	} else if t.ke != nil {
		t.keFailed = t.ke.Method() != received
	}

	if t.ke != nil && !t.keFailed {
		if err := t.ke.SetPeerKey(kep.KeyData); err != nil {
			t.keFailed = true
		}
	}
}

// processPayloads reads the initial exchange payloads.
func (t *IkeInitTask) processPayloads(m *Message) {
	var kePld *protocol.KePayload

	for _, payload := range m.Payloads.Array {
		switch pld := payload.(type) {
		case *protocol.SaPayload:
			t.processSaPayload(m, pld)
		case *protocol.KePayload:
			kePld = pld
			t.keMethod = pld.KeTransformId
		case *protocol.NoncePayload:
			t.otherNonce = pld.Nonce
		case *protocol.NotifyPayload:
			switch pld.NotificationType {
			case protocol.IKEV2_FRAGMENTATION_SUPPORTED:
				t.sa.EnableExtension(ExtIkeFragmentation)
			case protocol.SIGNATURE_HASH_ALGORITHMS:
				if t.signatureAuthentication {
					t.handleSupportedHashAlgorithms(pld)
				}
			case protocol.USE_PPK:
				if t.oldSa == nil {
					t.sa.EnableExtension(ExtPpk)
				}
			case protocol.REDIRECTED_FROM:
				gw, _, err := protocol.ParseRedirectData(pld.Data)
				if err != nil {
					level.Info(t.log).Log("msg", "received invalid REDIRECTED_FROM notify, ignored")
					break
				}
				level.Info(t.log).Log("msg", "client got redirected", "from", gw.String())
				// a client announcing its redirect origin supports
				// redirection just like one sending REDIRECT_SUPPORTED
				t.enableRedirection()
			case protocol.REDIRECT_SUPPORTED:
				t.enableRedirection()
			case protocol.CHILDLESS_IKEV2_SUPPORTED:
				if t.initiator && t.oldSa == nil {
					t.sa.EnableExtension(ExtIkeChildless)
				}
			default:
				// other notifies are handled elsewhere
			}
		}
	}

	if t.proposal != nil {
		t.sa.SetProposal(t.proposal)

		if t.oldSa != nil {
			// retrieve the SPI of the new IKE_SA when rekeying
			id := t.sa.ID()
			if t.initiator {
				id.SpiR = append(protocol.Spi{}, t.proposal.Spi...)
			} else {
				id.SpiI = append(protocol.Spi{}, t.proposal.Spi...)
			}
		}

		t.determineKeyExchanges()
		if kePld != nil {
			t.processKePayload(kePld)
		}
	}
}

func (t *IkeInitTask) enableRedirection() {
	if t.oldSa == nil {
		t.sa.EnableExtension(ExtIkeRedirection)
	}
}

// buildPayloadsMultiKe emits the single KE payload of an additional
// exchange.
func (t *IkeInitTask) buildPayloadsMultiKe(m *Message) bool {
	pub, err := t.ke.PublicKey()
	if err != nil {
		level.Error(t.log).Log("msg", "creating KE payload failed", "err", err)
		return false
	}
	m.AddPayload(&protocol.KePayload{
		PayloadHeader: &protocol.PayloadHeader{},
		KeTransformId: t.ke.Method(),
		KeyData:       pub,
	})
	return true
}

func (t *IkeInitTask) buildIMultiKe(m *Message) Status {
	m.SetExchangeType(t.exchangeTypeMultiKe())

	method := t.keyExchanges[t.keIndex].method
	ke, err := t.keymat.CreateKeyExchange(method)
	if err != nil {
		level.Error(t.log).Log("msg", "negotiated key exchange method not supported", "method", method)
		return Failed
	}
	t.ke = ke
	if !t.buildPayloadsMultiKe(m) {
		return Failed
	}
	return NeedMore
}

func (t *IkeInitTask) buildI(m *Message) Status {
	ikeCfg := t.sa.IkeCfg()

	level.Info(t.log).Log("msg", "initiating IKE_SA",
		"sa", t.sa.Name(), "id", t.sa.UniqueID(), "to", t.sa.OtherHost())
	t.sa.SetState(StateConnecting)

	if t.retry >= MaxRetries {
		level.Error(t.log).Log("msg", "giving up after retries", "retries", MaxRetries)
		return Failed
	}

	// when retrying after INVALID_KE_PAYLOAD we already have one
	if t.ke == nil {
		t.keMethod = protocol.KE_NONE
		if t.oldSa != nil && t.sa.Settings.PreferPreviousDhGroup {
			// reuse the group of the SA being rekeyed
			if proposal := t.oldSa.Proposal(); proposal != nil {
				if group, ok := proposal.Algorithm(protocol.TRANSFORM_TYPE_KE); ok {
					t.keMethod = protocol.KeTransformId(group)
				}
			}
		}
		if t.keMethod == protocol.KE_NONE {
			group, ok := ikeCfg.Algorithm(protocol.TRANSFORM_TYPE_KE)
			if !ok {
				level.Error(t.log).Log("msg", "no key exchange method configured")
				return Failed
			}
			t.keMethod = protocol.KeTransformId(group)
		}
		ke, err := t.keymat.CreateKeyExchange(t.keMethod)
		if err != nil {
			level.Error(t.log).Log("msg", "configured key exchange method not supported",
				"method", t.keMethod)
			return Failed
		}
		t.ke = ke
	} else if t.ke.Method() != t.keMethod {
		// reset the instance if the group changed (INVALID_KE_PAYLOAD)
		ke, err := t.keymat.CreateKeyExchange(t.keMethod)
		if err != nil {
			level.Error(t.log).Log("msg", "requested key exchange method not supported",
				"method", t.keMethod)
			return Failed
		}
		t.ke = ke
	}

	// generate the nonce only on the first attempt
	if t.myNonce == nil {
		if !t.generateNonce() {
			return Failed
		}
	}

	if t.cookie != nil {
		m.AddNotify(false, protocol.COOKIE, t.cookie)
	}

	if !t.buildPayloads(m) {
		return Failed
	}
	return NeedMore
}

// processPayloadsMultiKe extracts the single KE payload of an
// additional exchange.
func (t *IkeInitTask) processPayloadsMultiKe(m *Message) {
	if kep, ok := m.GetPayload(protocol.PayloadTypeKE).(*protocol.KePayload); ok && kep != nil {
		t.processKePayload(kep)
	} else {
		level.Error(t.log).Log("msg", "KE payload missing in message")
	}
}

func (t *IkeInitTask) processRMultiKe(m *Message) Status {
	if m.ExchangeType() == t.exchangeTypeMultiKe() {
		t.processPayloadsMultiKe(m)
	}
	return NeedMore
}

func (t *IkeInitTask) processR(m *Message) Status {
	level.Info(t.log).Log("msg", "peer is initiating an IKE_SA", "from", m.GetSource())
	t.sa.SetState(StateConnecting)
	t.sa.SetOtherHost(m.GetSource())

	// adopt the initiator spi; on a rekey it arrives inside the
	// proposal instead
	if t.oldSa == nil {
		t.sa.ID().SpiI = append(protocol.Spi{}, m.IkeHeader.SpiI...)
	}

	if !t.generateNonce() {
		return Failed
	}

	t.processPayloads(m)

	return NeedMore
}

// deriveKeys feeds the completed exchanges into the keymat. oldSa is
// the predecessor whose SK_d seeds the derivation; during initial
// multi-KE chains it is our own SA.
func (t *IkeInitTask) deriveKeys(oldSa *IkeSa, nonceI, nonceR []byte) bool {
	kes := t.kes
	if kes == nil {
		kes = []crypto.KeyExchange{t.ke}
	}
	var prfID protocol.PrfTransformId
	var skD []byte
	if oldSa != nil {
		prfID, skD = oldSa.Keymat().SkD()
	}
	err := t.keymat.DeriveIkeKeys(t.proposal, kes, nonceI, nonceR, *t.sa.ID(), prfID, skD)
	if err != nil {
		level.Error(t.log).Log("msg", "key derivation failed", "err", err)
		return false
	}
	var eventOld *IkeSa
	if len(skD) > 0 {
		eventOld = oldSa
	}
	t.sa.Bus.IkeKeys(IkeKeysEvent{
		Sa:     t.sa,
		Kes:    kes,
		NonceI: nonceI,
		NonceR: nonceR,
		OldSa:  eventOld,
	})
	return true
}

// keyExchangeDone advances the plan after one completed exchange and
// derives keys: during a rekey once nothing is pending, during the
// initial establishment after every exchange.
func (t *IkeInitTask) keyExchangeDone(nonceI, nonceR []byte) Status {
	var oldSa *IkeSa

	t.keyExchanges[t.keIndex].done = true
	t.keIndex++
	additionalKe := t.additionalKeyExchangeRequired()

	if t.oldSa != nil {
		// during rekeying all performed exchanges are kept...
		t.kes = append(t.kes, t.ke)
		t.ke = nil

		if !additionalKe {
			// ...and keys derive only when all are done
			oldSa = t.oldSa
		}
	} else {
		// key derivation for additional exchanges works like a rekey,
		// so our own SA provides SK_d
		oldSa = t.sa
	}
	if oldSa != nil && !t.deriveKeys(oldSa, nonceI, nonceR) {
		return Failed
	}
	if additionalKe {
		return NeedMore
	}
	return Success
}

func (t *IkeInitTask) postBuildRIntermediate(m *Message) Status {
	return t.keyExchangeDone(t.otherNonce, t.myNonce)
}

func (t *IkeInitTask) buildRMultiKe(m *Message) Status {
	status := NeedMore

	if t.ke == nil {
		m.AddNotify(false, protocol.INVALID_SYNTAX, nil)
		return Failed
	}
	if t.keFailed {
		m.AddNotify(false, protocol.NO_PROPOSAL_CHOSEN, nil)
		return Failed
	}
	if !t.buildPayloadsMultiKe(m) {
		return Failed
	}

	if t.oldSa != nil {
		status = t.keyExchangeDone(t.otherNonce, t.myNonce)
		if status == Failed {
			m.AddNotify(false, protocol.NO_PROPOSAL_CHOSEN, nil)
			return Failed
		}
	} else {
		// derive keys for IKE_INTERMEDIATE in PostBuild, otherwise
		// the response would be signed with the new keys
		t.postBuildFn = t.postBuildRIntermediate
	}
	return status
}

func (t *IkeInitTask) buildR(m *Message) Status {
	// check if we have everything we need
	if t.proposal == nil || len(t.otherNonce) == 0 || len(t.myNonce) == 0 {
		level.Error(t.log).Log("msg", "received proposals unacceptable")
		m.AddNotify(true, protocol.NO_PROPOSAL_CHOSEN, nil)
		return Failed
	}

	// check whether the client should be sent to another gateway
	if t.oldSa == nil && t.sa.SupportsExtension(ExtIkeRedirection) && t.sa.Redirects != nil {
		if gw, redirect := t.sa.Redirects.RedirectOnInit(t.sa); redirect {
			level.Info(t.log).Log("msg", "redirecting peer", "to", gw.String())
			m.AddNotify(true, protocol.REDIRECT, protocol.RedirectData(gw, t.otherNonce))
			return Failed
		}
	}

	if t.ke == nil || !t.proposal.HasTransform(protocol.TRANSFORM_TYPE_KE, uint16(t.keMethod)) {
		if group, ok := t.proposal.Algorithm(protocol.TRANSFORM_TYPE_KE); ok &&
			protocol.KeTransformId(group) != t.keMethod {
			level.Info(t.log).Log("msg", "KE method unacceptable, requesting other",
				"peer", t.keMethod, "requested", protocol.KeTransformId(group))
			t.keMethod = protocol.KeTransformId(group)
			data := make([]byte, 2)
			packets.WriteB16(data, 0, group)
			m.AddNotify(false, protocol.INVALID_KE_PAYLOAD, data)
		} else {
			level.Error(t.log).Log("msg", "no acceptable proposal found")
			m.AddNotify(true, protocol.NO_PROPOSAL_CHOSEN, nil)
		}
		return Failed
	}

	if t.keFailed {
		level.Error(t.log).Log("msg", "applying KE public value failed")
		m.AddNotify(true, protocol.NO_PROPOSAL_CHOSEN, nil)
		return Failed
	}

	if !t.buildPayloads(m) {
		m.AddNotify(true, protocol.NO_PROPOSAL_CHOSEN, nil)
		return Failed
	}

	// the initial response is not integrity protected, so keys derive
	// right here; intermediate responses defer to PostBuild instead
	switch t.keyExchangeDone(t.otherNonce, t.myNonce) {
	case Failed:
		m.AddNotify(true, protocol.NO_PROPOSAL_CHOSEN, nil)
		return Failed
	case NeedMore:
		// use the other exchange type for additional key exchanges
		t.build = t.buildRMultiKe
		t.process = t.processRMultiKe
		return NeedMore
	default:
	}
	return Success
}

// raiseAlerts maps received notify errors onto bus alerts.
func (t *IkeInitTask) raiseAlerts(nt protocol.NotificationType) {
	switch nt {
	case protocol.NO_PROPOSAL_CHOSEN:
		t.sa.Bus.Alert(AlertProposalMismatchIke, t.sa.IkeCfg().ProposalList())
	default:
	}
}

// preProcessI rejects bad responses before any state changes.
func (t *IkeInitTask) preProcessI(m *Message) Status {
	for _, ns := range m.Payloads.GetNotifications() {
		switch ns.NotificationType {
		case protocol.COOKIE:
			if t.cookie != nil && bytes.Equal(ns.Data, t.cookie) {
				level.Error(t.log).Log("msg", "ignore response with duplicate COOKIE notify")
				return Failed
			}
		case protocol.REDIRECT:
			if t.oldSa != nil {
				break
			}
			gw, nonce, err := protocol.ParseRedirectData(ns.Data)
			if err != nil || gw == nil || !bytes.Equal(nonce, t.myNonce) {
				level.Error(t.log).Log("msg", "received invalid REDIRECT notify")
				return Failed
			}
			return Success
		default:
		}
	}
	return Success
}

func (t *IkeInitTask) postProcessIIntermediate(m *Message) Status {
	return t.keyExchangeDone(t.myNonce, t.otherNonce)
}

func (t *IkeInitTask) processIMultiKe(m *Message) Status {
	status := NeedMore

	t.processPayloadsMultiKe(m)

	if t.keFailed {
		return Failed
	}

	if t.oldSa != nil {
		status = t.keyExchangeDone(t.myNonce, t.otherNonce)
	} else {
		// derive keys for IKE_INTERMEDIATE in PostProcess, otherwise
		// the exchange authentication would use the wrong keys
		t.postProcessFn = t.postProcessIIntermediate
	}
	return status
}

func (t *IkeInitTask) processI(m *Message) Status {
	// check for erroneous notifies
	for _, ns := range m.Payloads.GetNotifications() {
		switch nt := ns.NotificationType; nt {
		case protocol.INVALID_KE_PAYLOAD:
			badGroup := t.keMethod
			group, err := ns.ReadGroup()
			if err != nil {
				level.Error(t.log).Log("msg", "received invalid INVALID_KE_PAYLOAD notify")
				return Failed
			}
			t.keMethod = group
			level.Info(t.log).Log("msg", "peer didn't accept key exchange method",
				"sent", badGroup, "requested", t.keMethod)
			if t.oldSa == nil {
				// reset the IKE_SA unless rekeying
				t.sa.Reset(false)
			}
			t.retry++
			return NeedMore

		case protocol.NAT_DETECTION_SOURCE_IP, protocol.NAT_DETECTION_DESTINATION_IP:
			// handled by the NAT detection task

		case protocol.MULTIPLE_AUTH_SUPPORTED:
			// handled by the authentication task

		case protocol.COOKIE:
			t.cookie = append([]byte{}, ns.Data...)
			t.sa.Reset(false)
			level.Debug(t.log).Log("msg", "received COOKIE notify")
			t.retry++
			return NeedMore

		case protocol.REDIRECT:
			if t.oldSa != nil {
				level.Info(t.log).Log("msg", "received REDIRECT notify during rekeying, ignored")
				break
			}
			gw, _, err := protocol.ParseRedirectData(ns.Data)
			if err != nil {
				return Failed
			}
			if t.sa.HandleRedirect(gw) {
				return NeedMore
			}
			return Failed

		default:
			if nt.IsError() {
				level.Error(t.log).Log("msg", "received notify error", "notify", nt)
				t.raiseAlerts(nt)
				return Failed
			}
			level.Debug(t.log).Log("msg", "received notify", "notify", nt)
		}
	}

	// adopt the responder spi; on a rekey it arrives inside the
	// proposal instead
	if t.oldSa == nil && !SpiIsZero(m.IkeHeader.SpiR) {
		t.sa.ID().SpiR = append(protocol.Spi{}, m.IkeHeader.SpiR...)
	}

	t.processPayloads(m)

	// check if we have everything
	if t.proposal == nil || len(t.otherNonce) == 0 || len(t.myNonce) == 0 {
		level.Error(t.log).Log("msg", "peer's proposal selection invalid")
		return Failed
	}

	if !t.proposal.HasTransform(protocol.TRANSFORM_TYPE_KE, uint16(t.keMethod)) {
		level.Error(t.log).Log("msg", "peer's KE method selection invalid")
		return Failed
	}

	if t.keFailed {
		level.Error(t.log).Log("msg", "applying KE public value failed")
		return Failed
	}

	status := t.keyExchangeDone(t.myNonce, t.otherNonce)
	if status == NeedMore {
		// use the other exchange type for additional key exchanges
		t.build = t.buildIMultiKe
		t.process = t.processIMultiKe
	}
	return status
}
