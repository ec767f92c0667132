package protocol

import (
	"github.com/msgboxio/packets"
)

//   Proposal Substructure

func (prop *SaProposal) IsSpiSizeCorrect(spiSize int) bool {
	switch prop.ProtocolID {
	case IKE:
		if spiSize == 8 || spiSize == 0 {
			return true
		}
	case ESP, AH:
		if spiSize == 4 {
			return true
		}
	}
	return false
}

func decodeProposal(b []byte) (prop *SaProposal, used int, err error) {
	if len(b) < MIN_LEN_PROPOSAL {
		err = ErrF(ERR_INVALID_SYNTAX, "proposal too small %d < %d", len(b), MIN_LEN_PROPOSAL)
		return
	}
	prop = &SaProposal{}
	if last, _ := packets.ReadB8(b, 0); last == 0 {
		prop.IsLast = true
	}
	propLength, _ := packets.ReadB16(b, 2)
	prop.Number, _ = packets.ReadB8(b, 4)
	pID, _ := packets.ReadB8(b, 5)
	prop.ProtocolID = ProtocolID(pID)
	spiSize, _ := packets.ReadB8(b, 6)
	numTransforms, _ := packets.ReadB8(b, 7)
	// variable parts
	used = MIN_LEN_PROPOSAL + int(spiSize)
	if len(b) < used {
		err = ErrF(ERR_INVALID_SYNTAX, "proposal length too small %d < %d", len(b), used)
		return
	}
	prop.Spi = append([]byte{}, b[MIN_LEN_PROPOSAL:used]...)
	if (int(propLength) < MIN_LEN_PROPOSAL) ||
		(int(propLength) < used) {
		err = ErrF(ERR_INVALID_SYNTAX, "proposal length too small %d < %d", propLength, MIN_LEN_PROPOSAL)
		return
	}
	if len(b) < int(propLength) {
		err = ErrF(ERR_INVALID_SYNTAX, "invalid length of proposal %d < %d", len(b), propLength)
		return
	}
	b = b[used:int(propLength)]
	for len(b) > 0 {
		trans, usedT, errT := decodeTransform(b)
		if errT != nil {
			err = errT
			return
		}
		prop.SaTransforms = append(prop.SaTransforms, trans)
		b = b[usedT:]
		if trans.IsLast {
			if len(b) > 0 {
				err = ErrF(ERR_INVALID_SYNTAX, "extra bytes at end of proposal: %d", len(b))
				return
			}
			break
		}
	}
	if len(prop.SaTransforms) != int(numTransforms) {
		err = ErrF(ERR_INVALID_SYNTAX, "incorrect number of transforms: %d != %d",
			len(prop.SaTransforms), numTransforms)
		return
	}
	used = int(propLength)
	return
}

func (prop *SaProposal) encode(number int, isLast bool) (b []byte) {
	b = make([]byte, MIN_LEN_PROPOSAL)
	if !isLast {
		packets.WriteB8(b, 0, 2)
	}
	packets.WriteB8(b, 4, prop.Number)
	packets.WriteB8(b, 5, uint8(prop.ProtocolID))
	packets.WriteB8(b, 6, uint8(len(prop.Spi)))
	packets.WriteB8(b, 7, uint8(len(prop.SaTransforms)))
	b = append(b, prop.Spi...)
	for idx, tr := range prop.SaTransforms {
		isLast := idx == len(prop.SaTransforms)-1
		b = append(b, tr.encode(isLast)...)
	}
	packets.WriteB16(b, 2, uint16(len(b)))
	return
}

// Clone returns a deep copy; negotiation mutates proposals (SPI,
// transform promotion) and must not write through to config.
func (prop *SaProposal) Clone() *SaProposal {
	cp := &SaProposal{
		IsLast:     prop.IsLast,
		Number:     prop.Number,
		ProtocolID: prop.ProtocolID,
		Spi:        append([]byte{}, prop.Spi...),
	}
	for _, tr := range prop.SaTransforms {
		trc := *tr
		cp.SaTransforms = append(cp.SaTransforms, &trc)
	}
	return cp
}

// SetSpi replaces the proposal spi.
func (prop *SaProposal) SetSpi(spi []byte) {
	prop.Spi = append([]byte{}, spi...)
}

// Transform returns the first transform of the given type.
func (prop *SaProposal) Transform(t TransformType) (*SaTransform, bool) {
	for _, tr := range prop.SaTransforms {
		if tr.Transform.Type == t {
			return tr, true
		}
	}
	return nil, false
}

// Algorithm returns the id of the first transform of the given type.
func (prop *SaProposal) Algorithm(t TransformType) (uint16, bool) {
	if tr, ok := prop.Transform(t); ok {
		return tr.Transform.TransformId, true
	}
	return 0, false
}

// HasTransform checks for a (type, id) pair anywhere in the proposal.
func (prop *SaProposal) HasTransform(t TransformType, id uint16) bool {
	for _, tr := range prop.SaTransforms {
		if tr.Transform.Type == t && tr.Transform.TransformId == id {
			return true
		}
	}
	return false
}

// PromoteTransform moves the (type, id) transform ahead of all other
// transforms of the same type, so a responder that picks the first
// entry picks the one already in flight. Returns false when the
// proposal does not carry the transform at all.
func (prop *SaProposal) PromoteTransform(t TransformType, id uint16) bool {
	idx := -1
	for i, tr := range prop.SaTransforms {
		if tr.Transform.Type == t && tr.Transform.TransformId == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	promoted := prop.SaTransforms[idx]
	for i := idx; i > 0; i-- {
		prev := prop.SaTransforms[i-1]
		if prev.Transform.Type != t {
			break
		}
		prop.SaTransforms[i] = prev
		idx = i - 1
	}
	prop.SaTransforms[idx] = promoted
	return true
}
