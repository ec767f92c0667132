package protocol

import (
	"github.com/msgboxio/packets"
)

func (s *NotifyPayload) Type() PayloadType {
	return PayloadTypeN
}

func (s *NotifyPayload) Encode() (b []byte) {
	b = []byte{uint8(s.ProtocolID), uint8(len(s.Spi)), 0, 0}
	packets.WriteB16(b, 2, uint16(s.NotificationType))
	b = append(b, s.Spi...)
	b = append(b, s.Data...)
	return
}

func (s *NotifyPayload) Decode(b []byte) (err error) {
	if len(b) < 4 {
		return ErrF(ERR_INVALID_SYNTAX, "notify too small: %d", len(b))
	}
	pID, _ := packets.ReadB8(b, 0)
	s.ProtocolID = ProtocolID(pID)
	spiLen, _ := packets.ReadB8(b, 1)
	if len(b) < 4+int(spiLen) {
		return ErrF(ERR_INVALID_SYNTAX, "notify spi too small: %d", len(b))
	}
	nType, _ := packets.ReadB16(b, 2)
	s.NotificationType = NotificationType(nType)
	s.Spi = append([]byte{}, b[4:spiLen+4]...)
	s.Data = append([]byte{}, b[spiLen+4:]...)
	return
}

// ReadGroup reads the 16b key exchange method an INVALID_KE_PAYLOAD
// notify carries.
func (s *NotifyPayload) ReadGroup() (KeTransformId, error) {
	if len(s.Data) < 2 {
		return KE_NONE, ErrF(ERR_INVALID_SYNTAX, "notify data too small for a group: %d", len(s.Data))
	}
	gn, _ := packets.ReadB16(s.Data, 0)
	return KeTransformId(gn), nil
}
