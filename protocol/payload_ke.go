package protocol

import (
	"github.com/msgboxio/packets"
)

func (s *KePayload) Type() PayloadType { return PayloadTypeKE }

func (s *KePayload) Encode() (b []byte) {
	b = make([]byte, 4)
	packets.WriteB16(b, 0, uint16(s.KeTransformId))
	return append(b, s.KeyData...)
}

func (s *KePayload) Decode(b []byte) (err error) {
	// Header has already been decoded
	if len(b) < 4 {
		return ErrF(ERR_INVALID_SYNTAX, "KE payload too small: %d", len(b))
	}
	gn, _ := packets.ReadB16(b, 0)
	s.KeTransformId = KeTransformId(gn)
	// key data is opaque, leading zero octets included
	s.KeyData = append([]byte{}, b[4:]...)
	if len(s.KeyData) == 0 {
		return ErrF(ERR_INVALID_SYNTAX, "KE payload without key data")
	}
	return
}
