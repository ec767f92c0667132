package ike

import (
	"net"

	"github.com/pkg/errors"
	"github.com/vxconn/ike/protocol"
)

// Message is one IKE message being built or processed.
type Message struct {
	IkeHeader *protocol.IkeHeader
	Payloads  *protocol.Payloads

	// addresses as seen by the transport
	LocalAddr, RemoteAddr net.Addr

	Data []byte // original encoded bytes, when decoded off the wire
}

// NewRequest starts an empty request message.
func NewRequest(et protocol.IkeExchangeType, spiI, spiR protocol.Spi, initiator bool, msgID uint32) *Message {
	flags := protocol.IkeFlags(0)
	if initiator {
		flags = protocol.INITIATOR
	}
	return &Message{
		IkeHeader: &protocol.IkeHeader{
			SpiI:         spiI,
			SpiR:         spiR,
			MajorVersion: protocol.IKEV2_MAJOR_VERSION,
			MinorVersion: protocol.IKEV2_MINOR_VERSION,
			ExchangeType: et,
			Flags:        flags,
			MsgID:        msgID,
		},
		Payloads: protocol.MakePayloads(),
	}
}

// NewResponse starts the response to a request.
func NewResponse(req *Message, spiR protocol.Spi) *Message {
	m := &Message{
		IkeHeader: &protocol.IkeHeader{
			SpiI:         req.IkeHeader.SpiI,
			SpiR:         spiR,
			MajorVersion: protocol.IKEV2_MAJOR_VERSION,
			MinorVersion: protocol.IKEV2_MINOR_VERSION,
			ExchangeType: req.IkeHeader.ExchangeType,
			Flags:        protocol.RESPONSE,
			MsgID:        req.IkeHeader.MsgID,
		},
		Payloads: protocol.MakePayloads(),
	}
	m.LocalAddr, m.RemoteAddr = req.RemoteAddr, req.LocalAddr
	return m
}

func (m *Message) ExchangeType() protocol.IkeExchangeType {
	return m.IkeHeader.ExchangeType
}

func (m *Message) SetExchangeType(et protocol.IkeExchangeType) {
	m.IkeHeader.ExchangeType = et
}

// GetSource is the sender address of a received message.
func (m *Message) GetSource() net.Addr { return m.RemoteAddr }

// GetDestination is the receiver address of a received message.
func (m *Message) GetDestination() net.Addr { return m.LocalAddr }

// AddPayload appends a payload.
func (m *Message) AddPayload(p protocol.Payload) {
	m.Payloads.Add(p)
}

// GetPayload returns the first payload of the type, or nil.
func (m *Message) GetPayload(t protocol.PayloadType) protocol.Payload {
	return m.Payloads.Get(t)
}

// AddNotify appends a notify payload with opaque data.
func (m *Message) AddNotify(critical bool, nt protocol.NotificationType, data []byte) {
	m.Payloads.Add(&protocol.NotifyPayload{
		PayloadHeader:    &protocol.PayloadHeader{IsCritical: critical},
		ProtocolID:       protocol.IKE,
		NotificationType: nt,
		Data:             append([]byte{}, data...),
	})
}

// GetNotify returns the first notify of the given type, or nil.
func (m *Message) GetNotify(nt protocol.NotificationType) *protocol.NotifyPayload {
	return m.Payloads.GetNotification(nt)
}

// Encode serialises header and payloads.
func (m *Message) Encode() []byte {
	body := protocol.EncodePayloads(m.Payloads)
	if len(m.Payloads.Array) > 0 {
		m.IkeHeader.NextPayload = m.Payloads.Array[0].Type()
	} else {
		m.IkeHeader.NextPayload = protocol.PayloadTypeNone
	}
	m.IkeHeader.MsgLength = uint32(len(body) + protocol.IKE_HEADER_LEN)
	return append(m.IkeHeader.Encode(), body...)
}

// DecodeMessage parses a full message off the wire.
func DecodeMessage(b []byte) (*Message, error) {
	hdr, err := protocol.DecodeIkeHeader(b)
	if err != nil {
		return nil, err
	}
	if uint32(len(b)) < hdr.MsgLength {
		return nil, errors.Wrapf(protocol.ERR_INVALID_SYNTAX,
			"short message: %d < %d", len(b), hdr.MsgLength)
	}
	payloads, err := protocol.DecodePayloads(b[protocol.IKE_HEADER_LEN:hdr.MsgLength], hdr.NextPayload)
	if err != nil {
		return nil, err
	}
	return &Message{
		IkeHeader: hdr,
		Payloads:  payloads,
		Data:      append([]byte{}, b[:hdr.MsgLength]...),
	}, nil
}
