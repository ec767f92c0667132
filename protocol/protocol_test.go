package protocol

import (
	"bytes"
	"net"
	"testing"
)

func testProposal() *SaProposal {
	return &SaProposal{
		IsLast:     true,
		Number:     1,
		ProtocolID: IKE,
		SaTransforms: []*SaTransform{
			{Transform: Transform{Type: TRANSFORM_TYPE_ENCR, TransformId: uint16(AEAD_AES_GCM_16)}, KeyLength: 256},
			{Transform: Transform{Type: TRANSFORM_TYPE_PRF, TransformId: uint16(PRF_HMAC_SHA2_256)}},
			{Transform: Transform{Type: TRANSFORM_TYPE_KE, TransformId: uint16(CURVE_25519)}},
			{Transform: Transform{Type: TRANSFORM_TYPE_ADDKE1, TransformId: uint16(MLKEM_768)}},
		},
	}
}

func roundTrip(t *testing.T, p Payload, fresh func(h *PayloadHeader) Payload) Payload {
	t.Helper()
	body := p.Encode()
	hdr := p.Header()
	hdr.PayloadLength = uint16(len(body))
	dec := fresh(hdr)
	if err := dec.Decode(body); err != nil {
		t.Fatalf("decode of %s failed: %v", p.Type(), err)
	}
	return dec
}

func TestSaPayloadRoundTrip(t *testing.T) {
	sa := &SaPayload{
		PayloadHeader: &PayloadHeader{},
		Proposals:     Proposals{testProposal()},
	}
	dec := roundTrip(t, sa, func(h *PayloadHeader) Payload {
		return &SaPayload{PayloadHeader: h}
	}).(*SaPayload)
	if len(dec.Proposals) != 1 {
		t.Fatalf("lost proposals: %d", len(dec.Proposals))
	}
	got, want := dec.Proposals[0], testProposal()
	if len(got.SaTransforms) != len(want.SaTransforms) {
		t.Fatalf("lost transforms: %d != %d", len(got.SaTransforms), len(want.SaTransforms))
	}
	for i := range got.SaTransforms {
		if !got.SaTransforms[i].IsEqual(want.SaTransforms[i]) {
			t.Errorf("transform %d differs: %+v != %+v", i, got.SaTransforms[i], want.SaTransforms[i])
		}
	}
	if got.ProtocolID != IKE || got.Number != 1 || !got.IsLast {
		t.Errorf("proposal header differs: %+v", got)
	}
}

func TestKePayloadRoundTrip(t *testing.T) {
	// leading zero octets must survive
	keyData := append([]byte{0, 0, 1}, bytes.Repeat([]byte{0xab}, 61)...)
	ke := &KePayload{
		PayloadHeader: &PayloadHeader{},
		KeTransformId: ECP_256,
		KeyData:       keyData,
	}
	dec := roundTrip(t, ke, func(h *PayloadHeader) Payload {
		return &KePayload{PayloadHeader: h}
	}).(*KePayload)
	if dec.KeTransformId != ECP_256 {
		t.Errorf("method lost: %s", dec.KeTransformId)
	}
	if !bytes.Equal(dec.KeyData, keyData) {
		t.Error("key data mangled")
	}
}

func TestKePayloadRejects(t *testing.T) {
	ke := &KePayload{PayloadHeader: &PayloadHeader{}}
	if err := ke.Decode([]byte{0, 19}); err == nil {
		t.Error("truncated KE payload accepted")
	}
	if err := ke.Decode([]byte{0, 19, 0, 0}); err == nil {
		t.Error("empty KE key data accepted")
	}
}

func TestNoncePayloadRoundTrip(t *testing.T) {
	nonce := bytes.Repeat([]byte{0x5a}, 32)
	nonce[0] = 0 // leading zero preserved
	np := &NoncePayload{PayloadHeader: &PayloadHeader{}, Nonce: nonce}
	dec := roundTrip(t, np, func(h *PayloadHeader) Payload {
		return &NoncePayload{PayloadHeader: h}
	}).(*NoncePayload)
	if !bytes.Equal(dec.Nonce, nonce) {
		t.Error("nonce mangled")
	}
}

func TestNoncePayloadBounds(t *testing.T) {
	np := &NoncePayload{PayloadHeader: &PayloadHeader{}}
	if err := np.Decode(bytes.Repeat([]byte{1}, 15)); err == nil {
		t.Error("short nonce accepted")
	}
	if err := np.Decode(bytes.Repeat([]byte{1}, 257)); err == nil {
		t.Error("long nonce accepted")
	}
}

func TestNotifyPayloadRoundTrip(t *testing.T) {
	n := &NotifyPayload{
		PayloadHeader:    &PayloadHeader{},
		ProtocolID:       IKE,
		NotificationType: INVALID_KE_PAYLOAD,
		Data:             []byte{0x00, 0x14},
	}
	dec := roundTrip(t, n, func(h *PayloadHeader) Payload {
		return &NotifyPayload{PayloadHeader: h}
	}).(*NotifyPayload)
	if dec.NotificationType != INVALID_KE_PAYLOAD {
		t.Errorf("type lost: %s", dec.NotificationType)
	}
	group, err := dec.ReadGroup()
	if err != nil {
		t.Fatal(err)
	}
	if group != ECP_384 {
		t.Errorf("group lost: %s", group)
	}
}

func TestPayloadChainRoundTrip(t *testing.T) {
	pl := MakePayloads()
	pl.Add(&SaPayload{PayloadHeader: &PayloadHeader{}, Proposals: Proposals{testProposal()}})
	pl.Add(&KePayload{PayloadHeader: &PayloadHeader{}, KeTransformId: CURVE_25519,
		KeyData: bytes.Repeat([]byte{1}, 32)})
	pl.Add(&NoncePayload{PayloadHeader: &PayloadHeader{}, Nonce: bytes.Repeat([]byte{2}, 32)})
	pl.Add(&NotifyPayload{PayloadHeader: &PayloadHeader{},
		NotificationType: IKEV2_FRAGMENTATION_SUPPORTED})

	b := EncodePayloads(pl)
	dec, err := DecodePayloads(b, pl.Array[0].Type())
	if err != nil {
		t.Fatal(err)
	}
	if len(dec.Array) != 4 {
		t.Fatalf("payload count: %d", len(dec.Array))
	}
	if dec.Get(PayloadTypeSA) == nil || dec.Get(PayloadTypeKE) == nil ||
		dec.Get(PayloadTypeNonce) == nil || dec.GetNotification(IKEV2_FRAGMENTATION_SUPPORTED) == nil {
		t.Error("payloads missing after round trip")
	}
}

func TestPromoteTransform(t *testing.T) {
	prop := &SaProposal{
		ProtocolID: IKE,
		SaTransforms: []*SaTransform{
			{Transform: Transform{Type: TRANSFORM_TYPE_ENCR, TransformId: uint16(ENCR_AES_CBC)}, KeyLength: 256},
			{Transform: Transform{Type: TRANSFORM_TYPE_KE, TransformId: uint16(ECP_256)}},
			{Transform: Transform{Type: TRANSFORM_TYPE_KE, TransformId: uint16(ECP_384)}},
			{Transform: Transform{Type: TRANSFORM_TYPE_KE, TransformId: uint16(MODP_2048)}},
		},
	}
	if !prop.PromoteTransform(TRANSFORM_TYPE_KE, uint16(MODP_2048)) {
		t.Fatal("transform not found")
	}
	var kes []uint16
	for _, tr := range prop.SaTransforms {
		if tr.Transform.Type == TRANSFORM_TYPE_KE {
			kes = append(kes, tr.Transform.TransformId)
		}
	}
	want := []uint16{uint16(MODP_2048), uint16(ECP_256), uint16(ECP_384)}
	for i := range want {
		if kes[i] != want[i] {
			t.Fatalf("bad KE order after promote: %v", kes)
		}
	}
	if prop.SaTransforms[0].Transform.Type != TRANSFORM_TYPE_ENCR {
		t.Error("promote crossed transform types")
	}
	if prop.PromoteTransform(TRANSFORM_TYPE_KE, uint16(CURVE_25519)) {
		t.Error("promoted a method the proposal does not carry")
	}
}

func TestRedirectDataRoundTrip(t *testing.T) {
	nonce := bytes.Repeat([]byte{7}, 32)
	gw := &GwIdentity{Type: GW_IPV4, IP: net.IPv4(10, 0, 0, 2).To4()}
	data := RedirectData(gw, nonce)
	got, gotNonce, err := ParseRedirectData(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != GW_IPV4 || !got.IP.Equal(gw.IP) {
		t.Errorf("gateway mangled: %+v", got)
	}
	if !bytes.Equal(gotNonce, nonce) {
		t.Error("echoed nonce mangled")
	}

	fq := &GwIdentity{Type: GW_FQDN, FQDN: "gw.example.org"}
	got, gotNonce, err = ParseRedirectData(RedirectData(fq, nil))
	if err != nil {
		t.Fatal(err)
	}
	if got.FQDN != fq.FQDN || len(gotNonce) != 0 {
		t.Errorf("FQDN gateway mangled: %+v", got)
	}
}

func TestRedirectDataRejects(t *testing.T) {
	if _, _, err := ParseRedirectData([]byte{1}); err == nil {
		t.Error("truncated redirect data accepted")
	}
	if _, _, err := ParseRedirectData([]byte{1, 8, 1, 2, 3, 4}); err == nil {
		t.Error("truncated gateway identity accepted")
	}
	if _, _, err := ParseRedirectData([]byte{9, 4, 1, 2, 3, 4}); err == nil {
		t.Error("unknown identity type accepted")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := &IkeHeader{
		SpiI:         bytes.Repeat([]byte{1}, 8),
		SpiR:         bytes.Repeat([]byte{2}, 8),
		NextPayload:  PayloadTypeSA,
		MajorVersion: IKEV2_MAJOR_VERSION,
		MinorVersion: IKEV2_MINOR_VERSION,
		ExchangeType: IKE_INTERMEDIATE,
		Flags:        INITIATOR,
		MsgID:        1,
		MsgLength:    IKE_HEADER_LEN,
	}
	dec, err := DecodeIkeHeader(h.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if dec.ExchangeType != IKE_INTERMEDIATE || !dec.Flags.IsInitiator() ||
		dec.MsgID != 1 || !bytes.Equal(dec.SpiI, h.SpiI) {
		t.Errorf("header mangled: %+v", dec)
	}
}
