package ike

import (
	"testing"

	"github.com/vxconn/ike/protocol"
)

func configWith(proposals ...[]*protocol.SaTransform) *IkeConfig {
	cfg := &IkeConfig{Name: "test"}
	for i, trs := range proposals {
		cfg.Proposals = append(cfg.Proposals, &protocol.SaProposal{
			IsLast:       i == len(proposals)-1,
			Number:       uint8(i + 1),
			ProtocolID:   protocol.IKE,
			SaTransforms: trs,
		})
	}
	return cfg
}

func TestSelectProposalMatch(t *testing.T) {
	cfg := configWith(protocol.IKE_AES_GCM_16_PRF_SHA2_256_ECP_256)
	offer := configWith(protocol.IKE_AES_GCM_16_PRF_SHA2_256_ECP_256).ProposalList()

	sel := cfg.SelectProposal(offer, 0)
	if sel == nil {
		t.Fatal("no proposal selected")
	}
	if alg, _ := sel.Algorithm(protocol.TRANSFORM_TYPE_KE); alg != uint16(protocol.ECP_256) {
		t.Errorf("wrong KE method selected: %d", alg)
	}
	if alg, _ := sel.Algorithm(protocol.TRANSFORM_TYPE_ENCR); alg != uint16(protocol.AEAD_AES_GCM_16) {
		t.Errorf("wrong cipher selected: %d", alg)
	}
}

func TestSelectProposalMismatch(t *testing.T) {
	cfg := configWith(protocol.IKE_AES_GCM_16_PRF_SHA2_256_ECP_256)
	offer := configWith(protocol.IKE_CHACHA20_POLY1305_PRF_SHA2_256_X25519).ProposalList()

	if sel := cfg.SelectProposal(offer, 0); sel != nil {
		t.Fatalf("selected incompatible proposal: %+v", sel)
	}
}

func TestSelectProposalKeepsAddke(t *testing.T) {
	cfg := configWith(protocol.IKE_AES_GCM_16_X25519_MLKEM_768)
	offer := configWith(protocol.IKE_AES_GCM_16_X25519_MLKEM_768).ProposalList()

	sel := cfg.SelectProposal(offer, 0)
	if sel == nil {
		t.Fatal("no proposal selected")
	}
	if alg, ok := sel.Algorithm(protocol.TRANSFORM_TYPE_ADDKE1); !ok || alg != uint16(protocol.MLKEM_768) {
		t.Errorf("ADDKE1 lost in selection: %d", alg)
	}
}

func TestSelectProposalPreference(t *testing.T) {
	// we prefer AES-GCM, the peer offers our second choice first
	cfg := configWith(
		protocol.IKE_AES_GCM_16_PRF_SHA2_256_ECP_256,
		protocol.IKE_AES_CBC_SHA2_256_MODP_2048,
	)
	offer := configWith(
		protocol.IKE_AES_CBC_SHA2_256_MODP_2048,
		protocol.IKE_AES_GCM_16_PRF_SHA2_256_ECP_256,
	).ProposalList()

	sel := cfg.SelectProposal(offer, 0)
	if sel == nil {
		t.Fatal("no proposal selected")
	}
	if alg, _ := sel.Algorithm(protocol.TRANSFORM_TYPE_ENCR); alg != uint16(protocol.AEAD_AES_GCM_16) {
		t.Errorf("configured preference not honored: %d", alg)
	}

	sel = cfg.SelectProposal(offer, PreferSupplied)
	if sel == nil {
		t.Fatal("no proposal selected")
	}
	if alg, _ := sel.Algorithm(protocol.TRANSFORM_TYPE_ENCR); alg != uint16(protocol.ENCR_AES_CBC) {
		t.Errorf("supplied preference not honored: %d", alg)
	}
}

func TestSelectProposalSkipPrivate(t *testing.T) {
	private := []*protocol.SaTransform{
		{Transform: protocol.Transform{Type: protocol.TRANSFORM_TYPE_ENCR, TransformId: 1026}, KeyLength: 256},
		{Transform: protocol.Transform{Type: protocol.TRANSFORM_TYPE_PRF, TransformId: uint16(protocol.PRF_HMAC_SHA2_256)}},
		{Transform: protocol.Transform{Type: protocol.TRANSFORM_TYPE_KE, TransformId: uint16(protocol.ECP_256)}},
	}
	cfg := configWith(private)
	offer := configWith(private).ProposalList()

	if sel := cfg.SelectProposal(offer, SkipPrivate); sel != nil {
		t.Error("private transform selected despite SkipPrivate")
	}
	if sel := cfg.SelectProposal(offer, 0); sel == nil {
		t.Error("private transform refused without SkipPrivate")
	}
}

func TestProposalListIsolation(t *testing.T) {
	cfg := configWith(protocol.IKE_AES_GCM_16_PRF_SHA2_256_ECP_256)
	list := cfg.ProposalList()
	list[0].SetSpi([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	list[0].PromoteTransform(protocol.TRANSFORM_TYPE_KE, uint16(protocol.ECP_256))
	if len(cfg.Proposals[0].Spi) != 0 {
		t.Error("negotiation mutated the configured proposal")
	}
}

func TestConfigAlgorithm(t *testing.T) {
	cfg := configWith(protocol.IKE_AES_GCM_16_PRF_SHA2_256_ECP_256)
	alg, ok := cfg.Algorithm(protocol.TRANSFORM_TYPE_KE)
	if !ok || alg != uint16(protocol.ECP_256) {
		t.Errorf("Algorithm: %d %v", alg, ok)
	}
}
