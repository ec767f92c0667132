package protocol

import "fmt"

func (p ProtocolID) String() string {
	switch p {
	case IKE:
		return "IKE"
	case AH:
		return "AH"
	case ESP:
		return "ESP"
	default:
		return "Unknown"
	}
}

func (t TransformType) String() string {
	switch t {
	case TRANSFORM_TYPE_ENCR:
		return "ENCR"
	case TRANSFORM_TYPE_PRF:
		return "PRF"
	case TRANSFORM_TYPE_INTEG:
		return "INTEG"
	case TRANSFORM_TYPE_KE:
		return "KE"
	case TRANSFORM_TYPE_ESN:
		return "ESN"
	case TRANSFORM_TYPE_ADDKE1, TRANSFORM_TYPE_ADDKE2, TRANSFORM_TYPE_ADDKE3,
		TRANSFORM_TYPE_ADDKE4, TRANSFORM_TYPE_ADDKE5, TRANSFORM_TYPE_ADDKE6,
		TRANSFORM_TYPE_ADDKE7:
		return fmt.Sprintf("ADDKE%d", t-TRANSFORM_TYPE_ADDKE1+1)
	default:
		return "Unknown"
	}
}

func (p PayloadType) String() string {
	switch p {
	case PayloadTypeNone:
		return "None"
	case PayloadTypeSA:
		return "SA"
	case PayloadTypeKE:
		return "KE"
	case PayloadTypeIDi:
		return "IDi"
	case PayloadTypeIDr:
		return "IDr"
	case PayloadTypeAUTH:
		return "AUTH"
	case PayloadTypeNonce:
		return "N(once)"
	case PayloadTypeN:
		return "N"
	case PayloadTypeD:
		return "D"
	case PayloadTypeV:
		return "V"
	case PayloadTypeSK:
		return "SK"
	default:
		return fmt.Sprintf("PayloadType(%d)", uint8(p))
	}
}

func (e IkeExchangeType) String() string {
	switch e {
	case IKE_SA_INIT:
		return "IKE_SA_INIT"
	case IKE_AUTH:
		return "IKE_AUTH"
	case CREATE_CHILD_SA:
		return "CREATE_CHILD_SA"
	case INFORMATIONAL:
		return "INFORMATIONAL"
	case IKE_SESSION_RESUME:
		return "IKE_SESSION_RESUME"
	case IKE_INTERMEDIATE:
		return "IKE_INTERMEDIATE"
	case IKE_FOLLOWUP_KE:
		return "IKE_FOLLOWUP_KE"
	default:
		return fmt.Sprintf("IkeExchangeType(%d)", uint16(e))
	}
}

func (id KeTransformId) String() string {
	switch id {
	case KE_NONE:
		return "KE_NONE"
	case MODP_768:
		return "MODP_768"
	case MODP_1024:
		return "MODP_1024"
	case MODP_1536:
		return "MODP_1536"
	case MODP_2048:
		return "MODP_2048"
	case MODP_3072:
		return "MODP_3072"
	case MODP_4096:
		return "MODP_4096"
	case MODP_6144:
		return "MODP_6144"
	case MODP_8192:
		return "MODP_8192"
	case ECP_256:
		return "ECP_256"
	case ECP_384:
		return "ECP_384"
	case ECP_521:
		return "ECP_521"
	case CURVE_25519:
		return "CURVE_25519"
	case CURVE_448:
		return "CURVE_448"
	case MLKEM_512:
		return "MLKEM_512"
	case MLKEM_768:
		return "MLKEM_768"
	case MLKEM_1024:
		return "MLKEM_1024"
	default:
		return fmt.Sprintf("KeTransformId(%d)", uint16(id))
	}
}

func (n NotificationType) String() string {
	switch n {
	case INVALID_SYNTAX:
		return "INVALID_SYNTAX"
	case NO_PROPOSAL_CHOSEN:
		return "NO_PROPOSAL_CHOSEN"
	case INVALID_KE_PAYLOAD:
		return "INVALID_KE_PAYLOAD"
	case AUTHENTICATION_FAILED:
		return "AUTHENTICATION_FAILED"
	case TEMPORARY_FAILURE:
		return "TEMPORARY_FAILURE"
	case COOKIE:
		return "COOKIE"
	case REDIRECT_SUPPORTED:
		return "REDIRECT_SUPPORTED"
	case REDIRECT:
		return "REDIRECT"
	case REDIRECTED_FROM:
		return "REDIRECTED_FROM"
	case CHILDLESS_IKEV2_SUPPORTED:
		return "CHILDLESS_IKEV2_SUPPORTED"
	case IKEV2_FRAGMENTATION_SUPPORTED:
		return "IKEV2_FRAGMENTATION_SUPPORTED"
	case SIGNATURE_HASH_ALGORITHMS:
		return "SIGNATURE_HASH_ALGORITHMS"
	case USE_PPK:
		return "USE_PPK"
	case INTERMEDIATE_EXCHANGE_SUPPORTED:
		return "INTERMEDIATE_EXCHANGE_SUPPORTED"
	default:
		return fmt.Sprintf("NotificationType(%d)", uint16(n))
	}
}

func (h HashAlgorithmId) String() string {
	switch h {
	case HASH_SHA1:
		return "SHA1"
	case HASH_SHA2_256:
		return "SHA2_256"
	case HASH_SHA2_384:
		return "SHA2_384"
	case HASH_SHA2_512:
		return "SHA2_512"
	case HASH_IDENTITY:
		return "IDENTITY"
	default:
		return fmt.Sprintf("HashAlgorithmId(%d)", uint16(h))
	}
}
