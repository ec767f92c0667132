package protocol

// named transforms for building proposal lists

var (
	_ENCR_AES_CBC_256 = &SaTransform{
		Transform: Transform{Type: TRANSFORM_TYPE_ENCR, TransformId: uint16(ENCR_AES_CBC)},
		KeyLength: 256,
	}
	_ENCR_AES_GCM_16_256 = &SaTransform{
		Transform: Transform{Type: TRANSFORM_TYPE_ENCR, TransformId: uint16(AEAD_AES_GCM_16)},
		KeyLength: 256,
	}
	_ENCR_CHACHA20_POLY1305 = &SaTransform{
		Transform: Transform{Type: TRANSFORM_TYPE_ENCR, TransformId: uint16(ENCR_CHACHA20_POLY1305)},
	}
	_ENCR_CAMELLIA_CBC_256 = &SaTransform{
		Transform: Transform{Type: TRANSFORM_TYPE_ENCR, TransformId: uint16(ENCR_CAMELLIA_CBC)},
		KeyLength: 256,
	}

	_PRF_HMAC_SHA2_256 = &SaTransform{
		Transform: Transform{Type: TRANSFORM_TYPE_PRF, TransformId: uint16(PRF_HMAC_SHA2_256)},
	}
	_PRF_HMAC_SHA2_384 = &SaTransform{
		Transform: Transform{Type: TRANSFORM_TYPE_PRF, TransformId: uint16(PRF_HMAC_SHA2_384)},
	}

	_AUTH_HMAC_SHA2_256_128 = &SaTransform{
		Transform: Transform{Type: TRANSFORM_TYPE_INTEG, TransformId: uint16(AUTH_HMAC_SHA2_256_128)},
	}

	_KE_MODP_2048 = &SaTransform{
		Transform: Transform{Type: TRANSFORM_TYPE_KE, TransformId: uint16(MODP_2048)},
	}
	_KE_ECP_256 = &SaTransform{
		Transform: Transform{Type: TRANSFORM_TYPE_KE, TransformId: uint16(ECP_256)},
	}
	_KE_ECP_384 = &SaTransform{
		Transform: Transform{Type: TRANSFORM_TYPE_KE, TransformId: uint16(ECP_384)},
	}
	_KE_CURVE_25519 = &SaTransform{
		Transform: Transform{Type: TRANSFORM_TYPE_KE, TransformId: uint16(CURVE_25519)},
	}
	_ADDKE1_MLKEM_768 = &SaTransform{
		Transform: Transform{Type: TRANSFORM_TYPE_ADDKE1, TransformId: uint16(MLKEM_768)},
	}
)

// IKE_AES_GCM_16_PRF_SHA2_256_ECP_256 is the default suite.
var IKE_AES_GCM_16_PRF_SHA2_256_ECP_256 = []*SaTransform{
	_ENCR_AES_GCM_16_256,
	_PRF_HMAC_SHA2_256,
	_KE_ECP_256,
}

// IKE_AES_CBC_SHA2_256_MODP_2048 is the classic non-AEAD suite.
var IKE_AES_CBC_SHA2_256_MODP_2048 = []*SaTransform{
	_ENCR_AES_CBC_256,
	_PRF_HMAC_SHA2_256,
	_AUTH_HMAC_SHA2_256_128,
	_KE_MODP_2048,
}

// IKE_CHACHA20_POLY1305_PRF_SHA2_256_X25519 pairs the AEAD with the
// matching modern curve.
var IKE_CHACHA20_POLY1305_PRF_SHA2_256_X25519 = []*SaTransform{
	_ENCR_CHACHA20_POLY1305,
	_PRF_HMAC_SHA2_256,
	_KE_CURVE_25519,
}

// IKE_CAMELLIA_CBC_SHA2_256_ECP_384 keeps the camellia option alive.
var IKE_CAMELLIA_CBC_SHA2_256_ECP_384 = []*SaTransform{
	_ENCR_CAMELLIA_CBC_256,
	_PRF_HMAC_SHA2_384,
	_AUTH_HMAC_SHA2_256_128,
	_KE_ECP_384,
}

// IKE_AES_GCM_16_X25519_MLKEM_768 is the post-quantum hybrid: X25519
// primary exchange chained with ML-KEM-768 in ADDKE1.
var IKE_AES_GCM_16_X25519_MLKEM_768 = []*SaTransform{
	_ENCR_AES_GCM_16_256,
	_PRF_HMAC_SHA2_256,
	_KE_CURVE_25519,
	_ADDKE1_MLKEM_768,
}
