package ike

import (
	"crypto/rand"
	"crypto/sha256"
	"net"

	"github.com/vxconn/ike/protocol"
)

// Stateless responder cookie as specified in
// 2.6. IKE SA SPIs and Cookies
//
// Whether to challenge at all is the receiver's call (it does so
// under load, before creating any state); the task only echoes the
// cookie it was given.

// Version for COOKIE
var cookieVersion []byte

// Secret for COOKIE
var cookieSecret [64]byte

func init() {
	cookieVersion = []byte{0, 0}
	rand.Read(cookieSecret[:])
}

// Cookie computes the challenge for one half-open attempt:
// Cookie = <VersionIDofSecret> | Hash(Ni | IPi | SPIi | <secret>)
func Cookie(nonce []byte, spiI protocol.Spi, remote net.Addr) []byte {
	digest := sha256.New()
	digest.Write(nonce)
	digest.Write(protocol.AddrToIP(remote))
	digest.Write(spiI)
	digest.Write(cookieSecret[:])
	return append(append([]byte{}, cookieVersion...), digest.Sum(nil)...)
}
