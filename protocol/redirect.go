package protocol

import (
	"net"

	"github.com/msgboxio/packets"
)

// RFC 5685 gateway identity blob, carried in REDIRECT and
// REDIRECTED_FROM notifies.
//
//     0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//    +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//    | GW Ident Type | GW Ident Len  |                               |
//    +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+                               |
//    ~                   New Responder GW Identity                   ~
//    |                                                               |
//    +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//    |                                                               |
//    ~                        Nonce Data                             ~
//    |                                                               |
//    +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
// REDIRECTED_FROM carries no nonce.

type GwIdentType uint8

const (
	GW_IPV4 GwIdentType = 1
	GW_IPV6 GwIdentType = 2
	GW_FQDN GwIdentType = 3
)

// GwIdentity names a redirect gateway.
type GwIdentity struct {
	Type GwIdentType
	IP   net.IP // GW_IPV4 / GW_IPV6
	FQDN string // GW_FQDN
}

// GwIdentityFromAddr builds an identity from a gateway socket address.
func GwIdentityFromAddr(addr net.Addr) *GwIdentity {
	ip := AddrToIP(addr)
	if ip == nil {
		return nil
	}
	if ip4 := ip.To4(); ip4 != nil {
		return &GwIdentity{Type: GW_IPV4, IP: ip4}
	}
	return &GwIdentity{Type: GW_IPV6, IP: ip}
}

func (gw *GwIdentity) String() string {
	if gw.Type == GW_FQDN {
		return gw.FQDN
	}
	return gw.IP.String()
}

func (gw *GwIdentity) identData() []byte {
	switch gw.Type {
	case GW_IPV4:
		return gw.IP.To4()
	case GW_IPV6:
		return gw.IP.To16()
	default:
		return []byte(gw.FQDN)
	}
}

// RedirectData encodes a gateway identity plus an optional echoed
// nonce into notify data.
func RedirectData(gw *GwIdentity, nonce []byte) []byte {
	ident := gw.identData()
	b := make([]byte, 2)
	packets.WriteB8(b, 0, uint8(gw.Type))
	packets.WriteB8(b, 1, uint8(len(ident)))
	b = append(b, ident...)
	return append(b, nonce...)
}

// ParseRedirectData decodes notify data into a gateway identity and
// the trailing nonce, if any.
func ParseRedirectData(b []byte) (*GwIdentity, []byte, error) {
	if len(b) < 2 {
		return nil, nil, ErrF(ERR_INVALID_SYNTAX, "redirect data too small: %d", len(b))
	}
	it, _ := packets.ReadB8(b, 0)
	identLen, _ := packets.ReadB8(b, 1)
	if len(b) < 2+int(identLen) {
		return nil, nil, ErrF(ERR_INVALID_SYNTAX, "redirect identity truncated: %d < %d", len(b)-2, identLen)
	}
	ident := b[2 : 2+int(identLen)]
	nonce := append([]byte{}, b[2+int(identLen):]...)
	gw := &GwIdentity{Type: GwIdentType(it)}
	switch gw.Type {
	case GW_IPV4:
		if identLen != net.IPv4len {
			return nil, nil, ErrF(ERR_INVALID_SYNTAX, "bad IPv4 gateway length: %d", identLen)
		}
		gw.IP = append(net.IP{}, ident...)
	case GW_IPV6:
		if identLen != net.IPv6len {
			return nil, nil, ErrF(ERR_INVALID_SYNTAX, "bad IPv6 gateway length: %d", identLen)
		}
		gw.IP = append(net.IP{}, ident...)
	case GW_FQDN:
		if identLen == 0 {
			return nil, nil, ErrF(ERR_INVALID_SYNTAX, "empty gateway FQDN")
		}
		gw.FQDN = string(ident)
	default:
		return nil, nil, ErrF(ERR_INVALID_SYNTAX, "unknown gateway identity type: %d", it)
	}
	return gw, nonce, nil
}

// AddrToIP extracts the IP of a UDP or raw IP address.
func AddrToIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP
	case *net.IPAddr:
		return a.IP
	}
	if host, _, err := net.SplitHostPort(addr.String()); err == nil {
		return net.ParseIP(host)
	}
	return nil
}
