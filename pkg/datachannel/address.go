// Package datachannel implements the FTP data connection lifecycle:
// PASV/EPSV/PORT/EPRT negotiation, FXP bounce protection, PROT-aware TLS
// wrapping, and the chunked, rate-limited transfer loop.
package datachannel

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint is a parsed data-channel target address, produced by either a
// PORT/EPRT command (active) or discovered from an accepted PASV/EPSV
// connection's remote address (passive).
type Endpoint struct {
	IP   net.IP
	Port int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.IP.String(), strconv.Itoa(e.Port))
}

// ParsePORT parses the classic `h1,h2,h3,h4,p1,p2` argument of the PORT
// command into an IPv4 Endpoint.
func ParsePORT(arg string) (Endpoint, error) {
	fields := strings.Split(strings.TrimSpace(arg), ",")
	if len(fields) != 6 {
		return Endpoint{}, fmt.Errorf("datachannel: PORT wants 6 comma-separated fields, got %d", len(fields))
	}
	octets := make([]byte, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(fields[i])
		if err != nil || v < 0 || v > 255 {
			return Endpoint{}, fmt.Errorf("datachannel: PORT bad octet %q", fields[i])
		}
		octets[i] = byte(v)
	}
	p1, err1 := strconv.Atoi(fields[4])
	p2, err2 := strconv.Atoi(fields[5])
	if err1 != nil || err2 != nil || p1 < 0 || p1 > 255 || p2 < 0 || p2 > 255 {
		return Endpoint{}, fmt.Errorf("datachannel: PORT bad port fields %q,%q", fields[4], fields[5])
	}
	return Endpoint{
		IP:   net.IPv4(octets[0], octets[1], octets[2], octets[3]),
		Port: p1*256 + p2,
	}, nil
}

// ParseEPRT parses the RFC 2428 `|family|address|port|` argument of the
// EPRT command. family is 1 for IPv4 or 2 for IPv6.
func ParseEPRT(arg string) (Endpoint, error) {
	arg = strings.TrimSpace(arg)
	if len(arg) < 2 {
		return Endpoint{}, fmt.Errorf("datachannel: EPRT argument too short")
	}
	delim := arg[0]
	parts := strings.Split(arg[1:len(arg)-1], string(delim))
	if len(parts) != 3 {
		return Endpoint{}, fmt.Errorf("datachannel: EPRT wants 3 delimited fields, got %d", len(parts))
	}
	family, addr, portStr := parts[0], parts[1], parts[2]
	if family != "1" && family != "2" {
		return Endpoint{}, fmt.Errorf("datachannel: EPRT unsupported family %q", family)
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return Endpoint{}, fmt.Errorf("datachannel: EPRT invalid address %q", addr)
	}
	if family == "1" && ip.To4() == nil {
		return Endpoint{}, fmt.Errorf("datachannel: EPRT family 1 but address %q is not IPv4", addr)
	}
	if family == "2" && ip.To4() != nil {
		return Endpoint{}, fmt.Errorf("datachannel: EPRT family 2 but address %q is IPv4", addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("datachannel: EPRT bad port %q", portStr)
	}
	return Endpoint{IP: ip, Port: port}, nil
}

// FamilyMatches reports whether ep's IP family matches controlPeer's,
// the check required before honoring an active-mode target.
func FamilyMatches(ep Endpoint, controlPeer net.IP) bool {
	return (ep.IP.To4() != nil) == (controlPeer.To4() != nil)
}

// FormatPASV renders host/port in the dotted PASV reply form
// `(h1,h2,h3,h4,p1,p2)`.
func FormatPASV(ip net.IP, port int) (string, error) {
	v4 := ip.To4()
	if v4 == nil {
		return "", fmt.Errorf("datachannel: PASV requires an IPv4 address, got %s", ip)
	}
	return fmt.Sprintf("(%d,%d,%d,%d,%d,%d)", v4[0], v4[1], v4[2], v4[3], port/256, port%256), nil
}

// FormatEPSV renders the RFC 2428 EPSV reply form `(|||port|)`.
func FormatEPSV(port int) string {
	return fmt.Sprintf("(|||%d|)", port)
}
