package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealClientIP returns the client IP used as the rate limit and log key.
// Only r.RemoteAddr is trusted; forwarding headers are ignored because the
// service is reached directly by the gate tablets and admin browsers.
// IPv4-mapped IPv6 addresses are unmapped so both forms share one key.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	host = strings.TrimSpace(host)
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.Unmap().String()
	}
	return host
}
