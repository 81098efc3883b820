package httpx

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the caller address. Forwarding headers are honoured only
// when trustProxy is set. The zero Addr means unknown.
func ClientIP(r *http.Request, trustProxy bool) netip.Addr {
	if trustProxy {
		if ip, ok := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ok {
			return ip
		}
		if ip, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
			return ip.Unmap()
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		return ip.Unmap()
	}
	return netip.Addr{}
}

func parseForwardedIP(raw string) (netip.Addr, bool) {
	if raw == "" {
		return netip.Addr{}, false
	}
	for _, p := range strings.Split(raw, ",") {
		if ip, err := netip.ParseAddr(strings.TrimSpace(p)); err == nil {
			return ip.Unmap(), true
		}
	}
	return netip.Addr{}, false
}
