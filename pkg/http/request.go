package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig lists the proxies whose forwarding headers are trusted
type IPConfig struct {
	trusted []*net.IPNet
}

// NewIPConfig parses CIDR ranges of trusted proxies. Invalid entries are skipped.
func NewIPConfig(cidrs []string) *IPConfig {
	cfg := &IPConfig{}
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if _, ipNet, err := net.ParseCIDR(cidr); err == nil {
			cfg.trusted = append(cfg.trusted, ipNet)
		}
	}
	return cfg
}

// ExtractClientIP returns the caller's address for audit logs. X-Forwarded-For
// and X-Real-IP are honored only when the direct peer is a trusted proxy.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := remoteAddr(r)

	if config == nil || !config.isTrusted(remoteIP) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}

	return remoteIP
}

func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func (c *IPConfig) isTrusted(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, ipNet := range c.trusted {
		if ipNet.Contains(parsed) {
			return true
		}
	}
	return false
}
