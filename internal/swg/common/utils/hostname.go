package utils

import (
	"net"
	"strings"
)

// CanonicalHostname returns a destination host in canonical form:
// - Scheme prefix removed (transports occasionally hand over full URLs)
// - Port suffix removed
// - Lowercased
// - Trimmed of surrounding whitespace and trailing dots
//
// The result is the unit of classification and caching, so two requests for
// the same destination must always canonicalize identically.
func CanonicalHostname(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, "://"); i >= 0 {
		name = name[i+3:]
	}
	// drop any path component left over from a URL
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[:i]
	}
	if host, _, err := net.SplitHostPort(name); err == nil {
		name = host
	}
	// SplitHostPort leaves bracketed IPv6 literals intact when no port is present
	name = strings.TrimPrefix(name, "[")
	name = strings.TrimSuffix(name, "]")
	name = strings.ToLower(name)
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}
