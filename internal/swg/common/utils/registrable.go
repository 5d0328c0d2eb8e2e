package utils

import "golang.org/x/net/publicsuffix"

// RegistrableDomain reduces a hostname to its registrable domain (eTLD+1),
// so sub-resources like cdn.example.com and www.example.com classify and
// cache as a single domain. Falls back to the canonical name when the
// public suffix list cannot parse the input (IP literals, single labels).
func RegistrableDomain(name string) string {
	name = CanonicalHostname(name)
	registrable, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		return name
	}
	return registrable
}
