package utils

import "testing"

func TestCanonicalHostname(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain host", "example.com", "example.com"},
		{"uppercase", "EXAMPLE.COM", "example.com"},
		{"with port", "example.com:443", "example.com"},
		{"with scheme", "https://example.com", "example.com"},
		{"scheme port and path", "https://Example.com:8443/some/path", "example.com"},
		{"trailing dot", "example.com.", "example.com"},
		{"multiple trailing dots", "example.com..", "example.com"},
		{"surrounding whitespace", "  example.com  ", "example.com"},
		{"subdomain preserved", "www.example.com", "www.example.com"},
		{"ipv4 with port", "192.168.1.1:8080", "192.168.1.1"},
		{"ipv6 with port", "[2001:db8::1]:443", "2001:db8::1"},
		{"ipv6 without port", "[2001:db8::1]", "2001:db8::1"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalHostname(tt.input)
			if got != tt.expected {
				t.Errorf("CanonicalHostname(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"apex", "example.com", "example.com"},
		{"subdomain", "www.example.com", "example.com"},
		{"deep subdomain", "cdn.static.example.com", "example.com"},
		{"co.uk", "www.example.co.uk", "example.co.uk"},
		{"github.io subdomain", "user.github.io", "user.github.io"},
		{"with port and scheme", "https://Media.Example.com:443", "example.com"},
		{"single label fallback", "localhost", "localhost"},
		{"empty fallback", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RegistrableDomain(tt.input)
			if got != tt.expected {
				t.Errorf("RegistrableDomain(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
