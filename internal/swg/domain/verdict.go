package domain

import (
	"fmt"
	"strings"
)

// Verdict is the final allow/block decision returned for a request.
//
// allowed - forward the request unmodified
// blocked - substitute the block page for the real response
type Verdict uint8

const (
	// VerdictAllowed passes the request through to its destination.
	VerdictAllowed Verdict = iota
	// VerdictBlocked substitutes the block page for the response.
	VerdictBlocked
)

// ErrInvalidPolicyValue is returned when a policy file maps a category to a
// value other than "allowed" or "blocked". Unknown values are rejected, never
// silently coerced.
var ErrInvalidPolicyValue = fmt.Errorf("invalid policy value")

// String returns the stable wire representation of the verdict, matching the
// values used in the policy file.
func (v Verdict) String() string {
	switch v {
	case VerdictAllowed:
		return "allowed"
	case VerdictBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("Verdict(%d)", v)
	}
}

// IsBlocked is a convenience accessor.
func (v Verdict) IsBlocked() bool { return v == VerdictBlocked }

// ParseVerdict converts a policy file value into a Verdict.
// Accepts: "allowed", "blocked" (case-insensitive). Any other value returns
// ErrInvalidPolicyValue.
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allowed":
		return VerdictAllowed, nil
	case "blocked":
		return VerdictBlocked, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPolicyValue, s)
	}
}

// MarshalText implements encoding.TextMarshaler so verdicts round-trip through
// the JSON policy and activity files as their string form.
func (v Verdict) MarshalText() ([]byte, error) {
	switch v {
	case VerdictAllowed, VerdictBlocked:
		return []byte(v.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidPolicyValue, v)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
