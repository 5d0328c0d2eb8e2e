package domain

import "strings"

// Category is the label assigned to a domain by the categorization service.
// The vocabulary is open-ended: new labels appear as the service produces
// them, so a Category is treated as an opaque key into the policy table
// rather than an enum.
type Category string

// Normalized returns the category trimmed of surrounding whitespace. Labels
// are otherwise preserved verbatim, including case, because the policy file
// is operator-edited and must match what the service returned.
func (c Category) Normalized() Category {
	return Category(strings.TrimSpace(string(c)))
}

// IsZero reports whether the category is empty after normalization.
func (c Category) IsZero() bool { return c.Normalized() == "" }
