package domain

import (
	"fmt"
	"time"
)

// ActivityRecord is the append-only audit record emitted for every request
// reaching the enforcement gateway, one per decision.
type ActivityRecord struct {
	// ID uniquely identifies the decision for correlation across sinks.
	ID string `json:"id"`
	// Domain is the normalized destination the decision applies to.
	Domain string `json:"domain"`
	// Category is the label the domain resolved to (or the fallback label
	// when classification failed).
	Category Category `json:"category"`
	// Verdict is the decision returned to the transport.
	Verdict Verdict `json:"verdict"`
	// CacheHit reports whether the category came from the durable cache.
	CacheHit bool `json:"cacheHit"`
	// Latency is the end-to-end wall-clock time spent deciding.
	Latency time.Duration `json:"latency"`
	// OracleLatency is the portion spent waiting on the categorization
	// service; zero on the cache-hit path.
	OracleLatency time.Duration `json:"oracleLatency,omitempty"`
	// Timestamp is when the decision completed.
	Timestamp time.Time `json:"timestamp"`
	// ErrorKind is set when an internal failure shaped the decision.
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
}

// Validate checks the ActivityRecord for required fields.
func (r ActivityRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("activity record id must not be empty")
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("activity record timestamp must be set")
	}
	return nil
}
