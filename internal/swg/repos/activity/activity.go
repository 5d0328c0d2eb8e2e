// Package activity persists the per-decision audit trail: an append-only
// JSONL sink for line-oriented tooling, and a bolt-backed archive an
// operator can query for recent decisions and fallback counts.
package activity

import "github.com/calloway/swgate/internal/swg/domain"

// Recorder consumes one ActivityRecord per decision. Recording is
// fire-and-forget from the gateway's point of view: sink failures are
// logged by the sink, never surfaced onto the request path.
type Recorder interface {
	Record(rec domain.ActivityRecord)
}

// multiRecorder fans records out to several sinks.
type multiRecorder []Recorder

func (m multiRecorder) Record(rec domain.ActivityRecord) {
	for _, r := range m {
		r.Record(rec)
	}
}

// NewMulti combines recorders into one. Nil entries are skipped.
func NewMulti(recorders ...Recorder) Recorder {
	out := make(multiRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// nopRecorder discards all records.
type nopRecorder struct{}

func (nopRecorder) Record(domain.ActivityRecord) {}

// NewNopRecorder returns a Recorder that discards everything. Useful for
// tests and for deployments that disable auditing.
func NewNopRecorder() Recorder { return nopRecorder{} }
