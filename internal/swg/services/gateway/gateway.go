// Package gateway turns intercepted requests into enforcement decisions.
// It is the single choke point between the proxy transport and the
// classification pipeline: every request produces exactly one verdict and
// one activity record, and no internal failure ever escapes to the caller.
package gateway

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/calloway/swgate/internal/swg/common/clock"
	"github.com/calloway/swgate/internal/swg/common/log"
	"github.com/calloway/swgate/internal/swg/domain"
)

// Options configures a Gateway.
type Options struct {
	// Classifier resolves hosts to categories. Required.
	Classifier DomainClassifier
	// Policy maps categories to verdicts. Required.
	Policy PolicyResolver
	// Activity receives one record per decision. Optional.
	Activity Recorder
	// Clock provides time for latency measurement. Defaults to real time.
	Clock clock.Clock
	// Logger used for decision logging. Defaults to a no-op logger.
	Logger log.Logger
}

// Gateway implements RequestDecider.
type Gateway struct {
	classifier DomainClassifier
	policy     PolicyResolver
	activity   Recorder
	clock      clock.Clock
	logger     log.Logger
}

// New constructs a Gateway from Options.
func New(opts Options) (*Gateway, error) {
	if opts.Classifier == nil {
		return nil, errors.New("gateway requires a classifier")
	}
	if opts.Policy == nil {
		return nil, errors.New("gateway requires a policy resolver")
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Gateway{
		classifier: opts.Classifier,
		policy:     opts.Policy,
		activity:   opts.Activity,
		clock:      opts.Clock,
		logger:     opts.Logger,
	}, nil
}

// Decide classifies the request's destination, resolves the category's
// verdict, and emits the audit record. Classification failures have
// already been folded into a fallback category by the classifier, so
// there is always a verdict to return.
func (g *Gateway) Decide(ctx context.Context, req domain.RequestDescriptor) (domain.Verdict, domain.ActivityRecord) {
	start := g.clock.Now()

	res := g.classifier.Resolve(ctx, req.Host)
	verdict := g.policy.VerdictFor(res.Category)

	rec := domain.ActivityRecord{
		ID:            uuid.NewString(),
		Domain:        res.Domain,
		Category:      res.Category,
		Verdict:       verdict,
		CacheHit:      res.CacheHit,
		Latency:       g.clock.Now().Sub(start),
		OracleLatency: res.OracleLatency,
		Timestamp:     g.clock.Now(),
		ErrorKind:     res.ErrorKind,
	}
	if rec.Domain == "" {
		rec.Domain = req.Host
	}

	fields := map[string]any{
		"id":       rec.ID,
		"domain":   rec.Domain,
		"category": string(rec.Category),
		"client":   req.ClientAddr,
		"cacheHit": rec.CacheHit,
	}
	if !rec.ErrorKind.IsZero() {
		fields["errorKind"] = string(rec.ErrorKind)
	}
	if verdict == domain.VerdictBlocked {
		g.logger.Warn(fields, "Blocking request")
	} else {
		g.logger.Debug(fields, "Allowing request")
	}

	if g.activity != nil {
		g.activity.Record(rec)
	}
	return verdict, rec
}

var _ RequestDecider = (*Gateway)(nil)
