package gateway

import (
	"context"

	"github.com/calloway/swgate/internal/swg/domain"
	"github.com/calloway/swgate/internal/swg/services/classifier"
)

// DomainClassifier resolves a destination host to a category.
type DomainClassifier interface {
	Resolve(ctx context.Context, host string) classifier.Result
}

// PolicyResolver maps a category to its verdict.
type PolicyResolver interface {
	VerdictFor(cat domain.Category) domain.Verdict
}

// Recorder consumes one audit record per decision.
type Recorder interface {
	Record(rec domain.ActivityRecord)
}

// RequestDecider is the surface the proxy transport calls into: one
// verdict per request, always. Transports never see an error here.
type RequestDecider interface {
	Decide(ctx context.Context, req domain.RequestDescriptor) (domain.Verdict, domain.ActivityRecord)
}
