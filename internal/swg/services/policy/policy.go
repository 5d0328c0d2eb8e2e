// Package policy maps categories to verdicts against the live policy table.
// Lookups never block on the network; unseen categories are registered as
// allowed, an explicit and audited side effect rather than a buried default.
package policy

import (
	"github.com/calloway/swgate/internal/swg/common/log"
	"github.com/calloway/swgate/internal/swg/domain"
)

// Table is the policy view the resolver reads. The implementation keeps the
// view current with operator edits; the resolver never caches verdicts.
type Table interface {
	Policy(category domain.Category) (domain.Verdict, bool)
	RegisterCategory(category domain.Category, def domain.Verdict) (bool, error)
	ListPolicy() map[domain.Category]domain.Verdict
}

// Resolver answers verdict lookups for the enforcement gateway.
type Resolver struct {
	table  Table
	logger log.Logger
}

// New constructs a Resolver.
func New(table Table, logger log.Logger) *Resolver {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Resolver{table: table, logger: logger}
}

// VerdictFor returns the verdict for a category from the current table.
// Classification always registers its category first, so an absent entry
// here means the table was edited concurrently; it is re-registered as
// allowed rather than failing the request.
func (r *Resolver) VerdictFor(category domain.Category) domain.Verdict {
	category = category.Normalized()
	if v, ok := r.table.Policy(category); ok {
		return v
	}

	registered, err := r.table.RegisterCategory(category, domain.VerdictAllowed)
	if err != nil {
		r.logger.Error(map[string]any{
			"category": string(category),
			"error":    err,
		}, "Category registration during lookup failed")
	} else if registered {
		r.logger.Info(map[string]any{
			"category": string(category),
			"verdict":  domain.VerdictAllowed.String(),
		}, "Unresolved category registered as allowed")
	}
	return domain.VerdictAllowed
}

// ListPolicy exposes the current table for operator inspection.
func (r *Resolver) ListPolicy() map[domain.Category]domain.Verdict {
	return r.table.ListPolicy()
}
