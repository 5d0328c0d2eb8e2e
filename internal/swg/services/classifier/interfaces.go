package classifier

import (
	"context"

	"github.com/calloway/swgate/internal/swg/domain"
)

// OracleClient performs a single bounded categorization call per invocation.
type OracleClient interface {
	Classify(ctx context.Context, name string) (domain.Category, error)
}

// DomainCache is the layered domain→category lookup the classifier reads
// from and writes successful classifications back through.
type DomainCache interface {
	Lookup(name string) (domain.Category, bool)
	Remember(e domain.CacheEntry) error
}

// PolicyRegistry registers newly seen categories into the policy table.
type PolicyRegistry interface {
	RegisterCategory(category domain.Category, def domain.Verdict) (bool, error)
}
