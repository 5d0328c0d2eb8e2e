// Package classifier resolves a destination domain to a category: cache hit,
// or a single-flighted miss path through the categorization client with
// write-back to the durable store. This is the engine's core algorithm.
package classifier

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/calloway/swgate/internal/swg/common/clock"
	"github.com/calloway/swgate/internal/swg/common/log"
	"github.com/calloway/swgate/internal/swg/common/utils"
	"github.com/calloway/swgate/internal/swg/domain"
	"github.com/calloway/swgate/internal/swg/gateways/oracle"
)

// Result is the outcome of one resolution. A Result always carries a usable
// category: classification failures surface as the fallback category plus an
// ErrorKind, never as an error the caller must handle.
type Result struct {
	// Domain is the normalized registrable domain the resolution applied to.
	Domain string
	// Category the domain resolved to, or the fallback label on failure.
	Category domain.Category
	// CacheHit reports whether the category was served from the cache.
	CacheHit bool
	// ErrorKind is set when the miss path failed and the fallback was used.
	ErrorKind domain.ErrorKind
	// OracleLatency is the time spent waiting on the categorization call.
	OracleLatency time.Duration
}

// Options configures a Classifier.
type Options struct {
	Cache    DomainCache
	Oracle   OracleClient
	Policies PolicyRegistry
	Retry    RetryPolicy
	// Fallback is returned when classification fails; it is auto-registered
	// into the policy table at startup so operators can flip its verdict.
	Fallback domain.Category
	Clock    clock.Clock
	Logger   log.Logger
}

// Classifier coordinates cache lookups and single-flighted oracle calls.
// Safe for concurrent use by many request goroutines.
type Classifier struct {
	cache    DomainCache
	oracle   OracleClient
	policies PolicyRegistry
	retry    RetryPolicy
	fallback domain.Category
	clock    clock.Clock
	logger   log.Logger

	group singleflight.Group
}

// New constructs a Classifier.
func New(opts Options) *Classifier {
	if opts.Fallback.IsZero() {
		opts.Fallback = "Uncategorized"
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Classifier{
		cache:    opts.Cache,
		oracle:   opts.Oracle,
		policies: opts.Policies,
		retry:    opts.Retry,
		fallback: opts.Fallback,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
}

// Fallback returns the configured fallback category.
func (c *Classifier) Fallback() domain.Category { return c.fallback }

// Resolve maps a destination host to a category.
//
// The cache-hit path never touches the network. On a miss, concurrent
// resolutions for the same normalized domain coalesce into a single
// outbound call whose result every waiter shares; the flight is never
// cancelled by an aborting waiter, so the cache still gets populated for
// future requests.
func (c *Classifier) Resolve(ctx context.Context, host string) Result {
	name := utils.RegistrableDomain(host)
	if name == "" {
		c.logger.Warn(map[string]any{"host": host}, "Could not extract a domain, using fallback category")
		return Result{Category: c.fallback}
	}

	if cat, ok := c.cache.Lookup(name); ok {
		return Result{Domain: name, Category: cat, CacheHit: true}
	}

	ch := c.group.DoChan(name, func() (any, error) {
		return c.classifyMiss(name), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Result)
	case <-ctx.Done():
		// the flight keeps running for other waiters; only this caller's
		// delivery is dropped
		c.logger.Debug(map[string]any{"domain": name, "error": ctx.Err()}, "Caller abandoned in-flight classification")
		kind := domain.ErrorKindNone
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = domain.ErrorKindOracleTimeout
		}
		return Result{Domain: name, Category: c.fallback, ErrorKind: kind}
	}
}

// classifyMiss is the single-flighted slow path for one domain.
func (c *Classifier) classifyMiss(name string) Result {
	// a racing flight may have populated the cache between the caller's
	// miss and this flight starting
	if cat, ok := c.cache.Lookup(name); ok {
		return Result{Domain: name, Category: cat, CacheHit: true}
	}

	start := c.clock.Now()
	category, err := c.classifyWithRetry(name)
	elapsed := c.clock.Now().Sub(start)

	if err != nil {
		kind := oracle.Kind(err)
		c.logger.Warn(map[string]any{
			"domain":     name,
			"error":      err,
			"error_kind": string(kind),
			"fallback":   string(c.fallback),
		}, "Classification failed, using fallback category")
		// negative results are never cached
		return Result{Domain: name, Category: c.fallback, ErrorKind: kind, OracleLatency: elapsed}
	}

	entry, err := domain.NewCacheEntry(name, category, c.clock.Now())
	if err != nil {
		c.logger.Error(map[string]any{"domain": name, "error": err}, "Classification produced an invalid entry")
		return Result{Domain: name, Category: c.fallback, ErrorKind: domain.ErrorKindOracleMalformedResponse, OracleLatency: elapsed}
	}

	if err := c.cache.Remember(entry); err != nil {
		// best-effort: the decision stands, the write failure is audited
		c.logger.Error(map[string]any{
			"domain":     name,
			"error":      err,
			"error_kind": string(domain.ErrorKindStoreWriteFailure),
		}, "Cache write-back failed")
	}

	if registered, err := c.policies.RegisterCategory(entry.Category, domain.VerdictAllowed); err != nil {
		c.logger.Error(map[string]any{"category": string(entry.Category), "error": err}, "Category registration failed")
	} else if registered {
		c.logger.Info(map[string]any{
			"category": string(entry.Category),
			"verdict":  domain.VerdictAllowed.String(),
		}, "New category auto-registered")
	}

	c.logger.Debug(map[string]any{
		"domain":   name,
		"category": string(entry.Category),
		"latency":  elapsed,
	}, "Domain classified")

	return Result{Domain: name, Category: entry.Category, OracleLatency: elapsed}
}

// classifyWithRetry runs the oracle call under the retry policy on a context
// detached from any individual caller: the flight serves every current and
// future waiter, so it is bounded by the client's own timeout instead.
func (c *Classifier) classifyWithRetry(name string) (domain.Category, error) {
	var category domain.Category
	err := c.retry.Do(context.Background(), func(ctx context.Context) error {
		var err error
		category, err = c.oracle.Classify(ctx, name)
		return err
	})
	return category, err
}
