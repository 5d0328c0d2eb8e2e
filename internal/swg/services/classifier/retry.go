package classifier

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/calloway/swgate/internal/swg/domain"
	"github.com/calloway/swgate/internal/swg/gateways/oracle"
)

// RetryPolicy decides how classification calls are reattempted. It lives at
// the classifier boundary, not inside the client: the client's contract is
// one network call per invocation.
type RetryPolicy struct {
	// MaxRetries is the number of reattempts after the first call.
	MaxRetries uint64
	// Backoff is the base of the fibonacci backoff schedule.
	Backoff time.Duration
	// RetryableKinds lists the failure kinds worth reattempting. Timeouts
	// are deliberately not among the defaults: the caller already waited.
	RetryableKinds []domain.ErrorKind
}

// DefaultRetryPolicy reattempts fast transient failures twice with a short
// backoff, keeping the worst-case miss path bounded.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		Backoff:    100 * time.Millisecond,
		RetryableKinds: []domain.ErrorKind{
			domain.ErrorKindOracleUnreachable,
			domain.ErrorKindOracleRateLimited,
		},
	}
}

// retryable reports whether the policy covers the failure.
func (p RetryPolicy) retryable(err error) bool {
	kind := oracle.Kind(err)
	for _, k := range p.RetryableKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Do runs fn under the policy, returning the last error when retries are
// exhausted or the failure is not retryable.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.MaxRetries == 0 {
		return fn(ctx)
	}
	b := retry.NewFibonacci(p.Backoff)
	return retry.Do(ctx, retry.WithMaxRetries(p.MaxRetries, b), func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && p.retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
