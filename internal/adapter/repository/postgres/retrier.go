package postgres

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// SQLSTATEs of lock contention between concurrent wallet operations.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrLockNotAvailable     = "55P03"
)

// RetryPolicy bounds how often a ledger transaction is replayed after contention.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy suits short checkout and funding transactions.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      3,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     time.Second,
	MaxElapsedTime:  10 * time.Second,
}

// Retrier implements usecase.Retrier. The whole transaction closure is
// replayed, so an operation must begin its own transaction.
type Retrier struct {
	policy RetryPolicy
	logger zerolog.Logger
}

func NewRetrier(logger zerolog.Logger) *Retrier {
	return NewRetrierWithPolicy(DefaultRetryPolicy, logger)
}

func NewRetrierWithPolicy(policy RetryPolicy, logger zerolog.Logger) *Retrier {
	return &Retrier{policy: policy, logger: logger}
}

// Retry runs operation until it succeeds, fails with a non-contention error,
// or the policy is exhausted. The last error is returned unchanged.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval
	b.MaxElapsedTime = r.policy.MaxElapsedTime

	attempt := 0
	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		code := pgCode(err)
		if !isContention(code) || attempt >= r.policy.MaxRetries {
			return backoff.Permanent(err)
		}
		attempt++

		r.logger.Warn().
			Err(err).
			Str("sqlstate", code).
			Int("attempt", attempt).
			Msg("ledger transaction contended, replaying")
		return err
	}, backoff.WithContext(b, ctx))
}

func isContention(code string) bool {
	switch code {
	case pgErrDeadlock, pgErrSerializationFailure, pgErrLockNotAvailable:
		return true
	}
	return false
}
