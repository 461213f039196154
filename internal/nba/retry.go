package nba

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy parameterizes the shared retry wrapper. One policy serves every
// endpoint instead of a hand-rolled loop per call site.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Retryable decides whether an error deserves another attempt.
	// Defaults to FetchError.Retryable semantics.
	Retryable func(error) bool

	// OnFinalAttempt runs once before the last attempt, giving the caller a
	// chance to change something about itself (the client rotates its
	// request identity here).
	OnFinalAttempt func()
}

// DefaultPolicy matches the remote service's tolerance: five attempts,
// exponential backoff from one second, capped at two minutes.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    2 * time.Minute,
	}
}

// Do runs op under the policy. Backoff before attempt n (0-based) is
// base * 2^(n-1) plus up to 50% jitter, doubled again when the previous
// failure was a timeout or rate-limit condition. Returns the last error when
// attempts are exhausted, or ctx.Err() if the context ends mid-wait.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = func(err error) bool {
			var fe *FetchError
			if errors.As(err, &fe) {
				return fe.Retryable()
			}
			return true
		}
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := backoff(p, attempt, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if p.OnFinalAttempt != nil && attempt == p.MaxAttempts-1 {
			p.OnFinalAttempt()
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func backoff(p Policy, attempt int, lastErr error) time.Duration {
	wait := p.BaseDelay << (attempt - 1)
	wait += time.Duration(rand.Int63n(int64(p.BaseDelay)/2 + 1))

	var fe *FetchError
	if errors.As(lastErr, &fe) && fe.Slow() {
		wait *= 2
	}
	if p.MaxDelay > 0 && wait > p.MaxDelay {
		wait = p.MaxDelay
	}
	return wait
}
