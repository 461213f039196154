package nba

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
}

func TestDo_SucceedsWithinBudget(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func(ctx context.Context) error {
		calls++
		if calls < 5 {
			return &FetchError{Kind: KindTransient, Op: "test", Err: errors.New("flaky")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on fifth attempt, got %v", err)
	}
	if calls != 5 {
		t.Fatalf("calls = %d, want 5", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := &FetchError{Kind: KindTransient, Op: "test", Err: errors.New("always")}
	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want last attempt's error", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDo_NotFoundStopsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func(ctx context.Context) error {
		calls++
		return &FetchError{Kind: KindNotFound, Op: "test", Err: errors.New("no such player")}
	})
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not-found", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, non-retryable errors must not be retried", calls)
	}
}

func TestDo_OnFinalAttemptFiresOnce(t *testing.T) {
	fired := 0
	p := fastPolicy(3)
	p.OnFinalAttempt = func() { fired++ }

	calls := 0
	Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		if fired > 0 {
			return nil
		}
		return &FetchError{Kind: KindTransient, Op: "test", Err: errors.New("flaky")}
	})
	if fired != 1 {
		t.Fatalf("OnFinalAttempt fired %d times, want 1", fired)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want success on the rotated final attempt", calls)
	}
}

func TestDo_ContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := Policy{MaxAttempts: 5, BaseDelay: time.Minute}
	err := Do(ctx, p, func(ctx context.Context) error {
		cancel()
		return &FetchError{Kind: KindTransient, Op: "test", Err: errors.New("flaky")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBackoff_GrowsAndDoublesForSlowErrors(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 2 * time.Minute}

	transient := &FetchError{Kind: KindTransient, Op: "test", Err: errors.New("x")}
	limited := &FetchError{Kind: KindRateLimited, Op: "test", Err: errors.New("x")}

	// Attempt 2 backs off from base*2, jitter adds at most base/2.
	w := backoff(p, 2, transient)
	if w < 2*time.Second || w > 2*time.Second+500*time.Millisecond {
		t.Fatalf("transient backoff = %v, want within [2s, 2.5s]", w)
	}

	w = backoff(p, 2, limited)
	if w < 4*time.Second || w > 5*time.Second {
		t.Fatalf("rate-limited backoff = %v, want doubled", w)
	}

	p.MaxDelay = 3 * time.Second
	if w := backoff(p, 6, transient); w != 3*time.Second {
		t.Fatalf("backoff = %v, want capped at MaxDelay", w)
	}
}
