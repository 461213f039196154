package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func rateLimited(requests int, window time.Duration) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return RateLimitMiddleware(requests, window)(ok)
}

func hit(h http.Handler, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_RetryAfterMatchesWindow(t *testing.T) {
	h := rateLimited(2, 30*time.Second)

	// Burst is half the window budget, so the second immediate request
	// from the same client is limited.
	if rec := hit(h, "10.0.0.1:1234"); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}
	rec := hit(h, "10.0.0.1:1234")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("Retry-After = %q, want the configured window", got)
	}
}

func TestRateLimit_PerClientBuckets(t *testing.T) {
	h := rateLimited(2, time.Minute)

	hit(h, "10.0.0.1:1234")
	if rec := hit(h, "10.0.0.2:1234"); rec.Code != http.StatusOK {
		t.Fatalf("other client limited by first client's bucket: status = %d", rec.Code)
	}
}

func TestRateLimit_SingleRequestWindow(t *testing.T) {
	// A one-request window must still admit the first request.
	h := rateLimited(1, time.Minute)
	if rec := hit(h, "10.0.0.1:1234"); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}
	if rec := hit(h, "10.0.0.1:1234"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rec.Code)
	}
}

func TestIPLimiter_EvictsIdleClients(t *testing.T) {
	l := newIPLimiter(10, time.Minute)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.allow("10.0.0.1")
	l.allow("10.0.0.2")
	if len(l.entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(l.entries))
	}

	// Past the idle horizon the next request sweeps stale buckets.
	now = now.Add(evictAfter + time.Minute)
	l.allow("10.0.0.3")
	if len(l.entries) != 1 {
		t.Fatalf("entries = %d, want only the fresh client", len(l.entries))
	}
	if l.entries["10.0.0.3"] == nil {
		t.Fatal("fresh client missing after sweep")
	}
}

func TestIPLimiter_SweepKeepsActiveClients(t *testing.T) {
	l := newIPLimiter(10, time.Minute)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.allow("10.0.0.1")
	now = now.Add(evictAfter - time.Minute)
	l.allow("10.0.0.1") // refreshes lastSeen
	now = now.Add(evictAfter - time.Minute)
	l.allow("10.0.0.2")

	if l.entries["10.0.0.1"] == nil {
		t.Fatal("recently active client was evicted")
	}
}
