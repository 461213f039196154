package nba

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies a fetch failure once, at the remote boundary. The upstream
// error taxonomy is not contractual, so classification leans on status codes
// first and error-text heuristics second.
type Kind int

const (
	KindTransient Kind = iota
	KindTimeout
	KindRateLimited
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	default:
		return "transient"
	}
}

// FetchError wraps a remote failure with its classified kind.
type FetchError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the error is worth another attempt. NotFound is
// fatal for the item; everything else is transient by policy.
func (e *FetchError) Retryable() bool {
	return e.Kind != KindNotFound
}

// Slow reports whether the backoff for this error should be doubled beyond
// the standard exponential schedule.
func (e *FetchError) Slow() bool {
	return e.Kind == KindTimeout || e.Kind == KindRateLimited
}

// classify builds a FetchError from a transport error or HTTP status.
func classify(op string, statusCode int, err error) *FetchError {
	kind := KindTransient

	switch {
	case statusCode == http.StatusNotFound:
		kind = KindNotFound
	case statusCode == http.StatusTooManyRequests:
		kind = KindRateLimited
	case err != nil:
		var netErr net.Error
		switch {
		case errors.As(err, &netErr) && netErr.Timeout(),
			errors.Is(err, context.DeadlineExceeded):
			kind = KindTimeout
		default:
			msg := strings.ToLower(err.Error())
			switch {
			case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
				kind = KindTimeout
			case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
				kind = KindRateLimited
			}
		}
	}

	if err == nil {
		err = fmt.Errorf("status %d", statusCode)
	}
	return &FetchError{Kind: kind, Op: op, Err: err}
}

// IsNotFound reports whether err is a NotFound fetch error.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindNotFound
}
