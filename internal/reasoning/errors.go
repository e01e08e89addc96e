package reasoning

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryAfter applies when a provider throttles without saying for how long.
const DefaultRetryAfter = time.Minute

// RateLimitError indicates a reasoning provider throttled the audit. The
// FallbackReasoner opens that provider's circuit for RetryAfter.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// NewRateLimitError builds a RateLimitError, using DefaultRetryAfter when
// retryAfter is not positive.
func NewRateLimitError(provider string, err error, retryAfter time.Duration) *RateLimitError {
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	return &RateLimitError{Provider: provider, RetryAfter: retryAfter, Err: err}
}

// ParseRetryAfter reads a Retry-After header, either delay-seconds or an
// HTTP date relative to now. It returns 0 when the value is absent,
// malformed or already past.
func ParseRetryAfter(val string, now time.Time) time.Duration {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	at, err := http.ParseTime(val)
	if err != nil {
		return 0
	}
	return max(at.Sub(now).Round(time.Second), 0)
}

// CheckError is a failed augmentation of one check. Err wraps
// domain.ErrReasoningUnavailable or domain.ErrMalformedReasoning.
type CheckError struct {
	CheckID  string
	Reasoner string
	Err      error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("check %s via %s: %v", e.CheckID, e.Reasoner, e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }
