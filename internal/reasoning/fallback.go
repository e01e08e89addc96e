package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"gstaudit/internal/port"
)

// circuitState tracks rate-limit backoff for a single provider.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackReasoner tries reasoners in order, skipping those with open circuits.
// It implements port.Reasoner.
type FallbackReasoner struct {
	reasoners []port.Reasoner
	circuits  []*circuitState
	now       func() time.Time
	log       *zap.Logger
}

// NewFallbackReasoner creates a FallbackReasoner from an ordered list of reasoners.
func NewFallbackReasoner(reasoners []port.Reasoner, log *zap.Logger) *FallbackReasoner {
	if log == nil {
		log = zap.NewNop()
	}
	circuits := make([]*circuitState, len(reasoners))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackReasoner{
		reasoners: reasoners,
		circuits:  circuits,
		now:       time.Now,
		log:       log,
	}
}

// Name lists the chained providers.
func (f *FallbackReasoner) Name() string {
	names := make([]string, len(f.reasoners))
	for i, r := range f.reasoners {
		names[i] = r.Name()
	}
	return "fallback(" + strings.Join(names, ",") + ")"
}

func (f *FallbackReasoner) Reason(ctx context.Context, req port.ReasoningRequest) (*port.ReasoningResponse, error) {
	now := f.now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, r := range f.reasoners {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			f.log.Debug("reasoning.FallbackReasoner: skipping provider",
				zap.String("provider", r.Name()), zap.Time("circuit_open_until", resetAt))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := r.Reason(ctx, req)
		if err == nil {
			return out, nil
		}

		f.log.Warn("reasoning.FallbackReasoner: provider failed",
			zap.String("provider", r.Name()), zap.String("check_id", req.CheckID), zap.Error(err))
		lastErr = err

		if ctx.Err() != nil {
			return nil, err
		}

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		retryAfter := earliestReset.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all reasoners rate limited"), retryAfter)
	}

	return nil, fmt.Errorf("all reasoners failed: %w", lastErr)
}
