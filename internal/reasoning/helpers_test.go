package reasoning_test

import (
	"context"
	"sync"
	"time"

	"gstaudit/internal/port"
)

type stubReasoner struct {
	name  string
	resp  *port.ReasoningResponse
	err   error
	block bool
	// delay makes Reason sleep without watching ctx.
	delay time.Duration
	panicWith any

	mu   sync.Mutex
	reqs []port.ReasoningRequest
}

func (s *stubReasoner) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}

func (s *stubReasoner) Reason(ctx context.Context, req port.ReasoningRequest) (*port.ReasoningResponse, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	out := *s.resp
	return &out, nil
}

func (s *stubReasoner) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs)
}

func (s *stubReasoner) lastRequest() port.ReasoningRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reqs[len(s.reqs)-1]
}

func verdict(status string, conf float64) *port.ReasoningResponse {
	return &port.ReasoningResponse{Status: status, Confidence: conf, Reasoning: "judged " + status}
}
