// Package reasoning consults an LLM-backed reasoner for ambiguous checks on
// complex invoices. It provides the complexity trigger, the provider chain
// with rate-limit circuits, regulation retrieval and verdict validation.
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"gstaudit/internal/domain"
	"gstaudit/internal/port"
)

// Default augmentation settings.
const (
	DefaultTimeout = 20 * time.Second
	DefaultRAGK    = 3
)

// AugmenterConfig bounds one augmentation call.
type AugmenterConfig struct {
	Timeout time.Duration
	// RAGK is the number of regulation excerpts attached to each request.
	// Zero disables retrieval.
	RAGK int
}

// Augmenter wraps a Reasoner with a timeout, retrieval and response
// validation. It satisfies invoice.Augmenter.
type Augmenter struct {
	reasoner  port.Reasoner
	retriever port.Retriever
	cfg       AugmenterConfig
	log       *zap.Logger
}

// NewAugmenter builds an Augmenter. retriever may be nil.
func NewAugmenter(reasoner port.Reasoner, retriever port.Retriever, cfg AugmenterConfig, log *zap.Logger) *Augmenter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RAGK < 0 {
		cfg.RAGK = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Augmenter{reasoner: reasoner, retriever: retriever, cfg: cfg, log: log}
}

// Augment asks the reasoner to judge req. Errors are *CheckError wrapping
// domain.ErrReasoningUnavailable or domain.ErrMalformedReasoning; the caller
// then falls back to its deterministic verdict. A successful response always
// requires review.
func (a *Augmenter) Augment(ctx context.Context, req port.ReasoningRequest) (*port.ReasoningResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	var sources []string
	if a.retriever != nil && a.cfg.RAGK > 0 {
		passages, err := a.retriever.Retrieve(ctx, retrievalQuery(req), a.cfg.RAGK)
		if err != nil {
			a.log.Warn("reasoning.Augmenter: retrieval failed",
				zap.String("check_id", req.CheckID), zap.Error(err))
		}
		for _, p := range passages {
			req.References = append(req.References, p.Source+": "+p.Text)
			sources = append(sources, p.Source)
		}
	}

	start := time.Now()
	resp, err := a.reason(ctx, req)
	if err != nil {
		if !errors.Is(err, domain.ErrMalformedReasoning) {
			err = fmt.Errorf("%w: %w", domain.ErrReasoningUnavailable, err)
		}
		return nil, a.checkError(req, err)
	}
	if resp == nil {
		return nil, a.checkError(req, fmt.Errorf("%w: no response", domain.ErrMalformedReasoning))
	}

	out := *resp
	if err := ValidateResponse(&out); err != nil {
		return nil, a.checkError(req, err)
	}
	out.RequiresReview = true
	out.References = sources
	if out.Model == "" {
		out.Model = a.reasoner.Name()
	}

	a.log.Debug("reasoning.Augmenter: check reasoned",
		zap.String("check_id", req.CheckID),
		zap.String("status", out.Status),
		zap.Float64("confidence", out.Confidence),
		zap.Int("references", len(sources)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &out, nil
}

func (a *Augmenter) checkError(req port.ReasoningRequest, err error) error {
	return &CheckError{CheckID: req.CheckID, Reasoner: a.reasoner.Name(), Err: err}
}

type reasonResult struct {
	resp *port.ReasoningResponse
	err  error
}

// reason calls the reasoner on its own goroutine and stops waiting when ctx
// is done, whether or not the provider honours ctx. A panicking provider
// becomes an error.
func (a *Augmenter) reason(ctx context.Context, req port.ReasoningRequest) (*port.ReasoningResponse, error) {
	done := make(chan reasonResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.log.Error("reasoning.Augmenter: reasoner panicked",
					zap.String("reasoner", a.reasoner.Name()),
					zap.String("check_id", req.CheckID),
					zap.Any("panic", r))
				done <- reasonResult{err: fmt.Errorf("reasoner panicked: %v", r)}
			}
		}()
		resp, err := a.reasoner.Reason(ctx, req)
		done <- reasonResult{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// retrievalQuery joins the question with the string-valued facts.
func retrievalQuery(req port.ReasoningRequest) string {
	parts := []string{req.Question}
	keys := make([]string, 0, len(req.Context))
	for k := range req.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := req.Context[k].(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
