package invoice

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gstaudit/internal/domain"
	"gstaudit/internal/port"
)

// DegradeFactor scales the deterministic confidence when augmentation was
// wanted but could not be used.
const DegradeFactor = 0.8

// augmented consults the reasoning collaborator when the invoice is complex.
// fallback is the deterministic verdict; it is returned unchanged for simple
// invoices and degraded when the collaborator is missing or fails.
func augmented(ctx context.Context, ec *EvalContext, id CheckID, question string, facts map[string]any, fallback outcome) outcome {
	if !ec.Complex {
		return fallback
	}
	if ec.Augmenter == nil {
		return degrade(fallback, "reasoning not configured")
	}
	resp, err := safeAugment(ctx, ec.Augmenter, port.ReasoningRequest{
		CheckID:  string(id),
		Question: question,
		Context:  facts,
	})
	if err != nil {
		return degrade(fallback, err.Error())
	}
	status := domain.CheckStatus(strings.ToUpper(resp.Status))
	if status != domain.CheckStatusPass && status != domain.CheckStatusFail && status != domain.CheckStatusWarning {
		return degrade(fallback, fmt.Sprintf("unexpected status %q", resp.Status))
	}
	if math.IsNaN(resp.Confidence) || resp.Confidence < 0 || resp.Confidence > 1 {
		return degrade(fallback, fmt.Sprintf("confidence %v out of range", resp.Confidence))
	}
	o := outcome{
		status:     status,
		confidence: resp.Confidence,
		reasoning:  resp.Reasoning,
		review:     true,
		source:     domain.SourceReasoning,
	}
	if resp.Model != "" {
		o.provenance = append(o.provenance, resp.Model)
	}
	o.provenance = append(o.provenance, resp.References...)
	if status == domain.CheckStatusFail {
		o.severity = fallback.severity
	}
	return o
}

// safeAugment calls a, turning a panic into an error so the check can still
// fall back to its deterministic verdict.
func safeAugment(ctx context.Context, a Augmenter, req port.ReasoningRequest) (resp *port.ReasoningResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("reasoning panicked: %v", r)
		}
	}()
	return a.Augment(ctx, req)
}

// degrade turns a deterministic verdict into a reviewed WARNING (a FAIL stays
// FAIL) with reduced confidence.
func degrade(fallback outcome, cause string) outcome {
	o := fallback
	if o.status != domain.CheckStatusFail {
		o.status = domain.CheckStatusWarning
	}
	o.confidence = fallback.confidence * DegradeFactor
	o.review = true
	o.source = domain.SourceFallback
	o.reasoning = fmt.Sprintf("%s (deterministic fallback; reasoning unavailable: %s)", fallback.reasoning, cause)
	return o
}
