package validator

import (
	"fmt"
	"strings"

	"gstaudit/internal/domain"
	"gstaudit/internal/validator/invoice"
)

// Escalation defaults.
const (
	DefaultConfidenceThreshold      = 0.70
	DefaultHighValueThreshold       = 1_000_000
	DefaultMultipleFailureThreshold = 3
)

// EscalationConfig holds the thresholds of the escalation policy. Zero
// values fall back to the defaults.
type EscalationConfig struct {
	ConfidenceThreshold      float64
	HighValueThreshold       float64
	MultipleFailureThreshold int
}

// EscalationPolicy decides whether a human reviewer must look at an invoice.
// Decide is a pure function of its arguments.
type EscalationPolicy struct {
	cfg EscalationConfig
}

// NewEscalationPolicy creates a policy with cfg, filling in defaults.
func NewEscalationPolicy(cfg EscalationConfig) *EscalationPolicy {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.HighValueThreshold <= 0 {
		cfg.HighValueThreshold = DefaultHighValueThreshold
	}
	if cfg.MultipleFailureThreshold <= 0 {
		cfg.MultipleFailureThreshold = DefaultMultipleFailureThreshold
	}
	return &EscalationPolicy{cfg: cfg}
}

// Config returns the effective thresholds.
func (p *EscalationPolicy) Config() EscalationConfig { return p.cfg }

// Decide lists every condition that requires escalation. An invalid-input
// result escalates with that single reason.
func (p *EscalationPolicy) Decide(res *domain.ValidationResult, inv *invoice.Invoice) domain.EscalationDecision {
	if res.Status == domain.OverallStatusInvalidInput {
		return domain.EscalationDecision{
			Escalate: true,
			Reasons:  []string{"Invalid input: " + strings.Join(res.InputErrors, "; ")},
		}
	}

	reasons := []string{}
	if len(res.FailedCategories) > 0 {
		names := make([]string, 0, len(res.FailedCategories))
		for _, c := range res.FailedCategories {
			names = append(names, c.Name())
		}
		reasons = append(reasons, "Evaluation failed for: "+strings.Join(names, ", "))
	}
	if res.AverageConfidence < p.cfg.ConfidenceThreshold {
		reasons = append(reasons, fmt.Sprintf("Low confidence: %.1f%% < %.1f%%",
			res.AverageConfidence*100, p.cfg.ConfidenceThreshold*100))
	}
	if inv != nil && inv.TotalAmount > p.cfg.HighValueThreshold {
		reasons = append(reasons, fmt.Sprintf("High value invoice: Rs %.2f exceeds Rs %.2f",
			inv.TotalAmount, p.cfg.HighValueThreshold))
	}
	if n := len(res.CriticalIssues); n > 0 {
		reasons = append(reasons, fmt.Sprintf("Critical issues: %d (%s)", n, checkIDs(res.CriticalIssues)))
	}
	if res.Failed >= p.cfg.MultipleFailureThreshold {
		reasons = append(reasons, fmt.Sprintf("Multiple failures: %d checks failed", res.Failed))
	}
	if res.FirstTimeVendor {
		reasons = append(reasons, "First-time vendor")
	}
	if res.RequiresReview {
		var flagged []domain.CheckResult
		for _, r := range res.Checks() {
			if r.RequiresReview {
				flagged = append(flagged, r)
			}
		}
		if len(flagged) == 0 {
			reasons = append(reasons, "Manual review requested")
		} else {
			reasons = append(reasons, "Manual review requested by: "+checkIDs(flagged))
		}
	}
	return domain.EscalationDecision{Escalate: len(reasons) > 0, Reasons: reasons}
}

func checkIDs(results []domain.CheckResult) string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.CheckID)
	}
	return strings.Join(ids, ", ")
}
