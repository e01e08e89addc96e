package domain

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// Sources recorded on a CheckResult.
const (
	SourceRuleBased = "rule_based"
	SourceReasoning = "reasoning"
	SourceFallback  = "fallback"
	SourceEngine    = "engine"
)

// CheckResult is the outcome of one check execution. Build it with
// NewCheckResult; treat it as immutable afterwards.
type CheckResult struct {
	CheckID        string      `json:"check_id"`
	Name           string      `json:"check_name"`
	Category       Category    `json:"category"`
	Status         CheckStatus `json:"status"`
	Confidence     float64     `json:"confidence"`
	Reasoning      string      `json:"reasoning"`
	Severity       Severity    `json:"severity"`
	RequiresReview bool        `json:"requires_review"`
	Provenance     []string    `json:"provenance,omitempty"`
	Source         string      `json:"source"`
}

// NewCheckResult validates r and returns a copy. An out-of-range or NaN
// confidence, or an unknown status or severity, is a bug in the evaluator and
// panics with *ContractViolation.
func NewCheckResult(r CheckResult) CheckResult {
	if math.IsNaN(r.Confidence) || r.Confidence < 0 || r.Confidence > 1 {
		panic(&ContractViolation{CheckID: r.CheckID, Reason: "confidence out of range [0,1]"})
	}
	if !r.Status.Valid() {
		panic(&ContractViolation{CheckID: r.CheckID, Reason: "unknown status " + string(r.Status)})
	}
	if !r.Severity.Valid() {
		panic(&ContractViolation{CheckID: r.CheckID, Reason: "unknown severity " + string(r.Severity)})
	}
	if r.Source == "" {
		r.Source = SourceRuleBased
	}
	if len(r.Provenance) > 0 {
		r.Provenance = append([]string(nil), r.Provenance...)
	}
	return r
}

// IsCriticalIssue is true for FAIL results with HIGH or CRITICAL severity.
func (r CheckResult) IsCriticalIssue() bool {
	return r.Status == CheckStatusFail && r.Severity.IsCritical()
}

// CategoryResult groups the ordered check results of one category. Counts and
// the average are computed from Checks on every call.
type CategoryResult struct {
	Category Category
	Checks   []CheckResult
}

func (c *CategoryResult) Name() string { return c.Category.Name() }
func (c *CategoryResult) Total() int   { return len(c.Checks) }
func (c *CategoryResult) Passed() int  { return c.count(CheckStatusPass) }
func (c *CategoryResult) Failed() int  { return c.count(CheckStatusFail) }
func (c *CategoryResult) Warnings() int {
	return c.count(CheckStatusWarning)
}
func (c *CategoryResult) Skipped() int { return c.count(CheckStatusSkipped) }

func (c *CategoryResult) count(s CheckStatus) int {
	n := 0
	for i := range c.Checks {
		if c.Checks[i].Status == s {
			n++
		}
	}
	return n
}

// AverageConfidence is the mean confidence of the category's checks, or 0 when empty.
func (c *CategoryResult) AverageConfidence() float64 {
	if len(c.Checks) == 0 {
		return 0
	}
	var sum float64
	for i := range c.Checks {
		sum += c.Checks[i].Confidence
	}
	return sum / float64(len(c.Checks))
}

type categoryResultJSON struct {
	Category          Category      `json:"category"`
	Name              string        `json:"name"`
	Checks            []CheckResult `json:"checks"`
	Passed            int           `json:"passed"`
	Failed            int           `json:"failed"`
	Warnings          int           `json:"warnings"`
	Skipped           int           `json:"skipped"`
	AverageConfidence float64       `json:"average_confidence"`
}

// MarshalJSON emits the derived counts alongside the checks.
func (c *CategoryResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(categoryResultJSON{
		Category:          c.Category,
		Name:              c.Name(),
		Checks:            c.Checks,
		Passed:            c.Passed(),
		Failed:            c.Failed(),
		Warnings:          c.Warnings(),
		Skipped:           c.Skipped(),
		AverageConfidence: c.AverageConfidence(),
	})
}

// UnmarshalJSON restores the checks and ignores stored counts.
func (c *CategoryResult) UnmarshalJSON(data []byte) error {
	var raw categoryResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Category = raw.Category
	c.Checks = raw.Checks
	return nil
}

// ValidationResult is the aggregate outcome of validating one invoice.
type ValidationResult struct {
	RunID             uuid.UUID                    `json:"run_id"`
	InvoiceID         string                       `json:"invoice_id"`
	Timestamp         time.Time                    `json:"timestamp"`
	Status            OverallStatus                `json:"status"`
	Categories        map[Category]*CategoryResult `json:"categories"`
	TotalChecks       int                          `json:"total_checks"`
	Passed            int                          `json:"passed"`
	Failed            int                          `json:"failed"`
	Warnings          int                          `json:"warnings"`
	Skipped           int                          `json:"skipped"`
	AverageConfidence float64                      `json:"average_confidence"`
	RequiresReview    bool                         `json:"requires_review"`
	CriticalIssues    []CheckResult                `json:"critical_issues"`
	FailedCategories  []Category                   `json:"failed_categories,omitempty"`
	FirstTimeVendor   bool                         `json:"first_time_vendor"`
	InputErrors       []string                     `json:"input_errors,omitempty"`
	ReferenceVersion  string                       `json:"reference_version,omitempty"`
}

// Checks returns every check result in category order.
func (v *ValidationResult) Checks() []CheckResult {
	var out []CheckResult
	for _, cat := range AllCategories {
		if cr, ok := v.Categories[cat]; ok {
			out = append(out, cr.Checks...)
		}
	}
	return out
}

// Check finds a result by check ID.
func (v *ValidationResult) Check(id string) (CheckResult, bool) {
	for _, cr := range v.Categories {
		for i := range cr.Checks {
			if cr.Checks[i].CheckID == id {
				return cr.Checks[i], true
			}
		}
	}
	return CheckResult{}, false
}

// EscalationDecision says whether a human reviewer must look and why.
type EscalationDecision struct {
	Escalate bool     `json:"escalate"`
	Reasons  []string `json:"reasons"`
}

// Verdict values reported to callers.
const (
	VerdictPass     = "PASS"
	VerdictFail     = "FAIL"
	VerdictEscalate = "ESCALATE"
)

// Report is the payload handed to reporting collaborators.
type Report struct {
	Result     *ValidationResult  `json:"result"`
	Escalation EscalationDecision `json:"escalation"`
	Verdict    string             `json:"verdict"`
}

// NewReport derives the verdict from result and decision.
func NewReport(result *ValidationResult, decision EscalationDecision) *Report {
	verdict := VerdictPass
	switch {
	case decision.Escalate:
		verdict = VerdictEscalate
	case result.Status != OverallStatusPass:
		verdict = VerdictFail
	}
	return &Report{Result: result, Escalation: decision, Verdict: verdict}
}
