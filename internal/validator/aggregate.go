package validator

import (
	"slices"

	"gstaudit/internal/domain"
)

// Aggregate joins category results into a ValidationResult. The overall
// status is PASS iff no check failed and no category aborted. The average
// confidence is the unweighted mean over every check result.
func Aggregate(categories map[domain.Category]*domain.CategoryResult, failed []domain.Category) *domain.ValidationResult {
	res := &domain.ValidationResult{
		Categories:     categories,
		CriticalIssues: []domain.CheckResult{},
	}
	var sum float64
	for _, r := range res.Checks() {
		res.TotalChecks++
		sum += r.Confidence
		switch r.Status {
		case domain.CheckStatusPass:
			res.Passed++
		case domain.CheckStatusFail:
			res.Failed++
		case domain.CheckStatusWarning:
			res.Warnings++
		case domain.CheckStatusSkipped:
			res.Skipped++
		}
		if r.RequiresReview {
			res.RequiresReview = true
		}
		if r.IsCriticalIssue() {
			res.CriticalIssues = append(res.CriticalIssues, r)
		}
	}
	if res.TotalChecks > 0 {
		res.AverageConfidence = sum / float64(res.TotalChecks)
	}
	for _, cat := range domain.AllCategories {
		if slices.Contains(failed, cat) {
			res.FailedCategories = append(res.FailedCategories, cat)
		}
	}

	res.Status = domain.OverallStatusPass
	if res.Failed > 0 || len(res.FailedCategories) > 0 {
		res.Status = domain.OverallStatusFail
	}
	return res
}

// InvalidInput builds the result for an invoice that could not be checked at all.
func InvalidInput(errs []string) *domain.ValidationResult {
	return &domain.ValidationResult{
		Status:         domain.OverallStatusInvalidInput,
		Categories:     map[domain.Category]*domain.CategoryResult{},
		CriticalIssues: []domain.CheckResult{},
		RequiresReview: true,
		InputErrors:    append([]string(nil), errs...),
	}
}
