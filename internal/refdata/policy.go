package refdata

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ApprovalLevel is one rung of the approval matrix. A nil MaxAmount is unbounded.
type ApprovalLevel struct {
	Level     int      `yaml:"level" json:"level"`
	Name      string   `yaml:"name" json:"name"`
	MaxAmount *float64 `yaml:"max_amount" json:"max_amount,omitempty"`
	Approvers []string `yaml:"approvers" json:"approvers"`
}

// ApprovalOverrides raise the approval level for risky invoices.
type ApprovalOverrides struct {
	RelatedPartyLevel   int `yaml:"related_party_level" json:"related_party_level"`
	FirstTimeVendorBump int `yaml:"first_time_vendor_bump" json:"first_time_vendor_bump"`
	RetrospectiveBump   int `yaml:"retrospective_bump" json:"retrospective_bump"`
}

// CompanyPolicy is the buyer's own acceptance and approval policy.
type CompanyPolicy struct {
	CompanyName         string             `yaml:"company_name"`
	CompanyGSTIN        string             `yaml:"company_gstin"`
	ApprovalLevels      []ApprovalLevel    `yaml:"approval_levels"`
	Overrides           ApprovalOverrides  `yaml:"overrides"`
	ReviewApprovalLevel int                `yaml:"review_approval_level"`
	POTolerancePercent  float64            `yaml:"po_tolerance_percent"`
	PORequiredAbove     float64            `yaml:"po_required_above"`
	Budgets             map[string]float64 `yaml:"budgets"`
	MaxInvoiceAgeDays   int                `yaml:"max_invoice_age_days"`
	RetrospectiveDays   int                `yaml:"retrospective_days"`
	MarchCutoff         string             `yaml:"march_cutoff"`
	MSMEMaxPaymentDays  int                `yaml:"msme_max_payment_days"`
	FYStartMonth        int                `yaml:"fy_start_month"`
}

// ApplyDefaults fills zero-valued knobs and sorts the approval matrix.
func (p *CompanyPolicy) ApplyDefaults() {
	p.CompanyGSTIN = strings.ToUpper(strings.TrimSpace(p.CompanyGSTIN))
	if p.ReviewApprovalLevel == 0 {
		p.ReviewApprovalLevel = 4
	}
	if p.MaxInvoiceAgeDays == 0 {
		p.MaxInvoiceAgeDays = 180
	}
	if p.RetrospectiveDays == 0 {
		p.RetrospectiveDays = 60
	}
	if p.MarchCutoff == "" {
		p.MarchCutoff = "04-15"
	}
	if p.MSMEMaxPaymentDays == 0 {
		p.MSMEMaxPaymentDays = 45
	}
	if p.FYStartMonth == 0 {
		p.FYStartMonth = 4
	}
	if p.POTolerancePercent == 0 {
		p.POTolerancePercent = 5
	}
	sort.SliceStable(p.ApprovalLevels, func(i, j int) bool {
		return p.ApprovalLevels[i].Level < p.ApprovalLevels[j].Level
	})
}

// Validate reports policies that cannot drive the approval matrix.
func (p *CompanyPolicy) Validate() error {
	if len(p.ApprovalLevels) == 0 {
		return fmt.Errorf("company policy: approval matrix is empty")
	}
	if p.FYStartMonth < 1 || p.FYStartMonth > 12 {
		return fmt.Errorf("company policy: fy_start_month %d out of range", p.FYStartMonth)
	}
	if _, _, err := p.marchCutoff(); err != nil {
		return err
	}
	return nil
}

// ApprovalFactors are the risk signals that raise the approval level.
type ApprovalFactors struct {
	RelatedParty  bool
	FirstTime     bool
	Retrospective bool
}

// ApprovalFor buckets amount into the matrix, bumps the level for first-time
// vendors or retrospective invoices (capped at the top level), and raises it to
// RelatedPartyLevel for related-party vendors.
func (p *CompanyPolicy) ApprovalFor(amount float64, f ApprovalFactors) ApprovalLevel {
	if len(p.ApprovalLevels) == 0 {
		return ApprovalLevel{}
	}
	idx := len(p.ApprovalLevels) - 1
	for i, l := range p.ApprovalLevels {
		if l.MaxAmount == nil || amount <= *l.MaxAmount {
			idx = i
			break
		}
	}
	bump := 0
	if f.FirstTime {
		bump = max(bump, p.Overrides.FirstTimeVendorBump)
	}
	if f.Retrospective {
		bump = max(bump, p.Overrides.RetrospectiveBump)
	}
	idx = min(idx+bump, len(p.ApprovalLevels)-1)
	if f.RelatedParty && p.Overrides.RelatedPartyLevel > 0 {
		for i, l := range p.ApprovalLevels {
			if l.Level >= p.Overrides.RelatedPartyLevel {
				idx = max(idx, i)
				break
			}
		}
	}
	return p.ApprovalLevels[idx]
}

// FinancialYear returns the [start, end) bounds of the financial year containing d.
func (p *CompanyPolicy) FinancialYear(d time.Time) (time.Time, time.Time) {
	m := time.Month(p.FYStartMonth)
	year := d.Year()
	if d.Month() < m {
		year--
	}
	start := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// MarchCutoffIn returns the last day, in the given calendar year, on which
// invoices of the previous financial year's final month are still accepted.
func (p *CompanyPolicy) MarchCutoffIn(year int) time.Time {
	month, day, err := p.marchCutoff()
	if err != nil {
		month, day = time.April, 15
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (p *CompanyPolicy) marchCutoff() (time.Month, int, error) {
	t, err := time.Parse("01-02", p.MarchCutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("company policy: march_cutoff %q: %w", p.MarchCutoff, err)
	}
	return t.Month(), t.Day(), nil
}

// Budget returns the budget of a cost center.
func (p *CompanyPolicy) Budget(costCenter string) (float64, bool) {
	b, ok := p.Budgets[strings.TrimSpace(costCenter)]
	return b, ok
}
