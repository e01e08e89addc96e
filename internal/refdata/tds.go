package refdata

import (
	"sort"
	"strings"

	"gstaudit/internal/domain"
)

// DefaultNoPANRate applies to payees that did not furnish a PAN (section 206AA).
const DefaultNoPANRate = 20.0

// TDSSection holds the rates and thresholds of one TDS section.
type TDSSection struct {
	Section            string
	Description        string
	Rate               float64
	RateCompany        float64
	RateIndividual     float64
	RateTechnical      float64
	RateNoPAN          float64
	SingleThreshold    float64
	AggregateThreshold float64
	Keywords           []string
}

// TDSRules indexes TDS sections.
type TDSRules struct {
	bySection map[string]TDSSection
	order     []string
}

// NewTDSRules builds the section index.
func NewTDSRules(sections []TDSSection) *TDSRules {
	r := &TDSRules{bySection: make(map[string]TDSSection, len(sections))}
	for i := range sections {
		s := sections[i]
		s.Section = strings.ToUpper(strings.TrimSpace(s.Section))
		if s.RateNoPAN == 0 {
			s.RateNoPAN = DefaultNoPANRate
		}
		kw := make([]string, len(s.Keywords))
		for j, k := range s.Keywords {
			kw[j] = strings.ToLower(k)
		}
		s.Keywords = kw
		if _, dup := r.bySection[s.Section]; !dup {
			r.order = append(r.order, s.Section)
		}
		r.bySection[s.Section] = s
	}
	sort.Strings(r.order)
	return r
}

// Len returns the number of sections.
func (r *TDSRules) Len() int { return len(r.bySection) }

// Sections returns section names in sorted order.
func (r *TDSRules) Sections() []string { return append([]string(nil), r.order...) }

// Section returns the rules of one section.
func (r *TDSRules) Section(section string) (TDSSection, bool) {
	s, ok := r.bySection[strings.ToUpper(strings.TrimSpace(section))]
	return s, ok
}

// RateQuery describes the payee for a rate lookup.
type RateQuery struct {
	Section   string
	Entity    domain.EntityType
	Technical bool
	HasPAN    bool
}

// Rate returns the applicable TDS rate in percent and whether the section is known.
func (r *TDSRules) Rate(q RateQuery) (float64, bool) {
	s, ok := r.Section(q.Section)
	if !ok {
		return 0, false
	}
	if !q.HasPAN {
		return s.RateNoPAN, true
	}
	switch s.Section {
	case "194C":
		if (q.Entity == domain.EntityTypeIndividual || q.Entity == domain.EntityTypeHUF) && s.RateIndividual > 0 {
			return s.RateIndividual, true
		}
		if s.RateCompany > 0 {
			return s.RateCompany, true
		}
	case "194J":
		if q.Technical && s.RateTechnical > 0 {
			return s.RateTechnical, true
		}
	}
	return s.Rate, true
}
