package reasoning

import (
	"strings"

	"gstaudit/internal/validator/invoice"
)

// DefaultKeywords mark line descriptions that suggest a bundled or composite supply.
var DefaultKeywords = []string{"transport", "warehouse", "packing", "composite", "bundle"}

// DefaultMaxLineItems is the line count above which an invoice counts as complex.
const DefaultMaxLineItems = 3

// Trigger decides whether an invoice is complex enough to consult the
// reasoning service. It satisfies validator.Complexity.
type Trigger struct {
	maxLineItems int
	keywords     []string
}

// NewTrigger builds a trigger. Zero values fall back to the defaults.
func NewTrigger(maxLineItems int, keywords []string) *Trigger {
	if maxLineItems <= 0 {
		maxLineItems = DefaultMaxLineItems
	}
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	kw := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kw = append(kw, k)
		}
	}
	return &Trigger{maxLineItems: maxLineItems, keywords: kw}
}

// Trips reports whether inv has more than the configured number of lines, is
// under reverse charge, or has a line whose description names a keyword.
func (t *Trigger) Trips(inv *invoice.Invoice) bool {
	if len(inv.LineItems) > t.maxLineItems || inv.ReverseCharge {
		return true
	}
	for i := range inv.LineItems {
		desc := strings.ToLower(inv.LineItems[i].Description)
		for _, k := range t.keywords {
			if strings.Contains(desc, k) {
				return true
			}
		}
	}
	return false
}
