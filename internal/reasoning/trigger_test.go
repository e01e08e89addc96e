package reasoning_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gstaudit/internal/reasoning"
	"gstaudit/internal/validator/invoice"
)

func lines(descriptions ...string) []invoice.LineItem {
	out := make([]invoice.LineItem, len(descriptions))
	for i, d := range descriptions {
		out[i] = invoice.LineItem{Description: d}
	}
	return out
}

func TestTrigger_Trips(t *testing.T) {
	trigger := reasoning.NewTrigger(0, nil)

	tests := []struct {
		name string
		inv  invoice.Invoice
		want bool
	}{
		{"simple", invoice.Invoice{LineItems: lines("Laptop", "Mouse")}, false},
		{"three_lines", invoice.Invoice{LineItems: lines("a", "b", "c")}, false},
		{"four_lines", invoice.Invoice{LineItems: lines("a", "b", "c", "d")}, true},
		{"reverse_charge", invoice.Invoice{ReverseCharge: true, LineItems: lines("Legal retainer")}, true},
		{"keyword", invoice.Invoice{LineItems: lines("Steel coils", "Transport charges")}, true},
		{"keyword_case_insensitive", invoice.Invoice{LineItems: lines("WAREHOUSE rent")}, true},
		{"bundle", invoice.Invoice{LineItems: lines("Software bundle")}, true},
		{"no_lines", invoice.Invoice{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trigger.Trips(&tt.inv))
		})
	}
}

func TestTrigger_Custom(t *testing.T) {
	trigger := reasoning.NewTrigger(1, []string{" Freight ", ""})
	assert.True(t, trigger.Trips(&invoice.Invoice{LineItems: lines("a", "b")}))
	assert.True(t, trigger.Trips(&invoice.Invoice{LineItems: lines("Inbound freight")}))
	assert.False(t, trigger.Trips(&invoice.Invoice{LineItems: lines("Transport")}))
}
