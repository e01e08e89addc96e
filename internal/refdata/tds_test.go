package refdata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gstaudit/internal/domain"
	"gstaudit/internal/refdata"
)

func tdsRules() *refdata.TDSRules {
	return refdata.NewTDSRules([]refdata.TDSSection{
		{Section: "194C", Rate: 2, RateCompany: 2, RateIndividual: 1},
		{Section: "194j", Rate: 10, RateTechnical: 2},
		{Section: "194H", Rate: 5, RateNoPAN: 25},
	})
}

func TestTDSRules_Rate(t *testing.T) {
	r := tdsRules()

	tests := []struct {
		name string
		q    refdata.RateQuery
		want float64
	}{
		{"contractor company", refdata.RateQuery{Section: "194C", Entity: domain.EntityTypeCompany, HasPAN: true}, 2},
		{"contractor individual", refdata.RateQuery{Section: "194C", Entity: domain.EntityTypeIndividual, HasPAN: true}, 1},
		{"contractor huf", refdata.RateQuery{Section: "194C", Entity: domain.EntityTypeHUF, HasPAN: true}, 1},
		{"professional", refdata.RateQuery{Section: "194J", HasPAN: true}, 10},
		{"technical", refdata.RateQuery{Section: "194J", Technical: true, HasPAN: true}, 2},
		{"no pan default", refdata.RateQuery{Section: "194J"}, 20},
		{"no pan section override", refdata.RateQuery{Section: "194H"}, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Rate(tt.q)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := r.Rate(refdata.RateQuery{Section: "194Z", HasPAN: true})
	assert.False(t, ok)
}

func TestTDSRules_Sections(t *testing.T) {
	assert.Equal(t, []string{"194C", "194H", "194J"}, tdsRules().Sections())
}

func TestNewTDSRules_LeavesInputUntouched(t *testing.T) {
	keywords := []string{"Contract", "LABOUR Supply"}
	in := []refdata.TDSSection{{Section: "194C", Rate: 2, Keywords: keywords}}
	r := refdata.NewTDSRules(in)

	assert.Equal(t, []string{"Contract", "LABOUR Supply"}, keywords)
	assert.Equal(t, "194C", in[0].Section)
	s, ok := r.Section("194c")
	assert.True(t, ok)
	assert.Equal(t, []string{"contract", "labour supply"}, s.Keywords)
}
