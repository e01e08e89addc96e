package port

import (
	"context"
	"time"
)

// HSNCodeRow is one row of the hsn_sac_codes table.
type HSNCodeRow struct {
	Code        string `db:"code"`
	Kind        string `db:"kind"`
	Description string `db:"description"`
	Keywords    string `db:"keywords"`
}

// RateRow is one row of the gst_rates table.
type RateRow struct {
	Code          string     `db:"code"`
	Description   string     `db:"description"`
	CGST          float64    `db:"cgst"`
	SGST          float64    `db:"sgst"`
	IGST          float64    `db:"igst"`
	EffectiveFrom time.Time  `db:"effective_from"`
	EffectiveTo   *time.Time `db:"effective_to"`
}

// ReferenceRepository serves the HSN/SAC master and the GST rate schedule
// from a database instead of flat files.
type ReferenceRepository interface {
	LoadCodes(ctx context.Context) ([]HSNCodeRow, error)
	LoadRates(ctx context.Context) ([]RateRow, error)
	ReplaceCodes(ctx context.Context, rows []HSNCodeRow) (int, error)
	ReplaceRates(ctx context.Context, rows []RateRow) (int, error)
}
