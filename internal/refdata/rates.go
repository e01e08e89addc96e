package refdata

import (
	"sort"
	"strings"
	"time"
)

// RateRecord is one row of the GST rate schedule. The record applies on
// [EffectiveFrom, EffectiveTo); a nil EffectiveTo is open-ended.
type RateRecord struct {
	Code          string
	Description   string
	CGST          float64
	SGST          float64
	IGST          float64
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
}

// Covers reports whether d falls inside the record's validity window.
func (r *RateRecord) Covers(d time.Time) bool {
	if d.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || d.Before(*r.EffectiveTo)
}

// Total is the combined GST rate in percent.
func (r *RateRecord) Total() float64 {
	if r.IGST > 0 {
		return r.IGST
	}
	return r.CGST + r.SGST
}

// RateLookup is the answer of GetRate. Historical is set when no window
// covered the requested date and the closest record was returned instead.
type RateLookup struct {
	Record     RateRecord
	Historical bool
}

// RateSchedule answers temporal rate queries.
type RateSchedule struct {
	byCode map[string][]RateRecord
}

// NewRateSchedule indexes records by code, ordered by effective date.
func NewRateSchedule(records []RateRecord) *RateSchedule {
	m := make(map[string][]RateRecord)
	for i := range records {
		r := records[i]
		r.Code = strings.TrimSpace(r.Code)
		m[r.Code] = append(m[r.Code], r)
	}
	for code := range m {
		recs := m[code]
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].EffectiveFrom.Before(recs[j].EffectiveFrom)
		})
	}
	return &RateSchedule{byCode: m}
}

// Len returns the number of distinct codes.
func (s *RateSchedule) Len() int { return len(s.byCode) }

// Has reports whether any record exists for code.
func (s *RateSchedule) Has(code string) bool {
	_, ok := s.byCode[strings.TrimSpace(code)]
	return ok
}

// GetRate returns the record in force for code on asOf. When several windows
// cover the date, the latest effective_from wins. When none does, the latest
// record starting on or before asOf (or the earliest record) is returned with
// Historical set. Unknown codes yield *NotFoundError.
func (s *RateSchedule) GetRate(code string, asOf time.Time) (RateLookup, error) {
	recs, ok := s.byCode[strings.TrimSpace(code)]
	if !ok || len(recs) == 0 {
		return RateLookup{}, &NotFoundError{Dataset: "gst rate schedule", Key: code}
	}
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].Covers(asOf) {
			return RateLookup{Record: recs[i]}, nil
		}
	}
	for i := len(recs) - 1; i >= 0; i-- {
		if !recs[i].EffectiveFrom.After(asOf) {
			return RateLookup{Record: recs[i], Historical: true}, nil
		}
	}
	return RateLookup{Record: recs[0], Historical: true}, nil
}
