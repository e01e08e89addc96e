package refdata

import (
	"sync/atomic"
	"time"
)

// Snapshot is an immutable bundle of the five reference datasets. A run reads
// exactly one snapshot; reloads build a new one and swap it in whole.
type Snapshot struct {
	Vendors  *VendorRegistry
	Rates    *RateSchedule
	Codes    *HSNSACMaster
	TDS      *TDSRules
	Policy   *CompanyPolicy
	Version  string
	LoadedAt time.Time
}

// Stats summarises a snapshot for health and reload responses.
type Stats struct {
	Version   string    `json:"version"`
	LoadedAt  time.Time `json:"loaded_at"`
	Vendors   int       `json:"vendors"`
	RateCodes int       `json:"rate_codes"`
	HSNCodes  int       `json:"hsn_sac_codes"`
	Sections  int       `json:"tds_sections"`
}

// Stats returns the dataset sizes of s.
func (s *Snapshot) Stats() Stats {
	return Stats{
		Version:   s.Version,
		LoadedAt:  s.LoadedAt,
		Vendors:   s.Vendors.Len(),
		RateCodes: s.Rates.Len(),
		HSNCodes:  s.Codes.Len(),
		Sections:  s.TDS.Len(),
	}
}

// Store publishes the current snapshot to concurrent readers.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore returns a store holding initial (which may be nil).
func NewStore(initial *Snapshot) *Store {
	s := &Store{}
	if initial != nil {
		s.current.Store(initial)
	}
	return s
}

// Current returns the published snapshot, or nil before the first load.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Swap publishes next and returns the snapshot it replaced.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	return s.current.Swap(next)
}
