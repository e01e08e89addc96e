package refdata

import (
	"sort"
	"strings"
	"time"

	"gstaudit/internal/domain"
)

// LowerDeduction is a lower/nil TDS deduction certificate held by a vendor.
type LowerDeduction struct {
	Rate      float64
	ValidFrom time.Time
	ValidTo   time.Time
}

// Covers reports whether d falls inside the certificate's validity (inclusive).
func (l *LowerDeduction) Covers(d time.Time) bool {
	return !d.Before(l.ValidFrom) && !d.After(l.ValidTo)
}

// Vendor is one record of the vendor registry.
type Vendor struct {
	VendorID          string
	GSTIN             string
	PAN               string
	LegalName         string
	Status            domain.VendorStatus
	SuspensionDate    *time.Time
	SuspensionReason  string
	VendorType        domain.VendorType
	EntityType        domain.EntityType
	TDSSection        string
	MSMERegistered    bool
	CompositionScheme bool
	GSTRegistered     bool
	ResidentStatus    domain.ResidentStatus
	LowerDeduction    *LowerDeduction
	InvoicesProcessed int
	NonFiler206AB     bool
}

// VendorRegistry indexes vendors by GSTIN and PAN. It is immutable after
// construction and safe for concurrent access.
type VendorRegistry struct {
	byGSTIN map[string]*Vendor
	byPAN   map[string][]string
}

// NewVendorRegistry builds the GSTIN and PAN indexes. Later duplicates of a
// GSTIN replace earlier ones.
func NewVendorRegistry(vendors []Vendor) *VendorRegistry {
	r := &VendorRegistry{
		byGSTIN: make(map[string]*Vendor, len(vendors)),
		byPAN:   make(map[string][]string),
	}
	for i := range vendors {
		v := vendors[i]
		v.GSTIN = strings.ToUpper(strings.TrimSpace(v.GSTIN))
		v.PAN = strings.ToUpper(strings.TrimSpace(v.PAN))
		if v.GSTIN == "" {
			continue
		}
		if _, dup := r.byGSTIN[v.GSTIN]; !dup && v.PAN != "" {
			r.byPAN[v.PAN] = append(r.byPAN[v.PAN], v.GSTIN)
		}
		r.byGSTIN[v.GSTIN] = &v
	}
	for pan := range r.byPAN {
		sort.Strings(r.byPAN[pan])
	}
	return r
}

// Len returns the number of vendors.
func (r *VendorRegistry) Len() int { return len(r.byGSTIN) }

// Get returns the vendor registered under gstin.
func (r *VendorRegistry) Get(gstin string) (Vendor, bool) {
	v, ok := r.byGSTIN[strings.ToUpper(strings.TrimSpace(gstin))]
	if !ok {
		return Vendor{}, false
	}
	return *v, true
}

// IsRelatedParty is true iff another vendor record shares this vendor's PAN.
func (r *VendorRegistry) IsRelatedParty(gstin string) bool {
	return len(r.RelatedGSTINs(gstin)) > 0
}

// RelatedGSTINs lists the other GSTINs registered under the same PAN.
func (r *VendorRegistry) RelatedGSTINs(gstin string) []string {
	v, ok := r.Get(gstin)
	if !ok || v.PAN == "" {
		return nil
	}
	var out []string
	for _, g := range r.byPAN[v.PAN] {
		if g != v.GSTIN {
			out = append(out, g)
		}
	}
	return out
}

// IsFirstTime is true when the vendor is unknown or has no processed invoices.
func (r *VendorRegistry) IsFirstTime(gstin string) bool {
	v, ok := r.Get(gstin)
	return !ok || v.InvoicesProcessed == 0
}
