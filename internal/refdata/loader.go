package refdata

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"gstaudit/internal/domain"
	"gstaudit/internal/port"
)

// Files names the five reference datasets inside a Source.
type Files struct {
	Vendors string
	Rates   string
	Codes   string
	TDS     string
	Policy  string
}

// DefaultFiles are the conventional dataset names.
var DefaultFiles = Files{
	Vendors: "vendor_registry.json",
	Rates:   "gst_rates_schedule.csv",
	Codes:   "hsn_sac_codes.json",
	TDS:     "tds_sections.json",
	Policy:  "company_policy.yaml",
}

// Loader builds snapshots from a Source. When Repo is set, the HSN/SAC master
// and the rate schedule come from the database instead of the source files.
type Loader struct {
	Source Source
	Repo   port.ReferenceRepository
	Files  Files
	Now    func() time.Time
	Log    *zap.Logger
}

// NewLoader returns a loader over src using DefaultFiles.
func NewLoader(src Source, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{Source: src, Files: DefaultFiles, Now: time.Now, Log: log}
}

// Load reads and parses every dataset and returns a new snapshot. Any missing
// or malformed dataset fails the whole load.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	h := sha256.New()
	read := func(name string) ([]byte, error) {
		data, err := l.Source.ReadFile(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrReferenceUnavailable, err)
		}
		fmt.Fprintf(h, "%s:%d:", name, len(data))
		h.Write(data)
		return data, nil
	}

	data, err := read(l.Files.Vendors)
	if err != nil {
		return nil, err
	}
	vendors, err := ParseVendors(data)
	if err != nil {
		return nil, err
	}

	var rates []RateRecord
	var codes []HSNCode
	if l.Repo != nil {
		if rates, codes, err = l.loadFromRepo(ctx, h); err != nil {
			return nil, err
		}
	} else {
		if data, err = read(l.Files.Rates); err != nil {
			return nil, err
		}
		if rates, err = ParseRates(data); err != nil {
			return nil, err
		}
		if data, err = read(l.Files.Codes); err != nil {
			return nil, err
		}
		if strings.HasSuffix(strings.ToLower(l.Files.Codes), ".xlsx") {
			codes, err = ParseCodesWorkbook(bytes.NewReader(data))
		} else {
			codes, err = ParseCodes(data)
		}
		if err != nil {
			return nil, err
		}
	}

	if data, err = read(l.Files.TDS); err != nil {
		return nil, err
	}
	sections, err := ParseTDSSections(data)
	if err != nil {
		return nil, err
	}

	if data, err = read(l.Files.Policy); err != nil {
		return nil, err
	}
	policy, err := ParsePolicy(data)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Vendors:  NewVendorRegistry(vendors),
		Rates:    NewRateSchedule(rates),
		Codes:    NewHSNSACMaster(codes),
		TDS:      NewTDSRules(sections),
		Policy:   policy,
		Version:  hex.EncodeToString(h.Sum(nil))[:16],
		LoadedAt: l.now(),
	}
	st := snap.Stats()
	l.Log.Info("refdata: snapshot loaded",
		zap.String("source", l.Source.String()),
		zap.String("version", st.Version),
		zap.Int("vendors", st.Vendors),
		zap.Int("rate_codes", st.RateCodes),
		zap.Int("hsn_sac_codes", st.HSNCodes),
		zap.Int("tds_sections", st.Sections),
	)
	return snap, nil
}

func (l *Loader) now() time.Time {
	if l.Now == nil {
		return time.Now().UTC()
	}
	return l.Now().UTC()
}

func (l *Loader) loadFromRepo(ctx context.Context, h io.Writer) ([]RateRecord, []HSNCode, error) {
	rateRows, err := l.Repo.LoadRates(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: loading gst rates: %v", domain.ErrReferenceUnavailable, err)
	}
	codeRows, err := l.Repo.LoadCodes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: loading hsn/sac codes: %v", domain.ErrReferenceUnavailable, err)
	}
	rates := make([]RateRecord, 0, len(rateRows))
	for _, r := range rateRows {
		rates = append(rates, RateRecord{
			Code:          r.Code,
			Description:   r.Description,
			CGST:          r.CGST,
			SGST:          r.SGST,
			IGST:          r.IGST,
			EffectiveFrom: r.EffectiveFrom.UTC(),
			EffectiveTo:   utcPtr(r.EffectiveTo),
		})
		fmt.Fprintf(h, "rate:%s:%g:%g:%g:%s;", r.Code, r.CGST, r.SGST, r.IGST, r.EffectiveFrom.Format(time.DateOnly))
	}
	codes := make([]HSNCode, 0, len(codeRows))
	for _, c := range codeRows {
		codes = append(codes, HSNCode{
			Code:        c.Code,
			Kind:        CodeKind(strings.ToUpper(c.Kind)),
			Description: c.Description,
			Keywords:    splitList(c.Keywords),
		})
		fmt.Fprintf(h, "code:%s:%s;", c.Code, c.Description)
	}
	return rates, codes, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// date is a YYYY-MM-DD JSON date that tolerates null and "".
type date struct{ time.Time }

func (d *date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d *date) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

type vendorFile struct {
	Vendors []struct {
		VendorID          string `json:"vendor_id"`
		GSTIN             string `json:"gstin"`
		PAN               string `json:"pan"`
		LegalName         string `json:"legal_name"`
		Status            string `json:"status"`
		SuspensionDate    *date  `json:"suspension_date"`
		SuspensionReason  string `json:"suspension_reason"`
		VendorType        string `json:"vendor_type"`
		EntityType        string `json:"entity_type"`
		TDSSection        string `json:"tds_section"`
		MSMERegistered    bool   `json:"msme_registered"`
		CompositionScheme bool   `json:"composition_scheme"`
		GSTRegistered     *bool  `json:"gst_registered"`
		ResidentStatus    string `json:"resident_status"`
		LowerDeduction    *struct {
			Rate      float64 `json:"rate"`
			ValidFrom date    `json:"valid_from"`
			ValidTo   date    `json:"valid_to"`
		} `json:"lower_deduction_certificate"`
		InvoicesProcessed int  `json:"invoices_processed"`
		NonFiler206AB     bool `json:"non_filer_206ab"`
	} `json:"vendors"`
}

// ParseVendors decodes vendor_registry.json.
func ParseVendors(data []byte) ([]Vendor, error) {
	var f vendorFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing vendor registry: %w", err)
	}
	out := make([]Vendor, 0, len(f.Vendors))
	for _, v := range f.Vendors {
		vendor := Vendor{
			VendorID:          v.VendorID,
			GSTIN:             v.GSTIN,
			PAN:               v.PAN,
			LegalName:         v.LegalName,
			Status:            domain.VendorStatus(strings.ToUpper(v.Status)),
			SuspensionDate:    v.SuspensionDate.ptr(),
			SuspensionReason:  v.SuspensionReason,
			VendorType:        domain.VendorType(strings.ToUpper(v.VendorType)),
			EntityType:        domain.EntityType(strings.ToUpper(v.EntityType)),
			TDSSection:        strings.ToUpper(v.TDSSection),
			MSMERegistered:    v.MSMERegistered,
			CompositionScheme: v.CompositionScheme,
			GSTRegistered:     v.GSTRegistered == nil || *v.GSTRegistered,
			ResidentStatus:    domain.ResidentStatus(strings.ToUpper(v.ResidentStatus)),
			InvoicesProcessed: v.InvoicesProcessed,
			NonFiler206AB:     v.NonFiler206AB,
		}
		if vendor.Status == "" {
			vendor.Status = domain.VendorStatusActive
		}
		if vendor.ResidentStatus == "" {
			vendor.ResidentStatus = domain.ResidentStatusResident
		}
		if ld := v.LowerDeduction; ld != nil {
			vendor.LowerDeduction = &LowerDeduction{Rate: ld.Rate, ValidFrom: ld.ValidFrom.Time, ValidTo: ld.ValidTo.Time}
		}
		out = append(out, vendor)
	}
	return out, nil
}

var rateColumns = []string{"hsn_sac_code", "description", "rate_cgst", "rate_sgst", "rate_igst", "effective_from", "effective_to"}

// ParseRates decodes gst_rates_schedule.csv. Columns are matched by header name.
func ParseRates(data []byte) ([]RateRecord, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})))
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("parsing gst rates header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range rateColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("parsing gst rates: missing column %q", c)
		}
	}

	var out []RateRecord
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing gst rates line %d: %w", line, err)
		}
		get := func(c string) string { return strings.TrimSpace(row[idx[c]]) }
		rec := RateRecord{Code: get("hsn_sac_code"), Description: get("description")}
		if rec.Code == "" {
			continue
		}
		for c, dst := range map[string]*float64{"rate_cgst": &rec.CGST, "rate_sgst": &rec.SGST, "rate_igst": &rec.IGST} {
			if v := get(c); v != "" {
				if *dst, err = strconv.ParseFloat(v, 64); err != nil {
					return nil, fmt.Errorf("parsing gst rates line %d %s: %w", line, c, err)
				}
			}
		}
		if rec.EffectiveFrom, err = time.Parse(time.DateOnly, get("effective_from")); err != nil {
			return nil, fmt.Errorf("parsing gst rates line %d effective_from: %w", line, err)
		}
		if v := get("effective_to"); v != "" {
			to, err := time.Parse(time.DateOnly, v)
			if err != nil {
				return nil, fmt.Errorf("parsing gst rates line %d effective_to: %w", line, err)
			}
			rec.EffectiveTo = &to
		}
		out = append(out, rec)
	}
	return out, nil
}

type codeEntry struct {
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// ParseCodes decodes hsn_sac_codes.json: {"hsn_codes": {...}, "sac_codes": {...}}.
func ParseCodes(data []byte) ([]HSNCode, error) {
	var f struct {
		HSN map[string]codeEntry `json:"hsn_codes"`
		SAC map[string]codeEntry `json:"sac_codes"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing hsn/sac codes: %w", err)
	}
	out := make([]HSNCode, 0, len(f.HSN)+len(f.SAC))
	add := func(m map[string]codeEntry, kind CodeKind) {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, HSNCode{Code: k, Kind: kind, Description: m[k].Description, Keywords: m[k].Keywords})
		}
	}
	add(f.HSN, CodeKindHSN)
	add(f.SAC, CodeKindSAC)
	return out, nil
}

// ParseTDSSections decodes tds_sections.json.
func ParseTDSSections(data []byte) ([]TDSSection, error) {
	var f struct {
		Sections []struct {
			Section            string   `json:"section"`
			Description        string   `json:"description"`
			Rate               float64  `json:"rate"`
			RateCompany        float64  `json:"rate_company"`
			RateIndividual     float64  `json:"rate_individual"`
			RateTechnical      float64  `json:"rate_technical"`
			RateNoPAN          float64  `json:"rate_no_pan"`
			SingleThreshold    float64  `json:"threshold_single"`
			AggregateThreshold float64  `json:"threshold_aggregate"`
			Keywords           []string `json:"keywords"`
		} `json:"tds_sections"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing tds sections: %w", err)
	}
	out := make([]TDSSection, 0, len(f.Sections))
	for _, s := range f.Sections {
		out = append(out, TDSSection{
			Section:            s.Section,
			Description:        s.Description,
			Rate:               s.Rate,
			RateCompany:        s.RateCompany,
			RateIndividual:     s.RateIndividual,
			RateTechnical:      s.RateTechnical,
			RateNoPAN:          s.RateNoPAN,
			SingleThreshold:    s.SingleThreshold,
			AggregateThreshold: s.AggregateThreshold,
			Keywords:           s.Keywords,
		})
	}
	return out, nil
}

// ParsePolicy decodes company_policy.yaml and applies defaults.
func ParsePolicy(data []byte) (*CompanyPolicy, error) {
	var p CompanyPolicy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing company policy: %w", err)
	}
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
