package refdata

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gstaudit/internal/port"
)

// GSTLaunch is the effective date assigned to rates read from the master workbook.
var GSTLaunch = time.Date(2017, time.July, 1, 0, 0, 0, 0, time.UTC)

// Workbook is the content of the government HSN/SAC summary workbook.
type Workbook struct {
	Codes []HSNCode
	Rates []RateRecord
}

// Column layout of the HSN sheet (first sheet, data from row 6) and the
// SAC_Master sheet (data from row 4).
const (
	hsnFirstRow = 5
	hsnCode4    = 5
	hsnDesc4    = 7
	hsnCode6    = 8
	hsnDesc6    = 9
	hsnCode8    = 10
	hsnDesc8    = 12
	hsnRate     = 13

	sacSheet    = "SAC_Master"
	sacFirstRow = 3
	sacCode4    = 0
	sacDesc4    = 1
	sacCode6    = 2
	sacDesc6    = 3
	sacRate     = 4
)

var percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

// ParseCodesWorkbook reads only the code master from an xlsx workbook.
func ParseCodesWorkbook(r io.Reader) ([]HSNCode, error) {
	wb, err := ParseWorkbook(r)
	if err != nil {
		return nil, err
	}
	return wb.Codes, nil
}

// ParseWorkbook reads the HSN (goods) and SAC (services) sheets. Each code
// becomes one master entry; its first parseable rate becomes a rate record
// effective from GSTLaunch, split evenly into CGST and SGST.
func ParseWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening hsn/sac workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	wb := &Workbook{}
	seen := make(map[string]bool)

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("reading hsn sheet: %w", err)
	}
	for i := hsnFirstRow; i < len(rows); i++ {
		row := rows[i]
		rates := ParseRateText(cell(row, hsnRate))
		if len(rates) == 0 {
			continue
		}
		for _, c := range [][2]int{{hsnCode8, hsnDesc8}, {hsnCode6, hsnDesc6}, {hsnCode4, hsnDesc4}} {
			wb.add(seen, CodeKindHSN, cell(row, c[0]), cell(row, c[1]), rates[0])
		}
	}

	if idx, _ := f.GetSheetIndex(sacSheet); idx >= 0 {
		rows, err = f.GetRows(sacSheet)
		if err != nil {
			return nil, fmt.Errorf("reading sac sheet: %w", err)
		}
		for i := sacFirstRow; i < len(rows); i++ {
			row := rows[i]
			rates := ParseRateText(cell(row, sacRate))
			if len(rates) == 0 {
				continue
			}
			for _, c := range [][2]int{{sacCode6, sacDesc6}, {sacCode4, sacDesc4}} {
				wb.add(seen, CodeKindSAC, cell(row, c[0]), cell(row, c[1]), rates[0])
			}
		}
	}
	return wb, nil
}

func (wb *Workbook) add(seen map[string]bool, kind CodeKind, code, desc string, rate float64) {
	if !isDigits(code) || seen[code] {
		return
	}
	seen[code] = true
	wb.Codes = append(wb.Codes, HSNCode{Code: code, Kind: kind, Description: desc})
	wb.Rates = append(wb.Rates, RateRecord{
		Code:          code,
		Description:   desc,
		CGST:          rate / 2,
		SGST:          rate / 2,
		IGST:          rate,
		EffectiveFrom: GSTLaunch,
	})
}

// ParseRateText extracts the percentages from free-text rate cells such as
// "18%", "Exempt" or "5% (without ITC) or 18%".
func ParseRateText(s string) []float64 {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return nil
	case "exempt", "nil":
		return []float64{0}
	}
	var out []float64
	for _, m := range percentPattern.FindAllStringSubmatch(s, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		// Percent-formatted cells come back as fractions, e.g. "0.18".
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			if v > 0 && v < 1 {
				v *= 100
			}
			out = append(out, v)
		}
	}
	return out
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CodeRows converts the code master to database rows.
func (wb *Workbook) CodeRows() []port.HSNCodeRow {
	rows := make([]port.HSNCodeRow, 0, len(wb.Codes))
	for _, c := range wb.Codes {
		rows = append(rows, port.HSNCodeRow{
			Code:        c.Code,
			Kind:        string(c.Kind),
			Description: c.Description,
			Keywords:    strings.Join(c.Keywords, ","),
		})
	}
	return rows
}

// RateRows converts the rate records to database rows.
func (wb *Workbook) RateRows() []port.RateRow {
	rows := make([]port.RateRow, 0, len(wb.Rates))
	for _, r := range wb.Rates {
		rows = append(rows, port.RateRow{
			Code:          r.Code,
			Description:   r.Description,
			CGST:          r.CGST,
			SGST:          r.SGST,
			IGST:          r.IGST,
			EffectiveFrom: r.EffectiveFrom,
			EffectiveTo:   r.EffectiveTo,
		})
	}
	return rows
}
