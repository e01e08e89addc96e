package invoice

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	gstinPattern         = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][0-9]Z[0-9A-Z]$`)
	panPattern           = regexp.MustCompile(`^[A-Z]{5}\d{4}[A-Z]$`)
	tanPattern           = regexp.MustCompile(`^[A-Z]{4}\d{5}[A-Z]$`)
	ifscPattern          = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	hsnPattern           = regexp.MustCompile(`^\d{4}(\d{2})?(\d{2})?$`)
	irnPattern           = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
	invoiceNumberPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9/\-]{0,15}$`)
	leadingDigits        = regexp.MustCompile(`^\s*(\d{2})`)
	digitRun             = regexp.MustCompile(`\d+`)
)

// stateNames maps GST state codes to the state or union territory name.
var stateNames = map[string]string{
	"01": "Jammu and Kashmir", "02": "Himachal Pradesh", "03": "Punjab", "04": "Chandigarh",
	"05": "Uttarakhand", "06": "Haryana", "07": "Delhi", "08": "Rajasthan",
	"09": "Uttar Pradesh", "10": "Bihar", "11": "Sikkim", "12": "Arunachal Pradesh",
	"13": "Nagaland", "14": "Manipur", "15": "Mizoram", "16": "Tripura",
	"17": "Meghalaya", "18": "Assam", "19": "West Bengal", "20": "Jharkhand",
	"21": "Odisha", "22": "Chhattisgarh", "23": "Madhya Pradesh", "24": "Gujarat",
	"26": "Dadra and Nagar Haveli and Daman and Diu", "27": "Maharashtra", "29": "Karnataka",
	"30": "Goa", "31": "Lakshadweep", "32": "Kerala", "33": "Tamil Nadu",
	"34": "Puducherry", "35": "Andaman and Nicobar Islands", "36": "Telangana",
	"37": "Andhra Pradesh", "38": "Ladakh", "97": "Other Territory",
}

// stateAliases maps common abbreviations and alternate spellings to codes.
var stateAliases = map[string]string{
	"mh": "27", "ka": "29", "dl": "07", "new delhi": "07", "wb": "19", "tn": "33",
	"up": "09", "gj": "24", "kl": "32", "ts": "36", "tg": "36", "mp": "23",
	"orissa": "21", "pondicherry": "34", "ap": "37", "rj": "08", "hr": "06",
}

var stateByName = func() map[string]string {
	m := make(map[string]string, len(stateNames)+len(stateAliases))
	for code, name := range stateNames {
		m[strings.ToLower(name)] = code
	}
	for alias, code := range stateAliases {
		m[alias] = code
	}
	return m
}()

// StateCodeForName resolves a state name, abbreviation or two-digit code.
func StateCodeForName(state string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(state))
	if s == "" {
		return "", false
	}
	if _, ok := stateNames[s]; ok {
		return s, true
	}
	code, ok := stateByName[s]
	return code, ok
}

// StateCodeOf returns the state code from a party's GSTIN, or its declared
// state code when the GSTIN is too short.
func StateCodeOf(p Party) string {
	if len(p.GSTIN) >= 2 {
		return p.GSTIN[:2]
	}
	return p.StateCode
}

// PANFromGSTIN extracts characters 3-12 of a GSTIN.
func PANFromGSTIN(gstin string) string {
	if len(gstin) < 12 {
		return ""
	}
	return gstin[2:12]
}

// ValidGSTIN reports whether s matches the 15-character GSTIN layout.
func ValidGSTIN(s string) bool { return gstinPattern.MatchString(s) }

// ValidPAN reports whether s matches the 10-character PAN layout.
func ValidPAN(s string) bool { return panPattern.MatchString(s) }

// SequenceNumber returns the last run of digits in an invoice number, e.g.
// 118 for "TS/2024/118". ok is false when there is none or it overflows.
func SequenceNumber(number string) (seq int64, ok bool) {
	runs := digitRun.FindAllString(number, -1)
	if len(runs) == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(runs[len(runs)-1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseDate accepts the date layouts commonly produced by extraction.
func ParseDate(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02",
		"02-01-2006",
		"02/01/2006",
		"2006/01/02",
		"02 Jan 2006",
		"2 Jan 2006",
		"Jan 02, 2006",
		"January 02, 2006",
		"2006-01-02T15:04:05Z07:00",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, strings.TrimSpace(s)); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date: %s", s)
}

func within(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance+1e-9
}

func fmtf(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func rupees(v float64) string {
	return "Rs " + fmtf(v)
}

// pct formats a rate already expressed in percent.
func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func joinList(s []string) string {
	return strings.Join(s, ", ")
}

func normGSTIN(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// declaredStateCode resolves the state a party declares, preferring its
// explicit state code over the state name.
func declaredStateCode(p Party) (string, bool) {
	if c := strings.TrimSpace(p.StateCode); c != "" {
		if len(c) == 1 {
			c = "0" + c
		}
		return c, true
	}
	return StateCodeForName(p.State)
}

// PlaceOfSupplyCode resolves a place of supply such as "27", "27-Maharashtra"
// or "Maharashtra" to a state code.
func PlaceOfSupplyCode(pos string) (string, bool) {
	if m := leadingDigits.FindStringSubmatch(pos); m != nil {
		return m[1], true
	}
	name := strings.TrimSpace(pos)
	if i := strings.IndexAny(name, "(-"); i > 0 {
		name = strings.TrimSpace(name[:i])
	}
	return StateCodeForName(name)
}

// containsWord reports whether text contains phrase on word boundaries.
func containsWord(text, phrase string) bool {
	text, phrase = strings.ToLower(text), strings.ToLower(phrase)
	for start := 0; ; {
		i := strings.Index(text[start:], phrase)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(phrase)
		if (i == 0 || !isWordByte(text[i-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		start = i + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('0' <= b && b <= '9')
}
