package refdata

import (
	"strings"
	"unicode"
)

// CodeKind distinguishes goods (HSN) from services (SAC).
type CodeKind string

const (
	CodeKindHSN CodeKind = "HSN"
	CodeKindSAC CodeKind = "SAC"
)

// HSNCode is one entry of the HSN/SAC master.
type HSNCode struct {
	Code        string
	Kind        CodeKind
	Description string
	Keywords    []string
}

// HSNSACMaster provides in-memory lookups over the HSN/SAC master list.
// It is immutable after construction and safe for concurrent access.
type HSNSACMaster struct {
	byCode map[string]HSNCode
}

// stopwords are ignored when deriving keywords from a description.
var stopwords = map[string]bool{
	"and": true, "or": true, "of": true, "the": true, "for": true, "in": true,
	"other": true, "with": true, "to": true, "a": true, "on": true, "not": true,
	"services": true, "service": true, "goods": true, "including": true,
}

// NewHSNSACMaster indexes codes. Entries without keywords get keywords
// derived from the first significant words of the description.
func NewHSNSACMaster(codes []HSNCode) *HSNSACMaster {
	m := make(map[string]HSNCode, len(codes))
	for i := range codes {
		c := codes[i]
		c.Code = strings.TrimSpace(c.Code)
		if len(c.Keywords) == 0 {
			c.Keywords = DeriveKeywords(c.Description, 3)
		} else {
			kw := make([]string, 0, len(c.Keywords))
			for _, k := range c.Keywords {
				kw = append(kw, strings.ToLower(strings.TrimSpace(k)))
			}
			c.Keywords = kw
		}
		m[c.Code] = c
	}
	return &HSNSACMaster{byCode: m}
}

// DeriveKeywords lower-cases description and returns up to n words that are
// not stopwords and at least three letters long.
func DeriveKeywords(description string, n int) []string {
	words := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var out []string
	for _, w := range words {
		if len(w) < 3 || stopwords[w] {
			continue
		}
		out = append(out, w)
		if len(out) == n {
			break
		}
	}
	return out
}

// Len returns the number of codes.
func (h *HSNSACMaster) Len() int { return len(h.byCode) }

// Lookup returns the entry for code. It checks the exact code first, then
// falls back from 8 to 6 to 4 digit prefixes.
func (h *HSNSACMaster) Lookup(code string) (HSNCode, bool) {
	code = strings.TrimSpace(code)
	if len(h.byCode) == 0 || code == "" {
		return HSNCode{}, false
	}
	if c, ok := h.byCode[code]; ok {
		return c, true
	}
	for _, prefixLen := range []int{6, 4} {
		if len(code) > prefixLen {
			if c, ok := h.byCode[code[:prefixLen]]; ok {
				return c, true
			}
		}
	}
	return HSNCode{}, false
}

// Exists reports whether the code (or a prefix of it) is in the master list.
func (h *HSNSACMaster) Exists(code string) bool {
	_, ok := h.Lookup(code)
	return ok
}
