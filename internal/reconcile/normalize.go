package reconcile

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var invoicePattern = regexp.MustCompile(`(?i)INV\d+`)

// dateLayouts are tried in order; the first that parses wins, so day-first
// formats take precedence over month-first for ambiguous values.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
}

// Round2 rounds to two fractional digits, the canonical amount precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NormalizeAmount parses a raw amount string into a 2-decimal value.
// Currency symbols, thousands separators and surrounding whitespace are
// stripped. Unparsable input normalizes to 0.0, never an error.
func NormalizeAmount(raw string) float64 {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	if s == "" {
		return 0.0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return Round2(v)
}

// NormalizeDate converts a raw date string to ISO yyyy-mm-dd. Values that
// match none of the known layouts pass through unchanged (trimmed) so the
// original representation is preserved for reporting; empty stays empty.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// ExtractInvoiceID finds the first invoice token (letters "INV" followed by
// digits, any case) anywhere in text and returns its uppercase canonical
// form. An empty result means the text carries no invoice reference; this is
// the sole classifier of "is this a real invoice transaction".
func ExtractInvoiceID(text string) string {
	m := invoicePattern.FindString(text)
	if m == "" {
		return ""
	}
	return strings.ToUpper(m)
}
