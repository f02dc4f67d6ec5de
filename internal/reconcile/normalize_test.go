package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"plain", "500.00", 500.00},
		{"currency symbol", "$1,250.50", 1250.50},
		{"thousands separators", "12,345,678.9", 12345678.9},
		{"negative", "-25.00", -25.00},
		{"rounds to two decimals", "99.999", 100.00},
		{"whitespace", "  42.10  ", 42.10},
		{"empty", "", 0.0},
		{"garbage", "twelve dollars", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NormalizeAmount(tt.raw), 1e-9)
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"already iso", "2024-01-15", "2024-01-15"},
		{"slash day first", "15/01/2024", "2024-01-15"},
		{"slash month first", "01/15/2024", "2024-01-15"},
		{"dash day first", "15-01-2024", "2024-01-15"},
		{"ambiguous prefers day first", "03/04/2024", "2024-04-03"},
		{"unparsable passes through", "sometime in May", "sometime in May"},
		{"empty stays empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.raw))
		})
	}
}

func TestExtractInvoiceID(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"embedded", "Payment for INV1023 received", "INV1023"},
		{"lowercase", "payment inv88", "INV88"},
		{"mixed case", "Inv0042 settlement", "INV0042"},
		{"first of several", "INV1 then INV2", "INV1"},
		{"absent", "monthly bank fee", ""},
		{"empty", "", ""},
		{"no digits after prefix", "INVOICE pending", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractInvoiceID(tt.text))
		})
	}
}

func TestRound2(t *testing.T) {
	assert.InDelta(t, 0.01, Round2(0.005), 1e-9)
	assert.InDelta(t, 1.23, Round2(1.2349), 1e-9)
	assert.InDelta(t, -2.50, Round2(-2.499), 1e-9)
}
