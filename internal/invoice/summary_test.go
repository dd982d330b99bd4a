package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"  ", 0},
		{"12", 12},
		{" 2.5 ", 2.5},
		{"abc", 0},
		{"1,5", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"-3", -3},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAmount(tt.in))
		})
	}
}

func TestSummarize(t *testing.T) {
	rows := []ProductRow{
		{Quantity: "2", Price: "100", TaxRate: "20"}, // 200, 40
		{Quantity: "1", Price: "50", TaxRate: "10"},  // 50, 5
		{Quantity: "3", Price: "10", TaxRate: "8"},   // 30, 2.4
		{Quantity: "1", Price: "", TaxRate: "10"},    // 0, 0
	}
	s := Summarize(rows)
	assert.InDelta(t, 280.0, s.Subtotal, 1e-9)
	assert.InDelta(t, 47.4, s.TaxTotal, 1e-9)
	assert.InDelta(t, 327.4, s.GrandTotal, 1e-9)
}

func TestSummary_Format(t *testing.T) {
	s := Summary{Subtotal: 100, TaxTotal: 10, GrandTotal: 110}
	assert.Equal(t, FormattedSummary{
		Subtotal:   "100.00 ₺",
		TaxTotal:   "10.00 ₺",
		GrandTotal: "110.00 ₺",
	}, s.Format(DefaultCurrencyMarker))

	assert.Equal(t, "0.50", Summary{Subtotal: 0.5}.Format("").Subtotal)
}

func TestNormalizeTaxRate(t *testing.T) {
	for _, rate := range TaxRates {
		assert.Equal(t, rate, NormalizeTaxRate(rate))
	}
	assert.Equal(t, DefaultTaxRate, NormalizeTaxRate(""))
	assert.Equal(t, DefaultTaxRate, NormalizeTaxRate("18"))
}
