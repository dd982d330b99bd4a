// Package invoice holds the line-item editor: product rows, the row manager
// and the summary calculator.
package invoice

import (
	"math"
	"strconv"
	"strings"
)

// Row defaults applied by AddRow.
const (
	DefaultQuantity = "1"
	DefaultTaxRate  = "10"
)

// TaxRates lists the selectable tax (kdv) percentages in display order.
var TaxRates = []string{"0", "1", "8", "10", "20"}

// ProductRow is one line item. Field values are kept as the raw strings the
// form carries; numeric views are derived on demand.
type ProductRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
	TaxRate  string `json:"kdv"`

	// LineTotalText is the last computed line total, formatted to 2 decimals.
	LineTotalText string `json:"line_total"`
}

// QuantityValue returns the parsed quantity, 0 when missing or malformed.
func (r ProductRow) QuantityValue() float64 { return ParseAmount(r.Quantity) }

// PriceValue returns the parsed unit price, 0 when missing or malformed.
func (r ProductRow) PriceValue() float64 { return ParseAmount(r.Price) }

// TaxRateValue returns the tax rate as a percentage.
func (r ProductRow) TaxRateValue() float64 { return ParseAmount(r.TaxRate) }

// LineTotal calculates quantity × unit price (pre-tax).
func (r ProductRow) LineTotal() float64 {
	return r.QuantityValue() * r.PriceValue()
}

// TaxAmount calculates the tax owed on this line.
func (r ProductRow) TaxAmount() float64 {
	return r.LineTotal() * (r.TaxRateValue() / 100)
}

// ParseAmount parses a decimal form value. Empty, malformed and non-finite
// input all yield 0.
func ParseAmount(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// NormalizeTaxRate maps a posted tax rate onto the enumerated set, falling
// back to DefaultTaxRate.
func NormalizeTaxRate(s string) string {
	s = strings.TrimSpace(s)
	for _, rate := range TaxRates {
		if s == rate {
			return rate
		}
	}
	return DefaultTaxRate
}

// FormatAmount formats v with two decimals.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
