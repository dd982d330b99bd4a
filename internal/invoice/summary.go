package invoice

// DefaultCurrencyMarker is appended to every formatted summary amount.
const DefaultCurrencyMarker = "₺"

// Summary holds the aggregate totals derived from the current rows.
type Summary struct {
	Subtotal   float64 `json:"subtotal"`
	TaxTotal   float64 `json:"tax_total"`
	GrandTotal float64 `json:"grand_total"`
}

// FormattedSummary is the display form of a Summary.
type FormattedSummary struct {
	Subtotal   string `json:"subtotal"`
	TaxTotal   string `json:"tax_total"`
	GrandTotal string `json:"grand_total"`
}

// Summarize computes the totals over rows.
func Summarize(rows []ProductRow) Summary {
	var s Summary
	for _, row := range rows {
		s.Subtotal += row.LineTotal()
		s.TaxTotal += row.TaxAmount()
	}
	s.GrandTotal = s.Subtotal + s.TaxTotal
	return s
}

// Format renders each amount with two decimals and the currency marker,
// e.g. "110.00 ₺".
func (s Summary) Format(marker string) FormattedSummary {
	return FormattedSummary{
		Subtotal:   withMarker(s.Subtotal, marker),
		TaxTotal:   withMarker(s.TaxTotal, marker),
		GrandTotal: withMarker(s.GrandTotal, marker),
	}
}

func withMarker(v float64, marker string) string {
	if marker == "" {
		return FormatAmount(v)
	}
	return FormatAmount(v) + " " + marker
}
