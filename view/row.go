package view

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/diewo77/go-fatura/i18n"
	"github.com/diewo77/go-fatura/internal/invoice"
)

//go:embed row.html
var rowSource string

var rowTemplate = template.Must(template.New("row").Parse(rowSource))

// RenderRow returns the markup of one editor row. The output depends only on
// lang and row.
func RenderRow(lang string, row invoice.ProductRow) (template.HTML, error) {
	var buf bytes.Buffer
	err := rowTemplate.Execute(&buf, map[string]any{
		"Row":         row,
		"TaxRates":    invoice.TaxRates,
		"Placeholder": i18n.T(lang, "product_placeholder"),
	})
	if err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func renderRowAny(lang string, v any) (template.HTML, error) {
	switch row := v.(type) {
	case invoice.ProductRow:
		return RenderRow(lang, row)
	case *invoice.ProductRow:
		if row == nil {
			return "", nil
		}
		return RenderRow(lang, *row)
	default:
		return "", fmt.Errorf("productRow: unsupported value %T", v)
	}
}
