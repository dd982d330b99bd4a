// Package submit packages invoice rows and form fields into a multipart
// request for the PDF service and delivers the generated document.
package submit

import (
	"strings"

	"github.com/diewo77/go-fatura/internal/invoice"
	"github.com/diewo77/go-fatura/validation"
)

// Product is one submitted line item. Field names are fixed by the PDF
// service contract; values are passed through as strings.
type Product struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
	KDV      string `json:"kdv"`
}

// Collect keeps the rows that have a name, a quantity and a price.
// The tax rate always has a value through the default selection.
func Collect(rows []invoice.ProductRow) []Product {
	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		v := make(validation.Violations)
		validation.Required(invoice.FieldName, row.Name, v)
		validation.Present(invoice.FieldQuantity, row.Quantity, v)
		validation.Present(invoice.FieldPrice, row.Price, v)
		if !v.Empty() {
			continue
		}
		products = append(products, Product{
			Name:     strings.TrimSpace(row.Name),
			Quantity: row.Quantity,
			Price:    row.Price,
			KDV:      row.TaxRate,
		})
	}
	return products
}
