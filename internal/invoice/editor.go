package invoice

import (
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrLastRow is returned when removing the only remaining row.
	ErrLastRow = errors.New("at least one product required")
	// ErrRowNotFound is returned for an unknown row id.
	ErrRowNotFound = errors.New("row not found")
	// ErrUnknownField is returned by ApplyEdit for a name that is not a row
	// input.
	ErrUnknownField = errors.New("unknown row field")
)

// Editor manages the product rows of one invoice form and keeps the summary
// current. An Editor always holds at least one row.
//
// Editors are not safe for concurrent use; each request builds its own.
type Editor struct {
	rows    []ProductRow
	summary Summary
	newID   func() string

	subs   map[int]func(Summary)
	nextID int
}

// Option configures an Editor.
type Option func(*Editor)

// WithIDGenerator overrides the row id source (uuid by default).
func WithIDGenerator(f func() string) Option {
	return func(e *Editor) {
		if f != nil {
			e.newID = f
		}
	}
}

// NewEditor returns an editor holding a single default row.
func NewEditor(opts ...Option) *Editor {
	e := newEditor(opts)
	e.rows = append(e.rows, e.defaultRow())
	e.recalculateRow(0)
	e.summary = Summarize(e.rows)
	return e
}

func newEditor(opts []Option) *Editor {
	e := &Editor{
		newID: func() string { return uuid.NewString() },
		subs:  map[int]func(Summary){},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Form field names carrying the row arrays.
const (
	FieldRowID    = "row_id"
	FieldName     = "name"
	FieldQuantity = "quantity"
	FieldPrice    = "price"
	FieldTaxRate  = "kdv"
)

// RowFields lists the per-row form keys; they are excluded from the native
// fields forwarded on submission.
var RowFields = []string{FieldRowID, FieldName, FieldQuantity, FieldPrice, FieldTaxRate}

// FromForm rebuilds an editor from posted row arrays. Rows are matched by
// position; a row without an id gets a fresh one. An empty post yields the
// default row.
func FromForm(form url.Values, opts ...Option) *Editor {
	e := newEditor(opts)
	ids := form[FieldRowID]
	names := form[FieldName]
	quantities := form[FieldQuantity]
	prices := form[FieldPrice]
	rates := form[FieldTaxRate]

	n := max(len(ids), len(names), len(quantities), len(prices), len(rates))
	for i := 0; i < n; i++ {
		row := ProductRow{
			ID:       at(ids, i),
			Name:     at(names, i),
			Quantity: at(quantities, i),
			Price:    at(prices, i),
			TaxRate:  NormalizeTaxRate(at(rates, i)),
		}
		if strings.TrimSpace(row.ID) == "" {
			row.ID = e.newID()
		}
		e.rows = append(e.rows, row)
	}
	if len(e.rows) == 0 {
		e.rows = append(e.rows, e.defaultRow())
	}
	for i := range e.rows {
		e.recalculateRow(i)
	}
	e.summary = Summarize(e.rows)
	return e
}

func at(vals []string, i int) string {
	if i < len(vals) {
		return vals[i]
	}
	return ""
}

func (e *Editor) defaultRow() ProductRow {
	return ProductRow{
		ID:       e.newID(),
		Quantity: DefaultQuantity,
		TaxRate:  DefaultTaxRate,
	}
}

// Rows returns a copy of the rows in display order.
func (e *Editor) Rows() []ProductRow {
	out := make([]ProductRow, len(e.rows))
	copy(out, e.rows)
	return out
}

// Len returns the number of rows.
func (e *Editor) Len() int { return len(e.rows) }

// Row returns the row with the given id.
func (e *Editor) Row(id string) (ProductRow, bool) {
	i := e.index(id)
	if i < 0 {
		return ProductRow{}, false
	}
	return e.rows[i], true
}

// Summary returns the last computed summary.
func (e *Editor) Summary() Summary { return e.summary }

// Subscribe registers fn to receive the summary after every recalculation.
// The returned func removes the subscription.
func (e *Editor) Subscribe(fn func(Summary)) func() {
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	return func() { delete(e.subs, id) }
}

// AddRow appends a row with default values and recomputes the summary.
func (e *Editor) AddRow() ProductRow {
	row := e.defaultRow()
	e.rows = append(e.rows, row)
	e.recalculateRow(len(e.rows) - 1)
	e.UpdateSummary()
	return e.rows[len(e.rows)-1]
}

// RemoveRow deletes the row with the given id. The last remaining row cannot
// be removed.
func (e *Editor) RemoveRow(id string) error {
	i := e.index(id)
	if i < 0 {
		return ErrRowNotFound
	}
	if len(e.rows) <= 1 {
		return ErrLastRow
	}
	e.rows = append(e.rows[:i], e.rows[i+1:]...)
	e.UpdateSummary()
	return nil
}

// SetName updates a row's product name. Names never affect totals, so no
// recalculation happens.
func (e *Editor) SetName(id, name string) error {
	i := e.index(id)
	if i < 0 {
		return ErrRowNotFound
	}
	e.rows[i].Name = name
	return nil
}

// SetQuantity updates a row's quantity and recalculates.
func (e *Editor) SetQuantity(id, quantity string) error {
	return e.edit(id, func(r *ProductRow) { r.Quantity = quantity })
}

// SetPrice updates a row's unit price and recalculates.
func (e *Editor) SetPrice(id, price string) error {
	return e.edit(id, func(r *ProductRow) { r.Price = price })
}

// SetTaxRate updates a row's tax rate and recalculates. Values outside the
// enumerated set fall back to the default rate.
func (e *Editor) SetTaxRate(id, rate string) error {
	return e.edit(id, func(r *ProductRow) { r.TaxRate = NormalizeTaxRate(rate) })
}

// ApplyEdit routes one input change on row id to the setter for field,
// which is one of the Field* form names.
func (e *Editor) ApplyEdit(id, field, value string) error {
	switch field {
	case FieldName:
		return e.SetName(id, value)
	case FieldQuantity:
		return e.SetQuantity(id, value)
	case FieldPrice:
		return e.SetPrice(id, value)
	case FieldTaxRate:
		return e.SetTaxRate(id, value)
	}
	return ErrUnknownField
}

func (e *Editor) edit(id string, apply func(*ProductRow)) error {
	i := e.index(id)
	if i < 0 {
		return ErrRowNotFound
	}
	apply(&e.rows[i])
	_, err := e.CalculateRowTotal(id)
	return err
}

// CalculateRowTotal recomputes one row's line total, stores its display
// text and then refreshes the summary.
func (e *Editor) CalculateRowTotal(id string) (float64, error) {
	i := e.index(id)
	if i < 0 {
		return 0, ErrRowNotFound
	}
	total := e.recalculateRow(i)
	e.UpdateSummary()
	return total, nil
}

// UpdateSummary recomputes the totals over all rows and notifies
// subscribers. Calling it again with unchanged rows yields the same summary.
func (e *Editor) UpdateSummary() Summary {
	e.summary = Summarize(e.rows)
	for _, fn := range e.subs {
		fn(e.summary)
	}
	return e.summary
}

// Refresh recomputes every row and the summary, as done once when the page
// is first rendered.
func (e *Editor) Refresh() Summary {
	for i := range e.rows {
		e.recalculateRow(i)
	}
	return e.UpdateSummary()
}

func (e *Editor) recalculateRow(i int) float64 {
	total := e.rows[i].LineTotal()
	e.rows[i].LineTotalText = FormatAmount(total)
	return total
}

func (e *Editor) index(id string) int {
	for i := range e.rows {
		if e.rows[i].ID == id {
			return i
		}
	}
	return -1
}
