package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/diewo77/go-fatura/httpx"
	"github.com/diewo77/go-fatura/i18n"
	"github.com/diewo77/go-fatura/internal/invoice"
	"github.com/diewo77/go-fatura/internal/submit"
	"github.com/diewo77/go-fatura/view"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	fieldFormID = "form_id"
	fieldAction = "action"
	fieldLogo   = "logo"

	fieldEditRow   = "edit_row"
	fieldEditField = "edit_field"
	fieldEditValue = "edit_value"

	actionAdd       = "add"
	actionRecalc    = "recalc"
	actionEdit      = "edit"
	actionRemovePfx = "remove:"
)

// companyFields are the native invoice fields echoed back into the form.
var companyFields = []string{"company_name", "company_address", "tax_office", "tax_number", "phone", "email"}

// RowObserver is notified of every editor row action.
type RowObserver interface {
	RowAction(action string, err error)
}

type nopRowObserver struct{}

func (nopRowObserver) RowAction(string, error) {}

// EditorHandler serves the invoice editor page and its form actions.
type EditorHandler struct {
	log       *zap.Logger
	pipeline  *submit.Pipeline
	rows      RowObserver
	marker    string
	maxUpload int64
}

// EditorOption configures an EditorHandler.
type EditorOption func(*EditorHandler)

// WithRowObserver registers an observer for row actions.
func WithRowObserver(o RowObserver) EditorOption {
	return func(h *EditorHandler) {
		if o != nil {
			h.rows = o
		}
	}
}

// WithCurrencyMarker sets the marker appended to summary amounts.
func WithCurrencyMarker(marker string) EditorOption {
	return func(h *EditorHandler) { h.marker = marker }
}

// WithMaxUpload caps the size of posted forms.
func WithMaxUpload(n int64) EditorOption {
	return func(h *EditorHandler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// NewEditorHandler returns a handler submitting through pipeline. A nil
// logger disables logging.
func NewEditorHandler(pipeline *submit.Pipeline, log *zap.Logger, opts ...EditorOption) *EditorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &EditorHandler{
		log:       log.Named("editor"),
		pipeline:  pipeline,
		rows:      nopRowObserver{},
		marker:    invoice.DefaultCurrencyMarker,
		maxUpload: 5 << 20,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Page renders a fresh editor holding the default row.
func (h *EditorHandler) Page(w http.ResponseWriter, r *http.Request) {
	ed := invoice.NewEditor()
	ed.Refresh()
	h.render(w, r, http.StatusOK, page{editor: ed, formID: uuid.NewString()})
}

// Apply handles the add, remove and recalc buttons of the editor form.
func (h *EditorHandler) Apply(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	ed := invoice.FromForm(r.Form)
	ed.Subscribe(func(s invoice.Summary) {
		h.log.Debug("summary updated", zap.Int("rows", ed.Len()), zap.Float64("grand_total", s.GrandTotal))
	})
	p := page{editor: ed, formID: formID(r), fields: echoFields(r)}
	lang := i18n.LangFromContext(r.Context())
	status := http.StatusOK

	action := r.FormValue(fieldAction)
	switch {
	case action == actionAdd:
		ed.AddRow()
		h.rows.RowAction(actionAdd, nil)
	case strings.HasPrefix(action, actionRemovePfx):
		err := ed.RemoveRow(strings.TrimPrefix(action, actionRemovePfx))
		h.rows.RowAction("remove", err)
		switch {
		case errors.Is(err, invoice.ErrLastRow):
			p.alert = i18n.T(lang, "at_least_one_product")
			status = http.StatusUnprocessableEntity
		case errors.Is(err, invoice.ErrRowNotFound):
			p.alert = i18n.T(lang, "row_not_found")
			status = http.StatusUnprocessableEntity
		}
	default:
		ed.Refresh()
		h.rows.RowAction(actionRecalc, nil)
	}
	h.render(w, r, status, p)
}

type rowTotal struct {
	ID        string `json:"id"`
	LineTotal string `json:"line_total"`
}

type summaryResponse struct {
	Rows    []rowTotal               `json:"rows"`
	Summary invoice.FormattedSummary `json:"summary"`
}

// Summary recalculates the posted rows and returns line totals and the
// formatted summary as JSON. When edit_row is set, the change named by
// edit_field and edit_value is applied to that row first; otherwise every row
// is recomputed.
func (h *EditorHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	ed := invoice.FromForm(r.Form)
	ed.Subscribe(func(s invoice.Summary) {
		h.log.Debug("summary updated", zap.Int("rows", ed.Len()), zap.Float64("grand_total", s.GrandTotal))
	})

	var sum invoice.Summary
	if id := r.FormValue(fieldEditRow); id != "" {
		err := ed.ApplyEdit(id, r.FormValue(fieldEditField), r.FormValue(fieldEditValue))
		h.rows.RowAction(actionEdit, err)
		if err != nil {
			httpx.JSONError(w, http.StatusUnprocessableEntity, "invalid_edit")
			return
		}
		sum = ed.Summary()
	} else {
		sum = ed.Refresh()
		h.rows.RowAction(actionRecalc, nil)
	}

	rows := ed.Rows()
	resp := summaryResponse{Rows: make([]rowTotal, 0, len(rows)), Summary: sum.Format(h.marker)}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, rowTotal{ID: row.ID, LineTotal: row.LineTotalText})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// Submit runs the submission pipeline for the posted form. On success the
// PDF is streamed as an attachment; otherwise the editor is re-rendered with
// the alert and the form left populated.
func (h *EditorHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	key := strings.TrimSpace(r.FormValue(fieldFormID))
	if key == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_form_id")
		return
	}
	ed := invoice.FromForm(r.Form)
	files, err := uploadedFiles(r)
	if err != nil {
		h.log.Warn("read upload", zap.Error(err))
		httpx.JSONError(w, http.StatusBadRequest, "invalid_upload")
		return
	}

	pres := &httpPresenter{w: w, log: h.log}
	req := submit.Request{
		Key:    key,
		Lang:   i18n.LangFromContext(r.Context()),
		Fields: nativeFields(r),
		Files:  files,
		Rows:   ed.Rows(),
	}
	err = h.pipeline.Submit(r.Context(), req, pres)
	if err == nil || pres.written {
		return
	}

	status := http.StatusBadGateway
	switch {
	case errors.Is(err, submit.ErrNoProducts):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, submit.ErrInProgress):
		status = http.StatusConflict
	}
	h.render(w, r, status, page{editor: ed, formID: req.Key, fields: echoFields(r), alert: pres.alert})
}

type page struct {
	editor *invoice.Editor
	formID string
	fields map[string]string
	alert  string
}

func (h *EditorHandler) render(w http.ResponseWriter, r *http.Request, status int, p page) {
	if p.fields == nil {
		p.fields = map[string]string{}
	}
	data := map[string]any{
		"Rows":    p.editor.Rows(),
		"Summary": p.editor.Summary().Format(h.marker),
		"FormID":  p.formID,
		"Fields":  p.fields,
		"Alert":   p.alert,
	}
	if err := view.Render(w, r, status, "index.html", data); err != nil {
		h.log.Error("render editor", zap.Error(err))
		http.Error(w, "Failed to render template: "+err.Error(), http.StatusInternalServerError)
	}
}

func (h *EditorHandler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if r.ContentLength > h.maxUpload {
		httpx.JSONError(w, http.StatusRequestEntityTooLarge, "request_too_large")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(1 << 20)
	} else {
		err = r.ParseForm()
	}
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httpx.JSONError(w, http.StatusRequestEntityTooLarge, "request_too_large")
		return false
	}
	h.log.Debug("parse form", zap.Error(err))
	httpx.JSONError(w, http.StatusBadRequest, "invalid_form")
	return false
}

func formID(r *http.Request) string {
	if id := strings.TrimSpace(r.FormValue(fieldFormID)); id != "" {
		return id
	}
	return uuid.NewString()
}

func echoFields(r *http.Request) map[string]string {
	out := make(map[string]string, len(companyFields))
	for _, k := range companyFields {
		out[k] = r.FormValue(k)
	}
	return out
}

// nativeFields returns every posted field except the row arrays and the
// editor's own control fields.
func nativeFields(r *http.Request) map[string][]string {
	skip := map[string]bool{
		fieldFormID: true, fieldAction: true, submit.ProductsField: true,
		fieldEditRow: true, fieldEditField: true, fieldEditValue: true,
	}
	for _, k := range invoice.RowFields {
		skip[k] = true
	}
	out := map[string][]string{}
	for k, v := range r.PostForm {
		if !skip[k] {
			out[k] = v
		}
	}
	return out
}

func uploadedFiles(r *http.Request) ([]submit.File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var files []submit.File
	for _, fh := range r.MultipartForm.File[fieldLogo] {
		if fh.Filename == "" {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, submit.File{
			Field:       fieldLogo,
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		})
	}
	return files, nil
}

// httpPresenter adapts the pipeline's presenter to an HTTP response.
type httpPresenter struct {
	w       http.ResponseWriter
	log     *zap.Logger
	alert   string
	written bool
}

func (p *httpPresenter) ShowLoading() { p.log.Debug("waiting on pdf service") }
func (p *httpPresenter) HideLoading() { p.log.Debug("pdf service returned") }

func (p *httpPresenter) Alert(msg string) { p.alert = msg }

func (p *httpPresenter) Download(d submit.Download) error {
	p.written = true
	return httpx.Attachment(p.w, d.Filename, d.ContentType, d.Body)
}
