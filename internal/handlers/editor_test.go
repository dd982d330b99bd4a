package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/diewo77/go-fatura/i18n"
	"github.com/diewo77/go-fatura/internal/submit"
	"github.com/diewo77/go-fatura/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePDFService struct {
	hits     atomic.Int32
	status   int
	products atomic.Value
	company  atomic.Value
	logo     atomic.Value
}

func (f *fakePDFService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	if err := r.ParseMultipartForm(1 << 20); err == nil {
		f.products.Store(r.FormValue("products"))
		f.company.Store(r.FormValue("company_name"))
		if fhs := r.MultipartForm.File["logo"]; len(fhs) == 1 {
			f.logo.Store(fhs[0].Filename)
		}
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = w.Write([]byte("%PDF-1.4"))
}

func newTestHandler(t *testing.T, svc http.Handler) *EditorHandler {
	t.Helper()
	view.SetBaseDir("../../templates")
	t.Cleanup(view.ResetForTests)
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)
	p := submit.NewPipeline(submit.NewClient(srv.URL, srv.Client()), nil)
	return NewEditorHandler(p, nil)
}

func formRequest(t *testing.T, target string, form url.Values, lang string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req.WithContext(i18n.WithLang(req.Context(), lang))
}

func multipartRequest(t *testing.T, target string, form url.Values, logo []byte, lang string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range form {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	if logo != nil {
		fw, err := mw.CreateFormFile("logo", "logo.png")
		require.NoError(t, err)
		_, err = fw.Write(logo)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req.WithContext(i18n.WithLang(req.Context(), lang))
}

func twoRowForm() url.Values {
	return url.Values{
		"form_id":      {"form-1"},
		"company_name": {"Acme"},
		"row_id":       {"a", "b"},
		"name":         {"Pen", "Paper"},
		"quantity":     {"1", "2"},
		"price":        {"100", "50"},
		"kdv":          {"10", "20"},
	}
}

func TestEditorPage(t *testing.T) {
	h := newTestHandler(t, &fakePDFService{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.Page(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Equal(t, 1, strings.Count(body, `class="product-row"`))
	assert.Contains(t, body, `<option value="10" selected>10</option>`)
	assert.Contains(t, body, `<span id="grandTotal">0.00 ₺</span>`)
	assert.Contains(t, body, `name="form_id"`)

	// edits are posted to the summary endpoint by the editor script
	assert.Contains(t, body, `data-summary-url="/editor/summary"`)
	assert.Contains(t, body, `<script src="/static/js/editor.js?v=`)
	assert.Contains(t, body, `class="product-quantity"`)
	assert.Contains(t, body, `class="product-price"`)
	assert.Contains(t, body, `class="product-kdv"`)
	assert.Contains(t, body, `<div id="loadingOverlay" class="loading-overlay"`)
	assert.Contains(t, body, "PDF oluşturuluyor...")
}

func TestEditorApply_AddRow(t *testing.T) {
	h := newTestHandler(t, &fakePDFService{})
	form := twoRowForm()
	form.Set("action", "add")
	w := httptest.NewRecorder()
	h.Apply(w, formRequest(t, "/editor", form, "en"))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Equal(t, 3, strings.Count(body, `class="product-row"`))
	assert.Contains(t, body, `<span id="subtotal">200.00 ₺</span>`)
	assert.Contains(t, body, `value="Acme"`)
	assert.Contains(t, body, `value="form-1"`)
}

func TestEditorApply_RemoveRow(t *testing.T) {
	h := newTestHandler(t, &fakePDFService{})
	form := twoRowForm()
	form.Set("action", "remove:a")
	w := httptest.NewRecorder()
	h.Apply(w, formRequest(t, "/editor", form, "en"))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, 1, strings.Count(body, `class="product-row"`))
	assert.Contains(t, body, `<span id="subtotal">100.00 ₺</span>`)
	assert.Contains(t, body, `<span id="totalKdv">20.00 ₺</span>`)
}

func TestEditorApply_RemoveLastRowWarns(t *testing.T) {
	h := newTestHandler(t, &fakePDFService{})
	form := url.Values{"row_id": {"a"}, "name": {"Pen"}, "quantity": {"1"}, "price": {"100"}, "kdv": {"10"}, "action": {"remove:a"}}
	w := httptest.NewRecorder()
	h.Apply(w, formRequest(t, "/editor", form, "en"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "At least one product is required!")
	assert.Equal(t, 1, strings.Count(body, `class="product-row"`))
	assert.Contains(t, body, `<span id="grandTotal">110.00 ₺</span>`)
}

func TestEditorSummary_JSON(t *testing.T) {
	h := newTestHandler(t, &fakePDFService{})
	w := httptest.NewRecorder()
	h.Summary(w, formRequest(t, "/editor/summary", twoRowForm(), "en"))

	require.Equal(t, http.StatusOK, w.Code)
	var resp summaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "200.00 ₺", resp.Summary.Subtotal)
	assert.Equal(t, "30.00 ₺", resp.Summary.TaxTotal)
	assert.Equal(t, "230.00 ₺", resp.Summary.GrandTotal)
	assert.Equal(t, []rowTotal{{ID: "a", LineTotal: "100.00"}, {ID: "b", LineTotal: "100.00"}}, resp.Rows)
}

func TestEditorSummary_ApplyEdit(t *testing.T) {
	h := newTestHandler(t, &fakePDFService{})
	form := twoRowForm()
	form.Set("edit_row", "b")
	form.Set("edit_field", "quantity")
	form.Set("edit_value", "4")
	w := httptest.NewRecorder()
	h.Summary(w, formRequest(t, "/editor/summary", form, "en"))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp summaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []rowTotal{{ID: "a", LineTotal: "100.00"}, {ID: "b", LineTotal: "200.00"}}, resp.Rows)
	assert.Equal(t, "300.00 ₺", resp.Summary.Subtotal)
	assert.Equal(t, "50.00 ₺", resp.Summary.TaxTotal)
	assert.Equal(t, "350.00 ₺", resp.Summary.GrandTotal)
}

func TestEditorSummary_InvalidEdit(t *testing.T) {
	h := newTestHandler(t, &fakePDFService{})
	for _, tc := range []struct{ row, field string }{
		{"missing", "price"},
		{"a", "row_id"},
	} {
		form := twoRowForm()
		form.Set("edit_row", tc.row)
		form.Set("edit_field", tc.field)
		form.Set("edit_value", "1")
		w := httptest.NewRecorder()
		h.Summary(w, formRequest(t, "/editor/summary", form, "en"))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, tc.row+"/"+tc.field)
		assert.JSONEq(t, `{"error":"invalid_edit"}`, w.Body.String())
	}
}

func TestEditorSubmit_Success(t *testing.T) {
	svc := &fakePDFService{}
	h := newTestHandler(t, svc)
	w := httptest.NewRecorder()
	h.Submit(w, multipartRequest(t, "/invoice", twoRowForm(), []byte("png"), "en"))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	cd := w.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(cd, `attachment; filename="invoice_`), cd)
	assert.True(t, strings.HasSuffix(cd, `.pdf"`), cd)
	assert.Equal(t, "%PDF-1.4", w.Body.String())

	assert.Equal(t, int32(1), svc.hits.Load())
	assert.Equal(t, "Acme", svc.company.Load())
	assert.Equal(t, "logo.png", svc.logo.Load())
	assert.JSONEq(t, `[
		{"name":"Pen","quantity":"1","price":"100","kdv":"10"},
		{"name":"Paper","quantity":"2","price":"50","kdv":"20"}
	]`, svc.products.Load().(string))
}

func TestEditorSubmit_NoValidProducts(t *testing.T) {
	svc := &fakePDFService{}
	h := newTestHandler(t, svc)
	form := url.Values{"form_id": {"form-2"}, "row_id": {"a"}, "name": {"   "}, "quantity": {"1"}, "price": {"100"}, "kdv": {"10"}}
	w := httptest.NewRecorder()
	h.Submit(w, multipartRequest(t, "/invoice", form, nil, "tr"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Lütfen en az bir ürün ekleyin!")
	assert.Equal(t, int32(0), svc.hits.Load())
}

func TestEditorSubmit_ServiceFailure(t *testing.T) {
	svc := &fakePDFService{status: http.StatusInternalServerError}
	h := newTestHandler(t, svc)
	w := httptest.NewRecorder()
	h.Submit(w, multipartRequest(t, "/invoice", twoRowForm(), nil, "en"))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "An error occurred while generating the PDF: PDF generation error")
	// the form stays populated for a retry
	assert.Equal(t, 2, strings.Count(body, `class="product-row"`))
	assert.Contains(t, body, `value="Acme"`)
}

func TestEditorSubmit_MissingFormID(t *testing.T) {
	svc := &fakePDFService{}
	h := newTestHandler(t, svc)
	form := twoRowForm()
	form.Del("form_id")
	w := httptest.NewRecorder()
	h.Submit(w, multipartRequest(t, "/invoice", form, nil, "en"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"missing_form_id"}`, w.Body.String())
	assert.Equal(t, int32(0), svc.hits.Load())
}

func TestEditorSubmit_TooLarge(t *testing.T) {
	srv := httptest.NewServer(&fakePDFService{})
	defer srv.Close()
	p := submit.NewPipeline(submit.NewClient(srv.URL, srv.Client()), nil)
	h := NewEditorHandler(p, nil, WithMaxUpload(64))

	form := twoRowForm()
	form.Set("company_address", strings.Repeat("x", 512))
	w := httptest.NewRecorder()
	h.Submit(w, multipartRequest(t, "/invoice", form, nil, "en"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestNativeFields(t *testing.T) {
	req := formRequest(t, "/invoice", twoRowForm(), "en")
	require.NoError(t, req.ParseForm())
	got := nativeFields(req)
	assert.Equal(t, map[string][]string{"company_name": {"Acme"}}, got)

	form := twoRowForm()
	form.Set("edit_row", "a")
	req = formRequest(t, "/invoice", form, "en")
	require.NoError(t, req.ParseForm())
	assert.Equal(t, map[string][]string{"company_name": {"Acme"}}, nativeFields(req))
}
