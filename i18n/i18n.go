package i18n

import (
	"context"
	"strings"
)

// DefaultLang is used when no preference is known or a language is missing.
const DefaultLang = "tr"

type langKey struct{}

// WithLang returns a new context carrying the language code.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// LangFromContext returns the language stored in ctx, or DefaultLang.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(langKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}

var messages = map[string]map[string]string{
	"tr": {
		"required":                 "Zorunlu",
		"invoice":                  "Fatura",
		"company_info":             "Firma Bilgileri",
		"company_name":             "Firma Adı",
		"company_address":          "Adres",
		"tax_office":               "Vergi Dairesi",
		"tax_number":               "Vergi No",
		"phone":                    "Telefon",
		"email":                    "E-posta",
		"logo":                     "Logo",
		"products":                 "Ürünler",
		"product":                  "Ürün/Hizmet",
		"product_placeholder":      "Ürün adı",
		"quantity":                 "Miktar",
		"unit_price":               "Birim Fiyat",
		"kdv":                      "KDV %",
		"total":                    "Toplam",
		"subtotal":                 "Ara Toplam",
		"tax_total":                "KDV Toplamı",
		"grand_total":              "Genel Toplam",
		"add_row":                  "Ürün Ekle",
		"recalculate":              "Hesapla",
		"generate_pdf":             "PDF Oluştur",
		"loading":                  "PDF oluşturuluyor...",
		"at_least_one_product":     "En az bir ürün bulunmalıdır!",
		"add_at_least_one_product": "Lütfen en az bir ürün ekleyin!",
		"pdf_generation_error":     "PDF oluşturma hatası",
		"pdf_generation_failed":    "PDF oluşturulurken bir hata oluştu: ",
		"submit_in_progress":       "Bu form için bir PDF zaten oluşturuluyor.",
		"row_not_found":            "Ürün satırı bulunamadı.",
	},
	"en": {
		"required":                 "Required",
		"invoice":                  "Invoice",
		"company_info":             "Company Information",
		"company_name":             "Company Name",
		"company_address":          "Address",
		"tax_office":               "Tax Office",
		"tax_number":               "Tax Number",
		"phone":                    "Phone",
		"email":                    "Email",
		"logo":                     "Logo",
		"products":                 "Products",
		"product":                  "Product/Service",
		"product_placeholder":      "Product name",
		"quantity":                 "Quantity",
		"unit_price":               "Unit Price",
		"kdv":                      "Tax %",
		"total":                    "Total",
		"subtotal":                 "Subtotal",
		"tax_total":                "Tax Total",
		"grand_total":              "Grand Total",
		"add_row":                  "Add Product",
		"recalculate":              "Recalculate",
		"generate_pdf":             "Generate PDF",
		"loading":                  "Generating PDF...",
		"at_least_one_product":     "At least one product is required!",
		"add_at_least_one_product": "Please add at least one product!",
		"pdf_generation_error":     "PDF generation error",
		"pdf_generation_failed":    "An error occurred while generating the PDF: ",
		"submit_in_progress":       "A PDF is already being generated for this form.",
		"row_not_found":            "Product row not found.",
	},
}

// T translates code for lang. Unknown languages fall back to DefaultLang and
// unknown codes are returned unchanged.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLang][code]; ok {
		return s
	}
	return code
}

// Supported reports whether lang has a catalog.
func Supported(lang string) bool {
	_, ok := messages[lang]
	return ok
}

// MatchLanguage returns the first supported language in an Accept-Language
// header value.
func MatchLanguage(header string) (string, bool) {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		base := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if Supported(base) {
			return base, true
		}
	}
	return "", false
}
