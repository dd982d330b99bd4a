package main

import (
	"net/http"

	"github.com/diewo77/go-fatura/httpx"
	"github.com/diewo77/go-fatura/i18n"
	"github.com/diewo77/go-fatura/internal/config"
	"github.com/diewo77/go-fatura/internal/handlers"
	"github.com/diewo77/go-fatura/internal/metrics"
	"github.com/diewo77/go-fatura/internal/submit"
	"github.com/diewo77/go-fatura/static"
	"github.com/diewo77/go-fatura/view"
	"go.uber.org/zap"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux         *http.ServeMux
	cfg         *config.Config
	metrics     *metrics.Metrics
	editor      *handlers.EditorHandler
	defaultLang string
}

// NewApp creates a new application with all routes configured.
func NewApp(cfg *config.Config, pipeline *submit.Pipeline, m *metrics.Metrics, logger *zap.Logger) *App {
	view.SetDev(cfg.App.Dev)
	app := &App{
		mux:     http.NewServeMux(),
		cfg:     cfg,
		metrics: m,
		editor: handlers.NewEditorHandler(pipeline, logger,
			handlers.WithRowObserver(m),
			handlers.WithCurrencyMarker(cfg.App.CurrencyMarker),
			handlers.WithMaxUpload(cfg.Server.MaxUploadBytes)),
		defaultLang: cfg.App.DefaultLang,
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	withPreferences(a.defaultLang, a.mux).ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Editor
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /{$}", a.editor.Page)
	a.mux.HandleFunc("POST /editor", a.editor.Apply)
	a.mux.HandleFunc("POST /editor/summary", a.editor.Summary)
	a.mux.HandleFunc("POST /invoice", a.editor.Submit)
	a.mux.Handle("GET /static/", http.StripPrefix("/static/", static.Handler()))

	// ─────────────────────────────────────────────────────────────────────────
	// Operations
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	a.mux.Handle("GET /metrics", a.metrics.Handler())
}

// withPreferences injects language and theme preferences. Language comes
// from query, cookie or Accept-Language, in that order; theme from query or
// cookie.
func withPreferences(defaultLang string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		lang := defaultLang
		if match, ok := i18n.MatchLanguage(r.Header.Get("Accept-Language")); ok {
			lang = match
		}
		if c, err := r.Cookie("lang"); err == nil && i18n.Supported(c.Value) {
			lang = c.Value
		}
		if q := r.URL.Query().Get("lang"); i18n.Supported(q) {
			lang = q
			http.SetCookie(w, &http.Cookie{
				Name:     "lang",
				Value:    lang,
				Path:     "/",
				MaxAge:   86400 * 365,
				HttpOnly: true,
			})
		}
		ctx = i18n.WithLang(ctx, lang)

		if c, err := r.Cookie("theme"); err == nil && view.ValidTheme(c.Value) {
			ctx = view.WithTheme(ctx, c.Value)
		}
		if q := r.URL.Query().Get("theme"); view.ValidTheme(q) {
			ctx = view.WithTheme(ctx, q)
			http.SetCookie(w, &http.Cookie{
				Name:     "theme",
				Value:    q,
				Path:     "/",
				MaxAge:   86400 * 365,
				HttpOnly: true,
			})
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
