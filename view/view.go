package view

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/diewo77/go-fatura/i18n"
	"github.com/diewo77/go-fatura/static"
)

// Context key for theme
type themeKey struct{}

// WithTheme returns a new context with the given theme.
func WithTheme(ctx context.Context, theme string) context.Context {
	return context.WithValue(ctx, themeKey{}, theme)
}

// ThemeFromContext retrieves the theme from context, defaulting to "light".
func ThemeFromContext(ctx context.Context) string {
	if theme, ok := ctx.Value(themeKey{}).(string); ok {
		return theme
	}
	return "light"
}

var (
	baseDir  string
	once     sync.Once
	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}

	devMode bool
)

// SetDev disables the template cache so edits show up on reload.
func SetDev(dev bool) { devMode = dev }

// Themes lists the accepted theme names.
var Themes = []string{"light", "dark"}

// ValidTheme reports whether theme is one of Themes.
func ValidTheme(theme string) bool {
	for _, t := range Themes {
		if t == theme {
			return true
		}
	}
	return false
}

// detectBase picks the first templates directory that holds layout.html,
// starting from an explicit SetBaseDir.
func detectBase() {
	candidates := []string{"templates", "../templates", "../../templates"}
	if baseDir != "" {
		candidates = append([]string{baseDir}, candidates...)
	}
	for _, c := range candidates {
		if fi, err := os.Stat(filepath.Join(c, "layout.html")); err == nil && !fi.IsDir() {
			baseDir = filepath.Clean(c)
			return
		}
	}
	if baseDir == "" {
		baseDir = "templates"
	}
}

// templateDir resolves the base directory once. The request path only reads
// baseDir after this returns.
func templateDir() string {
	once.Do(detectBase)
	return baseDir
}

// Funcs returns the standard func map including i18n and simple helpers.
func Funcs(r *http.Request) template.FuncMap {
	lang := i18n.LangFromContext(r.Context())
	theme := ThemeFromContext(r.Context())
	return template.FuncMap{
		"t":     func(code string) string { return i18n.T(lang, code) },
		"lang":  func() string { return lang },
		"theme": func() string { return theme },
		"year":  func() int { return time.Now().Year() },
		"asset": static.Path,
		// productRow renders one editor row through RenderRow.
		"productRow": func(row any) (template.HTML, error) {
			return renderRowAny(lang, row)
		},
		// dict creates a map from key-value pairs for passing to sub-templates.
		// Usage: {{ template "partial" (dict "Key1" val1 "Key2" val2) }}
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					continue
				}
				m[key] = values[i+1]
			}
			return m
		},
	}
}

// SetBaseDir overrides the template base directory (useful for tests or custom setups).
// Call it before serving requests.
func SetBaseDir(path string) {
	if path == "" {
		return
	}
	ResetForTests()
	baseDir = filepath.Clean(path)
}

// ResetForTests clears caches and forces base dir detection to rerun.
// Intended for test code to avoid cross-test pollution when working directories change.
func ResetForTests() {
	tplCache.Lock()
	tplCache.m = map[string]*template.Template{}
	tplCache.Unlock()
	baseDir = ""
	once = sync.Once{}
}

// Render parses and executes a single template file with shared funcs.
// name should be the filename (e.g., "index.html"). Output is buffered so a
// template error never leaves a half-written page.
func Render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["Year"]; !exists {
		data["Year"] = time.Now().Year()
	}
	// The func map closes over the request language and theme.
	key := i18n.LangFromContext(r.Context()) + ":" + ThemeFromContext(r.Context()) + ":" + name

	t, err := lookup(r, templateDir(), key, name)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

func lookup(r *http.Request, dir, key, name string) (*template.Template, error) {
	if !devMode {
		tplCache.RLock()
		t, ok := tplCache.m[key]
		tplCache.RUnlock()
		if ok {
			return t, nil
		}
	}

	mainPath := filepath.Join(dir, name)
	if _, err := os.Stat(mainPath); err != nil {
		return nil, err
	}
	layoutPath := filepath.Join(dir, "layout.html")
	partials := []string{
		filepath.Join(dir, "partials", "alert.html"),
		filepath.Join(dir, "partials", "summary.html"),
	}

	files := []string{mainPath}
	root := filepath.Base(name)
	if fi, err := os.Stat(layoutPath); err == nil && !fi.IsDir() {
		files = []string{layoutPath, mainPath}
		root = "layout.html"
	}
	for _, p := range partials {
		if pf, err := os.Stat(p); err == nil && !pf.IsDir() {
			files = append(files, p)
		}
	}
	t, err := template.New(root).Funcs(Funcs(r)).ParseFiles(files...)
	if err != nil {
		return nil, err
	}
	if !devMode {
		tplCache.Lock()
		tplCache.m[key] = t
		tplCache.Unlock()
	}
	return t, nil
}
