package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "PDF_SERVICE_URL", "PDF_TIMEOUT", "MAX_UPLOAD_BYTES", "DEV", "CURRENCY_MARKER", "DEFAULT_LANG"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, int64(5*1024*1024), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "http://localhost:5001", cfg.PDF.URL)
	assert.Equal(t, time.Duration(0), cfg.PDF.ClientTimeout())
	assert.False(t, cfg.App.Dev)
	assert.Equal(t, "₺", cfg.App.CurrencyMarker)
	assert.Equal(t, "tr", cfg.App.DefaultLang)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PDF_TIMEOUT", "30")
	t.Setenv("DEV", "yes")
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")
	t.Setenv("CURRENCY_MARKER", "TL")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.PDF.ClientTimeout())
	assert.True(t, cfg.App.Dev)
	assert.Equal(t, int64(5*1024*1024), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "TL", cfg.App.CurrencyMarker)
}
