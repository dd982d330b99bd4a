// Package config provides application configuration loaded from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	PDF    PDFConfig
	App    AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string
	ReadTimeout    int   // seconds
	WriteTimeout   int   // seconds
	IdleTimeout    int   // seconds
	MaxUploadBytes int64 // request body cap for the invoice form
}

// PDFConfig holds settings for the external PDF service.
type PDFConfig struct {
	URL     string
	Timeout int // seconds, 0 disables the client deadline
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev            bool
	LogLevel       string
	DefaultLang    string
	CurrencyMarker string
}

// ClientTimeout returns the PDF client deadline, zero when disabled.
func (p PDFConfig) ClientTimeout() time.Duration {
	if p.Timeout <= 0 {
		return 0
	}
	return time.Duration(p.Timeout) * time.Second
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "5000"),
			ReadTimeout:    getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:   getEnvInt("SERVER_WRITE_TIMEOUT", 120),
			IdleTimeout:    getEnvInt("SERVER_IDLE_TIMEOUT", 60),
			MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 5*1024*1024)),
		},
		PDF: PDFConfig{
			URL:     getEnv("PDF_SERVICE_URL", "http://localhost:5001"),
			Timeout: getEnvInt("PDF_TIMEOUT", 0),
		},
		App: AppConfig{
			Dev:            getEnvBool("DEV", false),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			DefaultLang:    getEnv("DEFAULT_LANG", "tr"),
			CurrencyMarker: getEnv("CURRENCY_MARKER", "₺"),
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
