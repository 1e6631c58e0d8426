package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-invoice2pdf/internal/config"
)

// envPrefix marks every environment variable this program reads.
const envPrefix = "INVOICE2PDF_"

// envConfig holds configuration from environment variables.
// Provides container-friendly overrides without requiring config files.
type envConfig struct {
	ConfigPath    string        // INVOICE2PDF_CONFIG: config file name or path
	Mode          string        // INVOICE2PDF_MODE: default conversion mode
	RenderBackend string        // INVOICE2PDF_RENDER_BACKEND: wkhtmltopdf, chrome
	RenderBin     string        // INVOICE2PDF_RENDER_BIN: wkhtmltopdf path
	RenderTimeout time.Duration // INVOICE2PDF_RENDER_TIMEOUT: render ceiling
	XsltprocBin   string        // INVOICE2PDF_XSLTPROC_BIN: xsltproc path
	LogLevel      string        // INVOICE2PDF_LOG_LEVEL: debug, info, warn, error
	Workers       int           // INVOICE2PDF_WORKERS: pool size
	Addr          string        // INVOICE2PDF_ADDR: serve listen address
}

// knownEnvVars lists valid INVOICE2PDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"INVOICE2PDF_CONFIG":         true,
	"INVOICE2PDF_MODE":           true,
	"INVOICE2PDF_RENDER_BACKEND": true,
	"INVOICE2PDF_RENDER_BIN":     true,
	"INVOICE2PDF_RENDER_TIMEOUT": true,
	"INVOICE2PDF_XSLTPROC_BIN":   true,
	"INVOICE2PDF_LOG_LEVEL":      true,
	"INVOICE2PDF_WORKERS":        true,
	"INVOICE2PDF_ADDR":           true,
	// Read by doctor, not by config.
	"INVOICE2PDF_CONTAINER": true,
}

// loadEnvConfig reads configuration from environment variables.
// Malformed durations and counts are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath:    os.Getenv("INVOICE2PDF_CONFIG"),
		Mode:          os.Getenv("INVOICE2PDF_MODE"),
		RenderBackend: os.Getenv("INVOICE2PDF_RENDER_BACKEND"),
		RenderBin:     os.Getenv("INVOICE2PDF_RENDER_BIN"),
		XsltprocBin:   os.Getenv("INVOICE2PDF_XSLTPROC_BIN"),
		LogLevel:      os.Getenv("INVOICE2PDF_LOG_LEVEL"),
		Addr:          os.Getenv("INVOICE2PDF_ADDR"),
	}

	if timeout := os.Getenv("INVOICE2PDF_RENDER_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.RenderTimeout = d
		}
	}

	if workers := os.Getenv("INVOICE2PDF_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized INVOICE2PDF_* variables.
// Helps catch typos like INVOICE2PDF_RENDER_BINARY instead of INVOICE2PDF_RENDER_BIN.
func warnUnknownEnvVars(logger *log.Logger) {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(env, "=")
		if !knownEnvVars[name] {
			logger.Warn("unknown environment variable (typo?)", "name", name)
		}
	}
}

// applyEnvConfig applies environment values over the file configuration.
// This ensures: CLI flags > env vars > config file > defaults
// (CLI flags are applied afterwards by the command).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.RenderBackend != "" {
		cfg.Render.Backend = env.RenderBackend
	}
	if env.RenderBin != "" {
		cfg.Render.Binary = env.RenderBin
	}
	if env.RenderTimeout > 0 {
		cfg.Render.Timeout = config.Duration(env.RenderTimeout)
	}
	if env.XsltprocBin != "" {
		cfg.Transform.Binary = env.XsltprocBin
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.Workers > 0 {
		cfg.Server.Workers = env.Workers
	}
	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
}
