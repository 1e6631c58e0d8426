package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
	"github.com/alnah/go-invoice2pdf/internal/config"
)

// Sentinel errors for flag validation.
var (
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrInvalidTimeout     = errors.New("invalid timeout")
)

// loadSettings builds the effective configuration:
// defaults < config file < environment < flags (applied by the caller).
func loadSettings(configFlag string, env *envConfig) (*config.Config, error) {
	name := configFlag
	if name == "" {
		name = env.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	applyEnvConfig(env, cfg)
	return cfg, nil
}

// applyRenderFlags merges renderer flags into cfg. CLI values override config values.
func applyRenderFlags(f renderFlags, cfg *config.Config) error {
	if f.backend != "" {
		cfg.Render.Backend = f.backend
	}
	if f.pageSize != "" {
		cfg.Render.PageSize = f.pageSize
	}
	if f.noFetch {
		cfg.Fetch.Disabled = true
	}
	if f.timeout != "" {
		d, err := parseTimeout(f.timeout)
		if err != nil {
			return err
		}
		cfg.Render.Timeout = config.Duration(d)
	}
	return cfg.Validate()
}

// parseTimeout parses a positive duration flag.
func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimeout, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidTimeout, s)
	}
	return d, nil
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > config.MaxWorkers {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, config.MaxWorkers)
	}
	return nil
}

// converterOptions translates the effective configuration into converter options.
func converterOptions(cfg *config.Config, logger *log.Logger) []invoice2pdf.Option {
	opts := []invoice2pdf.Option{
		invoice2pdf.WithLogger(logger),
		invoice2pdf.WithTransformerBinary(cfg.Transform.Binary),
		invoice2pdf.WithRenderBackend(cfg.Render.Backend),
		invoice2pdf.WithRendererBinary(cfg.Render.Binary),
		invoice2pdf.WithPageSize(cfg.Render.PageSize),
		invoice2pdf.WithMargin(cfg.Render.MarginMM),
		invoice2pdf.WithZoom(cfg.Render.Zoom),
		invoice2pdf.WithJoinGrace(cfg.Render.JoinGrace.Std()),
		invoice2pdf.WithFetchTimeouts(cfg.Fetch.ConnectTimeout.Std(), cfg.Fetch.ReadTimeout.Std()),
		invoice2pdf.WithMaxRedirects(cfg.Fetch.MaxRedirects),
		invoice2pdf.WithReferer(cfg.Fetch.Referer),
		invoice2pdf.WithUserAgent(cfg.Fetch.UserAgent),
		invoice2pdf.WithAcceptLanguage(cfg.Fetch.AcceptLanguage),
		invoice2pdf.WithInlineHTML(cfg.Fetch.InlineHTML),
	}
	if d := cfg.Transform.Timeout.Std(); d > 0 {
		opts = append(opts, invoice2pdf.WithTransformTimeout(d))
	}
	if d := cfg.Render.Timeout.Std(); d > 0 {
		opts = append(opts, invoice2pdf.WithRenderTimeout(d))
	}
	if cfg.Fetch.Disabled {
		opts = append(opts, invoice2pdf.WithoutFetch())
	}
	return opts
}
