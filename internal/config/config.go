package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-invoice2pdf/internal/cfgfile"
	"github.com/alnah/go-invoice2pdf/internal/fileutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength      = 4096
	MaxUserAgentLength = 512
	MaxURLLength       = 2048 // Browser limit
	MaxLanguageLength  = 200
	MaxAddrLength      = 256
)

// Bounds for numeric fields.
const (
	MaxRedirectsLimit = 10
	MaxWorkers        = 64
	MaxZoom           = 5.0
	MaxMarginMM       = 50.0
)

// appDir is the directory name searched under the user config directory.
const appDir = "go-invoice2pdf"

// Config holds all configuration for invoice conversion.
type Config struct {
	Transform TransformConfig `yaml:"transform" toml:"transform"`
	Fetch     FetchConfig     `yaml:"fetch" toml:"fetch"`
	Render    RenderConfig    `yaml:"render" toml:"render"`
	Output    OutputConfig    `yaml:"output" toml:"output"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Log       LogConfig       `yaml:"log" toml:"log"`
}

// TransformConfig defines how stylesheets are applied.
type TransformConfig struct {
	Engine  string   `yaml:"engine" toml:"engine"`   // "xsltproc" (default)
	Binary  string   `yaml:"binary" toml:"binary"`   // Empty = look up xsltproc on PATH
	Timeout Duration `yaml:"timeout" toml:"timeout"` // Default 30s
}

// FetchConfig defines how external resources are downloaded for inlining.
type FetchConfig struct {
	ConnectTimeout Duration `yaml:"connectTimeout" toml:"connectTimeout"` // Default 1.5s
	ReadTimeout    Duration `yaml:"readTimeout" toml:"readTimeout"`       // Default 1.5s, idle
	MaxRedirects   int      `yaml:"maxRedirects" toml:"maxRedirects"`     // Default 3
	UserAgent      string   `yaml:"userAgent" toml:"userAgent"`
	Referer        string   `yaml:"referer" toml:"referer"` // Empty = origin of each URL
	AcceptLanguage string   `yaml:"acceptLanguage" toml:"acceptLanguage"`
	InlineHTML     bool     `yaml:"inlineHTML" toml:"inlineHTML"` // Also inline in HTML mode
	Disabled       bool     `yaml:"disabled" toml:"disabled"`     // Blank external refs, never fetch
}

// RenderConfig defines PDF rendering options.
type RenderConfig struct {
	Backend   string   `yaml:"backend" toml:"backend"`     // "wkhtmltopdf" (default) or "chrome"
	Binary    string   `yaml:"binary" toml:"binary"`       // wkhtmltopdf path, empty = PATH lookup
	PageSize  string   `yaml:"pageSize" toml:"pageSize"`   // "A4" (default), "A3", "A5", "Letter", "Legal"
	MarginMM  float64  `yaml:"margin" toml:"margin"`       // millimetres (default: 5)
	Zoom      float64  `yaml:"zoom" toml:"zoom"`           // default 1.0
	Timeout   Duration `yaml:"timeout" toml:"timeout"`     // Render ceiling, default 10s
	JoinGrace Duration `yaml:"joinGrace" toml:"joinGrace"` // default 1s
}

// OutputConfig defines how results are written.
type OutputConfig struct {
	EncodePDF bool   `yaml:"encodePDF" toml:"encodePDF"` // Write PDF as base64 text
	Dir       string `yaml:"dir" toml:"dir"`             // Empty = next to each input
}

// ServerConfig defines the HTTP service.
type ServerConfig struct {
	Addr         string   `yaml:"addr" toml:"addr"`                 // default ":8080"
	MaxBodyBytes int64    `yaml:"maxBodyBytes" toml:"maxBodyBytes"` // default 32 MiB
	Workers      int      `yaml:"workers" toml:"workers"`           // 0 = auto
	ReadTimeout  Duration `yaml:"readTimeout" toml:"readTimeout"`   // default 30s
}

// LogConfig defines logging options.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"` // "debug", "info" (default), "warn", "error"
}

// Duration is a time.Duration written as a string such as "10s" or "1.5s".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidValue, text)
	}
	*d = Duration(v)
	return nil
}

// Validate checks enums, ranges and field lengths.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually (e.g., API adapters, library users).
func (c *Config) Validate() error {
	if c.Transform.Engine != "" && !strings.EqualFold(c.Transform.Engine, "xsltproc") {
		return fmt.Errorf("%w: transform.engine %q (must be xsltproc)", ErrInvalidValue, c.Transform.Engine)
	}
	if err := validateFieldLength("transform.binary", c.Transform.Binary, MaxPathLength); err != nil {
		return err
	}

	if err := validateFieldLength("fetch.userAgent", c.Fetch.UserAgent, MaxUserAgentLength); err != nil {
		return err
	}
	if err := validateFieldLength("fetch.referer", c.Fetch.Referer, MaxURLLength); err != nil {
		return err
	}
	if err := validateFieldLength("fetch.acceptLanguage", c.Fetch.AcceptLanguage, MaxLanguageLength); err != nil {
		return err
	}
	if c.Fetch.MaxRedirects < 0 || c.Fetch.MaxRedirects > MaxRedirectsLimit {
		return fmt.Errorf("%w: fetch.maxRedirects must be between 0 and %d, got %d", ErrInvalidValue, MaxRedirectsLimit, c.Fetch.MaxRedirects)
	}

	if c.Render.Backend != "" {
		switch strings.ToLower(c.Render.Backend) {
		case "wkhtmltopdf", "chrome":
			// valid
		default:
			return fmt.Errorf("%w: render.backend %q (must be wkhtmltopdf or chrome)", ErrInvalidValue, c.Render.Backend)
		}
	}
	if err := validateFieldLength("render.binary", c.Render.Binary, MaxPathLength); err != nil {
		return err
	}
	if c.Render.PageSize != "" {
		switch strings.ToLower(c.Render.PageSize) {
		case "a3", "a4", "a5", "letter", "legal":
			// valid
		default:
			return fmt.Errorf("%w: render.pageSize %q (must be A3, A4, A5, Letter, or Legal)", ErrInvalidValue, c.Render.PageSize)
		}
	}
	if c.Render.MarginMM < 0 || c.Render.MarginMM > MaxMarginMM {
		return fmt.Errorf("%w: render.margin must be between 0 and %.0f, got %.2f", ErrInvalidValue, MaxMarginMM, c.Render.MarginMM)
	}
	if c.Render.Zoom < 0 || c.Render.Zoom > MaxZoom {
		return fmt.Errorf("%w: render.zoom must be between 0 and %.0f, got %.2f", ErrInvalidValue, MaxZoom, c.Render.Zoom)
	}

	for name, d := range map[string]Duration{
		"transform.timeout":    c.Transform.Timeout,
		"fetch.connectTimeout": c.Fetch.ConnectTimeout,
		"fetch.readTimeout":    c.Fetch.ReadTimeout,
		"render.timeout":       c.Render.Timeout,
		"render.joinGrace":     c.Render.JoinGrace,
		"server.readTimeout":   c.Server.ReadTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s cannot be negative", ErrInvalidValue, name)
		}
	}

	if err := validateFieldLength("output.dir", c.Output.Dir, MaxPathLength); err != nil {
		return err
	}

	if err := validateFieldLength("server.addr", c.Server.Addr, MaxAddrLength); err != nil {
		return err
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("%w: server.maxBodyBytes cannot be negative", ErrInvalidValue)
	}
	if c.Server.Workers < 0 || c.Server.Workers > MaxWorkers {
		return fmt.Errorf("%w: server.workers must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Server.Workers)
	}

	if c.Log.Level != "" {
		switch strings.ToLower(c.Log.Level) {
		case "debug", "info", "warn", "error":
			// valid
		default:
			return fmt.Errorf("%w: log.level %q (must be debug, info, warn, or error)", ErrInvalidValue, c.Log.Level)
		}
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Transform: TransformConfig{
			Engine:  "xsltproc",
			Timeout: Duration(30 * time.Second),
		},
		Fetch: FetchConfig{
			ConnectTimeout: Duration(1500 * time.Millisecond),
			ReadTimeout:    Duration(1500 * time.Millisecond),
			MaxRedirects:   3,
		},
		Render: RenderConfig{
			Backend:   "wkhtmltopdf",
			PageSize:  "A4",
			MarginMM:  5,
			Zoom:      1.0,
			Timeout:   Duration(10 * time.Second),
			JoinGrace: Duration(time.Second),
		},
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 32 << 20,
			ReadTimeout:  Duration(30 * time.Second),
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Values absent from the file keep their DefaultConfig value.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	format, err := cfgfile.FormatFromPath(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := cfgfile.UnmarshalStrict(format, data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml, .toml
// Tries locations in order: current directory, ~/.config/go-invoice2pdf/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml", ".toml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, appDir, name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
