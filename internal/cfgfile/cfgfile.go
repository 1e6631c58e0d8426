// Package cfgfile wraps YAML and TOML decoding to isolate the external
// dependencies. Callers pick a Format (usually from the file extension) and
// get the same size guard and strictness rules for both.
package cfgfile

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

// MaxInputSize limits config input to prevent memory exhaustion (default 1MB).
var MaxInputSize = 1 << 20

var (
	ErrNilData           = errors.New("cfgfile: nil or empty data")
	ErrNilDestination    = errors.New("cfgfile: nil destination pointer")
	ErrInputTooLarge     = errors.New("cfgfile: input exceeds maximum size")
	ErrUnsupportedFormat = errors.New("cfgfile: unsupported format")
	ErrUnknownFields     = errors.New("cfgfile: unknown fields")
)

// Format identifies a config file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath maps a file extension to a Format.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func validateInput(data []byte, v any) error {
	if len(data) == 0 {
		return ErrNilData
	}
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	if v == nil {
		return ErrNilDestination
	}
	return nil
}

// UnmarshalStrict decodes data in the given format and rejects unknown fields.
func UnmarshalStrict(format Format, data []byte, v any) error {
	if err := validateInput(data, v); err != nil {
		return err
	}

	switch format {
	case FormatYAML:
		if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
			return fmt.Errorf("cfgfile: %w", err)
		}
		return nil
	case FormatTOML:
		md, err := toml.Decode(string(data), v)
		if err != nil {
			return fmt.Errorf("cfgfile: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return fmt.Errorf("%w: %s", ErrUnknownFields, strings.Join(keys, ", "))
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Marshal encodes v in the given format.
func Marshal(format Format, v any) ([]byte, error) {
	switch format {
	case FormatYAML:
		out, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("cfgfile: %w", err)
		}
		return out, nil
	case FormatTOML:
		var sb strings.Builder
		if err := toml.NewEncoder(&sb).Encode(v); err != nil {
			return nil, fmt.Errorf("cfgfile: %w", err)
		}
		return []byte(sb.String()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
