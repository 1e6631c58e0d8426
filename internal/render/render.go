// Package render turns self-contained HTML into PDF.
//
// Two backends are available: Process drives the wkhtmltopdf binary over
// stdin/stdout, and Chrome prints through a headless browser via go-rod.
// Both report failures with the same *Error taxonomy.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Backend names accepted by configuration.
const (
	BackendWkhtmltopdf = "wkhtmltopdf"
	BackendChrome      = "chrome"
)

// Defaults shared by both backends.
const (
	DefaultPageSize  = "A4"
	DefaultMarginMM  = 5.0
	DefaultZoom      = 1.0
	DefaultTimeout   = 10 * time.Second
	DefaultJoinGrace = time.Second
)

// Sentinel errors. *Error unwraps to one of the first three.
var (
	ErrTimeout        = errors.New("renderer timed out")
	ErrProcessFailed  = errors.New("renderer exited with failure")
	ErrEmptyOutput    = errors.New("renderer produced empty output")
	ErrBinaryNotFound = errors.New("renderer binary not found")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrUnknownBackend = errors.New("unknown render backend")
	ErrPageSize       = errors.New("unsupported page size")
)

// Renderer converts HTML markup into a PDF artifact.
type Renderer interface {
	Render(ctx context.Context, markup []byte) ([]byte, error)
	Close() error
}

// Error is a failed render. Kind is ErrTimeout, ErrProcessFailed or
// ErrEmptyOutput. ExitCode is -1 when the process did not exit on its own.
type Error struct {
	Kind        error
	ExitCode    int
	Diagnostics string
	Timeout     time.Duration
}

func (e *Error) Error() string {
	var b strings.Builder
	switch {
	case errors.Is(e.Kind, ErrTimeout):
		fmt.Fprintf(&b, "%v after %s", e.Kind, e.Timeout)
	case errors.Is(e.Kind, ErrProcessFailed):
		fmt.Fprintf(&b, "%v (exit code %d)", e.Kind, e.ExitCode)
	default:
		b.WriteString(e.Kind.Error())
	}
	if d := strings.TrimSpace(e.Diagnostics); d != "" {
		b.WriteString(": ")
		b.WriteString(d)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Kind }

// Options configures page layout and limits for either backend.
// Zero values select the defaults; a negative MarginMM means no margin.
type Options struct {
	PageSize string
	MarginMM float64
	Zoom     float64

	// Timeout is the render ceiling. The process is killed when it elapses.
	Timeout time.Duration

	// JoinGrace bounds how long output drains may lag behind process exit.
	JoinGrace time.Duration
}

func (o Options) withDefaults() Options {
	if o.PageSize == "" {
		o.PageSize = DefaultPageSize
	}
	switch {
	case o.MarginMM == 0:
		o.MarginMM = DefaultMarginMM
	case o.MarginMM < 0:
		o.MarginMM = 0
	}
	if o.Zoom <= 0 {
		o.Zoom = DefaultZoom
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.JoinGrace <= 0 {
		o.JoinGrace = DefaultJoinGrace
	}
	return o
}

// paperInches maps page size names to width and height in inches.
var paperInches = map[string][2]float64{
	"A3":     {11.69, 16.54},
	"A4":     {8.27, 11.69},
	"A5":     {5.83, 8.27},
	"LETTER": {8.5, 11},
	"LEGAL":  {8.5, 14},
}

// PaperSize returns the dimensions of a named page size in inches.
func PaperSize(name string) (width, height float64, err error) {
	dims, ok := paperInches[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrPageSize, name)
	}
	return dims[0], dims[1], nil
}

// ValidPageSizes lists accepted page size names.
func ValidPageSizes() []string {
	return []string{"A3", "A4", "A5", "Letter", "Legal"}
}

const mmPerInch = 25.4

func mmToInches(mm float64) float64 { return mm / mmPerInch }
