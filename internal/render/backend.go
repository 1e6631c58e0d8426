package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// New creates the renderer for a backend name. binary only applies to
// the wkhtmltopdf backend.
func New(backend, binary string, opts Options, logger *log.Logger) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendWkhtmltopdf:
		return NewProcess(binary, opts, logger), nil
	case BackendChrome:
		return NewChrome(opts, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q (valid: %s, %s)", ErrUnknownBackend, backend, BackendWkhtmltopdf, BackendChrome)
	}
}
