package main

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
	"github.com/alnah/go-invoice2pdf/internal/config"
	"github.com/alnah/go-invoice2pdf/internal/render"
)

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"unexpected", errors.New("boom"), ExitGeneral},

		{"unknown mode", invoice2pdf.ErrUnknownMode, ExitUsage},
		{"unknown backend", invoice2pdf.ErrUnknownBackend, ExitUsage},
		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"config parse", fmt.Errorf("loading config: %w", config.ErrConfigParse), ExitUsage},
		{"invalid config value", config.ErrInvalidValue, ExitUsage},
		{"invalid workers", ErrInvalidWorkerCount, ExitUsage},
		{"invalid timeout", ErrInvalidTimeout, ExitUsage},

		{"missing file", os.ErrNotExist, ExitIO},
		{"read input", ErrReadInput, ExitIO},
		{"write output", ErrWriteOutput, ExitIO},
		{"no input files", ErrNoInputFiles, ExitIO},

		{"render timeout", &render.Error{Kind: render.ErrTimeout, ExitCode: -1, Timeout: time.Second}, ExitRenderer},
		{"render failed", fmt.Errorf("rendering PDF: %w", &render.Error{Kind: render.ErrProcessFailed, ExitCode: 1}), ExitRenderer},
		{"render empty", invoice2pdf.ErrRenderEmptyOutput, ExitRenderer},
		{"renderer missing", invoice2pdf.ErrRendererNotFound, ExitRenderer},
		{"browser", invoice2pdf.ErrBrowserConnect, ExitRenderer},

		{"empty input", invoice2pdf.ErrEmptyInput, ExitDocument},
		{"bad base64", invoice2pdf.ErrInputDecode, ExitDocument},
		{"parse", invoice2pdf.ErrDocumentParse, ExitDocument},
		{"doctype", invoice2pdf.ErrDoctypeNotAllowed, ExitDocument},
		{"no stylesheet", invoice2pdf.ErrStylesheetNotFound, ExitDocument},
		{"payload", invoice2pdf.ErrPayloadDecode, ExitDocument},
		{"embedded parse", invoice2pdf.ErrEmbeddedStylesheetParse, ExitDocument},
		{"transform", invoice2pdf.ErrTransform, ExitDocument},
		{"xsltproc missing", invoice2pdf.ErrTransformerNotFound, ExitDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
