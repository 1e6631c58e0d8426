package main

import (
	"errors"
	"os"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
	"github.com/alnah/go-invoice2pdf/internal/config"
)

// Exit codes for invoice2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess  = 0 // Successful conversion
	ExitGeneral  = 1 // General/unexpected error
	ExitUsage    = 2 // Invalid flags, config, or mode
	ExitIO       = 3 // File not found, permission denied
	ExitRenderer = 4 // wkhtmltopdf or Chrome errors
	ExitDocument = 5 // Invoice, stylesheet, or transform errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Renderer errors (exit 4)
	if errors.Is(err, invoice2pdf.ErrRenderTimeout) ||
		errors.Is(err, invoice2pdf.ErrRenderProcessFailed) ||
		errors.Is(err, invoice2pdf.ErrRenderEmptyOutput) ||
		errors.Is(err, invoice2pdf.ErrRendererNotFound) ||
		errors.Is(err, invoice2pdf.ErrBrowserConnect) {
		return ExitRenderer
	}

	// Document errors (exit 5)
	if errors.Is(err, invoice2pdf.ErrEmptyInput) ||
		errors.Is(err, invoice2pdf.ErrInputDecode) ||
		errors.Is(err, invoice2pdf.ErrDocumentParse) ||
		errors.Is(err, invoice2pdf.ErrDoctypeNotAllowed) ||
		errors.Is(err, invoice2pdf.ErrStylesheetNotFound) ||
		errors.Is(err, invoice2pdf.ErrPayloadDecode) ||
		errors.Is(err, invoice2pdf.ErrEmbeddedStylesheetParse) ||
		errors.Is(err, invoice2pdf.ErrTransform) ||
		errors.Is(err, invoice2pdf.ErrTransformerNotFound) {
		return ExitDocument
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, ErrNoInputFiles) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, invoice2pdf.ErrUnknownMode) ||
		errors.Is(err, invoice2pdf.ErrUnknownBackend) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrInvalidTimeout) {
		return ExitUsage
	}

	return ExitGeneral
}
