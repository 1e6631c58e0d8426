package server

import (
	"context"
	"errors"
	"net/http"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
)

var (
	errBadQuery    = errors.New("invalid query parameter")
	errUnavailable = errors.New("no converter available")
)

// StatusClientClosedRequest is reported when the caller went away mid-conversion.
const StatusClientClosedRequest = 499

// StatusFor maps a conversion error to an HTTP status code.
func StatusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, invoice2pdf.ErrUnknownMode),
		errors.Is(err, invoice2pdf.ErrEmptyInput),
		errors.Is(err, invoice2pdf.ErrInputDecode),
		errors.Is(err, errBadQuery):
		return http.StatusBadRequest
	case errors.Is(err, invoice2pdf.ErrDocumentParse),
		errors.Is(err, invoice2pdf.ErrDoctypeNotAllowed),
		errors.Is(err, invoice2pdf.ErrStylesheetNotFound),
		errors.Is(err, invoice2pdf.ErrPayloadDecode),
		errors.Is(err, invoice2pdf.ErrEmbeddedStylesheetParse),
		errors.Is(err, invoice2pdf.ErrTransform):
		return http.StatusUnprocessableEntity
	case errors.Is(err, invoice2pdf.ErrRenderTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, invoice2pdf.ErrRenderProcessFailed),
		errors.Is(err, invoice2pdf.ErrRenderEmptyOutput),
		errors.Is(err, invoice2pdf.ErrRendererNotFound),
		errors.Is(err, invoice2pdf.ErrBrowserConnect):
		return http.StatusBadGateway
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}
