package invoice2pdf

import (
	"errors"

	"github.com/alnah/go-invoice2pdf/internal/render"
	"github.com/alnah/go-invoice2pdf/internal/stylesheet"
	"github.com/alnah/go-invoice2pdf/internal/xmldoc"
	"github.com/alnah/go-invoice2pdf/internal/xslt"
)

// Sentinel errors for library operations.
var (
	ErrEmptyInput    = errors.New("input document cannot be empty")
	ErrUnknownMode   = errors.New("unknown conversion mode")
	ErrInputDecode   = errors.New("input is not valid base64")
	ErrDocumentParse = errors.New("input document could not be parsed")

	ErrDoctypeNotAllowed = xmldoc.ErrDoctypeNotAllowed

	// Stylesheet resolution errors.
	ErrStylesheetNotFound      = stylesheet.ErrNotFound
	ErrPayloadDecode           = stylesheet.ErrPayloadDecode
	ErrEmbeddedStylesheetParse = stylesheet.ErrEmbeddedParse

	// Transform errors.
	ErrTransform           = xslt.ErrTransform
	ErrTransformerNotFound = xslt.ErrBinaryNotFound

	// Render errors. *RenderError unwraps to one of the first three.
	ErrRenderTimeout       = render.ErrTimeout
	ErrRenderProcessFailed = render.ErrProcessFailed
	ErrRenderEmptyOutput   = render.ErrEmptyOutput
	ErrRendererNotFound    = render.ErrBinaryNotFound
	ErrBrowserConnect      = render.ErrBrowserConnect
	ErrUnknownBackend      = render.ErrUnknownBackend
)

// RenderError carries the exit code and diagnostics of a failed render.
type RenderError = render.Error

// PayloadDecodeError carries the start of an undecodable embedded payload.
type PayloadDecodeError = stylesheet.PayloadDecodeError
