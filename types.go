package invoice2pdf

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Mode selects the conversion output.
type Mode string

const (
	ModeHTML Mode = "html"
	ModePDF  Mode = "pdf"
)

// ParseMode maps a case-insensitive, trimmed name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeHTML, ModePDF:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (must be html or pdf)", ErrUnknownMode, s)
	}
}

// Input contains the data for one conversion.
type Input struct {
	// Document is the raw invoice XML, or its base64 text when Encoded is set.
	Document []byte

	// Mode is ModeHTML or ModePDF. Any other value fails with ErrUnknownMode
	// before the document is even parsed.
	Mode Mode

	// Encoded marks Document as base64 text to decode once before parsing.
	Encoded bool
}

// Result contains the output of a conversion.
type Result struct {
	// HTML is the transformed markup. In PDF mode this is the inlined
	// markup that was handed to the renderer.
	HTML []byte

	// PDF is nil in HTML mode.
	PDF []byte
}

// EncodedPDF returns the PDF as standard base64 text.
func (r *Result) EncodedPDF() string {
	if r == nil || len(r.PDF) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(r.PDF)
}

// decodeInput decodes base64 input after removing ASCII whitespace, which
// transports commonly add as line wrapping.
func decodeInput(data []byte) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			return -1
		}
		return r
	}, string(data))

	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputDecode, err)
	}
	return decoded, nil
}
