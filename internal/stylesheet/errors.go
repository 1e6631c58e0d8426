package stylesheet

import (
	"errors"
	"fmt"
)

// Sentinel errors for stylesheet resolution.
var (
	ErrNotFound      = errors.New("no XSLT stylesheet found in document")
	ErrPayloadDecode = errors.New("embedded payload is not valid base64")
	ErrEmbeddedParse = errors.New("embedded stylesheet could not be parsed")
)

// prefixLen bounds the payload excerpt carried by PayloadDecodeError.
const prefixLen = 50

// PayloadDecodeError reports a base64 payload that could not be decoded.
// Prefix holds the first characters of the cleaned payload for diagnostics.
type PayloadDecodeError struct {
	Prefix string
	Err    error
}

func (e *PayloadDecodeError) Error() string {
	return fmt.Sprintf("%v: %v (content: %q)", ErrPayloadDecode, e.Err, e.Prefix)
}

// Unwrap exposes both the sentinel and the underlying decoder error.
func (e *PayloadDecodeError) Unwrap() []error {
	return []error{ErrPayloadDecode, e.Err}
}
