package stylesheet

import (
	"encoding/base64"
	"strings"
)

// DecodePayload decodes base64 text from an embedded binary object.
//
// Characters outside the standard base64 alphabet are dropped first, so
// line breaks and stray whitespace from pretty-printed XML do not matter,
// then the text is padded with '=' to a multiple of four.
func DecodePayload(text string) ([]byte, error) {
	cleaned := cleanBase64(text)
	if rem := len(cleaned) % 4; rem != 0 {
		cleaned += strings.Repeat("=", 4-rem)
	}

	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		prefix := cleaned
		if len(prefix) > prefixLen {
			prefix = prefix[:prefixLen]
		}
		return nil, &PayloadDecodeError{Prefix: prefix, Err: err}
	}
	return decoded, nil
}

// cleanBase64 drops every byte outside [A-Za-z0-9+/=].
func cleanBase64(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '+', c == '/', c == '=':
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
