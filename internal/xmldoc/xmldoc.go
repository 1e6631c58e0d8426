// Package xmldoc is the document parse capability: it turns raw invoice or
// stylesheet bytes into a namespace-aware element tree, after cleaning up
// the transport noise upstream systems tend to leave in front of the markup.
//
// Parsing is hardened: document type declarations are rejected outright and
// no entity beyond the five predefined XML entities is ever expanded, so a
// document cannot pull external resources or blow up during parse.
package xmldoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// Sentinel errors for parsing.
var (
	ErrParse              = errors.New("XML parse failed")
	ErrDoctypeNotAllowed  = errors.New("document type declarations are not allowed")
	ErrNoMarkup           = errors.New("input contains no XML markup")
	ErrDocumentTooLarge   = errors.New("document exceeds maximum size")
	ErrMissingRootElement = errors.New("document has no root element")
)

// Element and Document alias the etree types so callers of this package
// rarely need to import etree themselves.
type (
	Element  = etree.Element
	Document = etree.Document
)

// MaxDocumentSize caps input handed to Parse (default 64MB).
var MaxDocumentSize = 64 << 20

// utf8BOM is the byte-order mark some producers prepend to UTF-8 XML.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse cleans data and parses it into a document tree.
//
// Cleaning steps, in order: strip a leading byte-order mark, discard
// everything before the first '<', trim surrounding whitespace. Declared
// non-UTF-8 encodings are decoded through golang.org/x/net/html/charset.
func Parse(data []byte) (*etree.Document, error) {
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrDocumentTooLarge, len(data), MaxDocumentSize)
	}

	cleaned, err := Clean(data)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
	}
	if err := doc.ReadFromBytes(cleaned); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, locate(cleaned, err))
	}

	if err := rejectDirectives(&doc.Element); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, ErrMissingRootElement
	}

	return doc, nil
}

// locate re-reads data with a strict decoder to recover the line of the
// first syntax error, which etree reports only as etree.ErrXML.
func locate(data []byte, fallback error) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	for {
		_, err := dec.Token()
		if err == nil {
			continue
		}
		var syntaxErr *xml.SyntaxError
		if errors.As(err, &syntaxErr) {
			return syntaxErr
		}
		if errors.Is(err, io.EOF) {
			return fallback
		}
		line, _ := dec.InputPos()
		return fmt.Errorf("line %d: %w", line, err)
	}
}

// ParseString is Parse for text input.
func ParseString(s string) (*etree.Document, error) {
	return Parse([]byte(s))
}

// Clean applies the pre-parse cleanup without parsing.
func Clean(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	idx := bytes.IndexByte(data, '<')
	if idx < 0 {
		return nil, ErrNoMarkup
	}

	return bytes.TrimSpace(data[idx:]), nil
}

// rejectDirectives fails on any <!DOCTYPE> or <!ENTITY> directive in the tree.
// encoding/xml surfaces these as directives without interpreting them, and
// an unknown entity reference is already a syntax error, so refusing the
// directive itself closes the remaining door.
func rejectDirectives(e *etree.Element) error {
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.Directive:
			head := strings.ToUpper(strings.TrimSpace(t.Data))
			if strings.HasPrefix(head, "DOCTYPE") || strings.HasPrefix(head, "ENTITY") {
				return ErrDoctypeNotAllowed
			}
		case *etree.Element:
			if err := rejectDirectives(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// declEncoding matches the encoding pseudo-attribute of a leading XML declaration.
var declEncoding = regexp.MustCompile(`^(<\?xml[^?]*?encoding\s*=\s*)("[^"]*"|'[^']*')`)

// Serialize writes doc back to bytes. The tree holds decoded text, so the
// output is always UTF-8 and a declared encoding is rewritten to match.
func Serialize(doc *etree.Document) ([]byte, error) {
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializing document: %w", err)
	}
	return declEncoding.ReplaceAll(out, []byte(`${1}"UTF-8"`)), nil
}

// Walk visits e and all descendant elements in document order. Returning
// false from fn stops the walk; Walk reports whether it ran to completion.
func Walk(e *etree.Element, fn func(*etree.Element) bool) bool {
	if !fn(e) {
		return false
	}
	for _, child := range e.ChildElements() {
		if !Walk(child, fn) {
			return false
		}
	}
	return true
}

// FindByLocalName returns every element under root (inclusive) whose local
// name is name, in any namespace, in document order.
func FindByLocalName(root *etree.Element, name string) []*etree.Element {
	var found []*etree.Element
	Walk(root, func(e *etree.Element) bool {
		if e.Tag == name {
			found = append(found, e)
		}
		return true
	})
	return found
}

// FindFirstByNS returns the first element under root (inclusive) in
// namespace uri whose local name is one of names.
func FindFirstByNS(root *etree.Element, uri string, names ...string) *etree.Element {
	var found *etree.Element
	Walk(root, func(e *etree.Element) bool {
		if e.NamespaceURI() != uri {
			return true
		}
		for _, n := range names {
			if e.Tag == n {
				found = e
				return false
			}
		}
		return true
	})
	return found
}
