package stylesheet

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"github.com/charmbracelet/log"

	"github.com/alnah/go-invoice2pdf/internal/xmldoc"
)

// XSLTNamespace is the XSL Transformations namespace URI.
const XSLTNamespace = "http://www.w3.org/1999/XSL/Transform"

// Element local names used by UBL documents to carry attachments.
const (
	additionalReferenceTag = "AdditionalDocumentReference"
	documentTypeTag        = "DocumentType"
	embeddedObjectTag      = "EmbeddedDocumentBinaryObject"
)

// Origin records where a stylesheet was found.
type Origin string

const (
	OriginInlineNamespace    Origin = "inline-namespace"
	OriginReferencedEmbedded Origin = "referenced-embedded"
	OriginHeuristicEmbedded  Origin = "heuristic-embedded"
)

// Candidate is a resolved stylesheet, ready to hand to a transform engine.
type Candidate struct {
	Origin Origin

	// Program is the stylesheet as a standalone document.
	Program *etree.Document

	// Source is the document to transform. For inline stylesheets it is a
	// copy of the input with the stylesheet element removed; otherwise it
	// is the input itself. The input document is never modified.
	Source *etree.Document
}

// Finder inspects a document and returns a candidate, nil when it has
// nothing to offer, or an error when it matched but could not materialize.
type Finder func(doc *etree.Document) (*Candidate, error)

// DefaultFinders is the search order used by NewResolver.
func DefaultFinders() []Finder {
	return []Finder{FindInline, FindReferenced, FindHeuristic}
}

// Resolver runs an ordered chain of finders.
type Resolver struct {
	finders []Finder
	logger  *log.Logger
}

// NewResolver creates a Resolver with the default finder chain.
// A nil logger falls back to log.Default().
func NewResolver(logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{finders: DefaultFinders(), logger: logger}
}

// NewResolverWith creates a Resolver with a custom finder chain (for testing
// or for callers with house-specific conventions).
func NewResolverWith(logger *log.Logger, finders ...Finder) *Resolver {
	r := NewResolver(logger)
	r.finders = slices.Clone(finders)
	return r
}

// Resolve returns the first candidate produced by the finder chain.
func (r *Resolver) Resolve(doc *etree.Document) (*Candidate, error) {
	if doc == nil || doc.Root() == nil {
		return nil, ErrNotFound
	}
	for _, find := range r.finders {
		c, err := find(doc)
		if err != nil {
			return nil, err
		}
		if c != nil {
			r.logger.Debug("stylesheet resolved", "origin", c.Origin)
			return c, nil
		}
	}
	return nil, ErrNotFound
}

// FindInline looks for an xsl:stylesheet or xsl:transform element anywhere
// in the tree. The match becomes the program and is excluded from Source.
func FindInline(doc *etree.Document) (*Candidate, error) {
	el := xmldoc.FindFirstByNS(doc.Root(), XSLTNamespace, "stylesheet", "transform")
	if el == nil {
		return nil, nil
	}

	program := etree.NewDocument()
	program.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	program.SetRoot(standaloneCopy(el))

	return &Candidate{
		Origin:  OriginInlineNamespace,
		Program: program,
		Source:  withoutElement(doc, el),
	}, nil
}

// FindReferenced looks for an AdditionalDocumentReference that declares
// DocumentType "XSLT" (trimmed, case-insensitive) and carries an embedded
// object. References declaring XSLT without a payload are skipped.
func FindReferenced(doc *etree.Document) (*Candidate, error) {
	for _, ref := range xmldoc.FindByLocalName(doc.Root(), additionalReferenceTag) {
		types := xmldoc.FindByLocalName(ref, documentTypeTag)
		if len(types) == 0 || !strings.EqualFold(strings.TrimSpace(textContent(types[0])), "XSLT") {
			continue
		}
		objects := xmldoc.FindByLocalName(ref, embeddedObjectTag)
		if len(objects) == 0 {
			continue
		}
		return materialize(doc, objects[0], OriginReferencedEmbedded)
	}
	return nil, nil
}

// FindHeuristic scans every embedded object in document order and takes the
// first one that looks like a stylesheet. Per object, the checks run in a
// fixed order: mimeCode mentions "xsl", filename ends in .xsl or .xslt,
// decoded text opens with an XML declaration and contains a stylesheet tag.
func FindHeuristic(doc *etree.Document) (*Candidate, error) {
	for _, obj := range xmldoc.FindByLocalName(doc.Root(), embeddedObjectTag) {
		if looksLikeStylesheet(obj) {
			return materialize(doc, obj, OriginHeuristicEmbedded)
		}
	}
	return nil, nil
}

func looksLikeStylesheet(obj *etree.Element) bool {
	if strings.Contains(strings.ToLower(obj.SelectAttrValue("mimeCode", "")), "xsl") {
		return true
	}

	filename := strings.ToLower(obj.SelectAttrValue("filename", ""))
	if strings.HasSuffix(filename, ".xsl") || strings.HasSuffix(filename, ".xslt") {
		return true
	}

	decoded, err := DecodePayload(textContent(obj))
	if err != nil {
		return false
	}
	text := strings.TrimSpace(string(bytes.TrimPrefix(decoded, []byte{0xEF, 0xBB, 0xBF})))
	return strings.HasPrefix(text, "<?xml") &&
		(strings.Contains(text, "<xsl:stylesheet") || strings.Contains(text, "<xsl:transform"))
}

// materialize decodes and parses the payload of obj into a stylesheet.
func materialize(doc *etree.Document, obj *etree.Element, origin Origin) (*Candidate, error) {
	decoded, err := DecodePayload(textContent(obj))
	if err != nil {
		return nil, err
	}

	program, err := xmldoc.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddedParse, err)
	}
	if !isStylesheet(program.Root()) {
		return nil, fmt.Errorf("%w: root element <%s> is not an XSLT stylesheet", ErrEmbeddedParse, program.Root().FullTag())
	}

	return &Candidate{Origin: origin, Program: program, Source: doc}, nil
}

// isStylesheet accepts xsl:stylesheet, xsl:transform, and simplified
// stylesheets (a literal result element carrying xsl:version).
func isStylesheet(root *etree.Element) bool {
	if root == nil {
		return false
	}
	if root.NamespaceURI() == XSLTNamespace && (root.Tag == "stylesheet" || root.Tag == "transform") {
		return true
	}
	for i := range root.Attr {
		a := &root.Attr[i]
		if a.Key == "version" && a.Space != "" && a.NamespaceURI() == XSLTNamespace {
			return true
		}
	}
	return false
}

// textContent concatenates all character data under e, like DOM textContent.
func textContent(e *etree.Element) string {
	var sb strings.Builder
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, tok := range el.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				sb.WriteString(t.Data)
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(e)
	return sb.String()
}
