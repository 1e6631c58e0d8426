// Package stylesheet locates the XSLT program that renders an invoice.
//
// Invoices in the wild carry their rendering stylesheet in one of three
// ways, tried in this order (first hit wins, results are never merged):
//
//  1. an xsl:stylesheet (or xsl:transform) element placed directly in the
//     document tree;
//  2. an AdditionalDocumentReference whose DocumentType is "XSLT" and which
//     carries an EmbeddedDocumentBinaryObject;
//  3. the first EmbeddedDocumentBinaryObject anywhere whose mimeCode,
//     filename, or decoded content says it is a stylesheet.
//
// Each step is a Finder, so the chain is a slice of functions and every
// heuristic can be exercised on its own.
package stylesheet
