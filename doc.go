// Package invoice2pdf converts UBL-style XML invoices into HTML and PDF.
//
// An invoice normally carries its own presentation: an XSLT stylesheet,
// either inline or base64-encoded inside an AdditionalDocumentReference.
// The converter finds that stylesheet, applies it, makes the resulting HTML
// self-contained and, in PDF mode, renders it.
//
// # Quick Start
//
//	conv, err := invoice2pdf.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	result, err := conv.Convert(ctx, invoice2pdf.Input{
//	    Document: xmlBytes,
//	    Mode:     invoice2pdf.ModePDF,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("invoice.pdf", result.PDF, 0644)
//
// # Conversion Pipeline
//
//  1. Optional base64 decoding of the raw input (Input.Encoded)
//  2. Hardened XML parse (no DOCTYPE, no entity expansion)
//  3. Stylesheet resolution: inline xsl:stylesheet, then a reference
//     declared as XSLT, then a heuristic scan of embedded objects
//  4. XSLT transform via xsltproc
//  5. Inlining of external http(s) images and style urls as data URIs
//  6. PDF rendering via wkhtmltopdf (or headless Chrome)
//
// HTML mode stops after step 4 unless WithInlineHTML is set.
//
// # Configuration
//
//	conv, err := invoice2pdf.NewConverter(
//	    invoice2pdf.WithRenderTimeout(30 * time.Second),
//	    invoice2pdf.WithRenderBackend("chrome"),
//	    invoice2pdf.WithReferer("https://portal.example.com/"),
//	)
//
// # Parallel Processing
//
// A Converter handles one conversion at a time per renderer; for batches,
// ConverterPool hands out converters to concurrent workers:
//
//	pool := invoice2pdf.NewConverterPool(invoice2pdf.ResolvePoolSize(0))
//	defer pool.Close()
//
//	conv := pool.Acquire()
//	defer pool.Release(conv)
//
// # Errors
//
// Fatal errors are sentinels checked with errors.Is: ErrStylesheetNotFound,
// ErrPayloadDecode, ErrEmbeddedStylesheetParse, ErrTransform,
// ErrRenderTimeout, ErrRenderProcessFailed, ErrRenderEmptyOutput and
// ErrUnknownMode, plus input errors. A resource that cannot be fetched is
// never an error; it is logged and left out of the output.
package invoice2pdf
