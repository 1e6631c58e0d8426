package invoice2pdf

// Notes:
// - Tests Converter.Convert with a mock transform engine, renderer and
//   fetcher, so no xsltproc, wkhtmltopdf or network is needed.
// - withFetcher is a test-only option; production code builds the fetcher
//   from WithFetchTimeouts, WithReferer and friends.
// - End-to-end runs against real binaries live in
//   converter_integration_test.go.

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-invoice2pdf/internal/inline"
	"github.com/alnah/go-invoice2pdf/internal/render"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const fixtureStylesheet = `<?xml version="1.0" encoding="UTF-8"?>
<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="/"><html><body>invoice</body></html></xsl:template>
</xsl:stylesheet>`

func fixtureInvoice(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
         xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
         xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">
  <cbc:ID>GIB2025000000001</cbc:ID>
` + body + `
</Invoice>`
}

func embeddedXSLT(payload string) string {
	return `<cac:AdditionalDocumentReference>
    <cbc:ID>xslt</cbc:ID>
    <cbc:DocumentType>XSLT</cbc:DocumentType>
    <cac:Attachment>
      <cbc:EmbeddedDocumentBinaryObject mimeCode="application/xml" filename="general.xslt">` + payload + `</cbc:EmbeddedDocumentBinaryObject>
    </cac:Attachment>
  </cac:AdditionalDocumentReference>`
}

var validInvoice = fixtureInvoice(embeddedXSLT(base64.StdEncoding.EncodeToString([]byte(fixtureStylesheet))))

// ---------------------------------------------------------------------------
// Mock Implementations
// ---------------------------------------------------------------------------

type mockEngine struct {
	mu       sync.Mutex
	called   bool
	document string
	program  string
	output   string
	err      error
	panicMsg string
}

func (m *mockEngine) Transform(_ context.Context, document, program []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.called = true
	m.document = string(document)
	m.program = string(program)
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.output != "" {
		return []byte(m.output), nil
	}
	return []byte("<html><body>invoice</body></html>"), nil
}

type mockRenderer struct {
	mu     sync.Mutex
	called bool
	input  string
	result []byte
	err    error
	closed bool
}

func (m *mockRenderer) Render(_ context.Context, markup []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.called = true
	m.input = string(markup)
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return []byte("%PDF-1.4 fake"), nil
}

func (m *mockRenderer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type mockFetcher struct {
	mu    sync.Mutex
	calls []string
	uri   string
}

func (m *mockFetcher) Fetch(_ context.Context, rawURL string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, rawURL)
	return m.uri
}

func withFetcher(f inline.Fetcher) Option {
	return func(c *Converter) {
		c.fetcher = f
	}
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

type testDeps struct {
	engine   *mockEngine
	renderer *mockRenderer
	fetcher  *mockFetcher
}

func newTestConverter(t *testing.T, opts ...Option) (*Converter, *testDeps) {
	t.Helper()
	deps := &testDeps{
		engine:   &mockEngine{},
		renderer: &mockRenderer{},
		fetcher:  &mockFetcher{uri: "data:image/png;base64,AAAA"},
	}
	all := append([]Option{
		WithLogger(quietLogger()),
		WithTransformEngine(deps.engine),
		WithRenderer(deps.renderer),
		withFetcher(deps.fetcher),
	}, opts...)

	conv, err := NewConverter(all...)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	t.Cleanup(func() { _ = conv.Close() })
	return conv, deps
}

// ---------------------------------------------------------------------------
// TestConvert_Mode - Mode validation comes first
// ---------------------------------------------------------------------------

func TestConvert_UnknownMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mode     Mode
		document string
	}{
		{name: "xml with valid document", mode: "xml", document: validInvoice},
		{name: "empty mode", mode: "", document: validInvoice},
		{name: "unknown mode with garbage", mode: "docx", document: "not xml at all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv, deps := newTestConverter(t)
			_, err := conv.Convert(context.Background(), Input{Document: []byte(tt.document), Mode: tt.mode})

			if !errors.Is(err, ErrUnknownMode) {
				t.Fatalf("Convert() error = %v, want ErrUnknownMode", err)
			}
			if deps.engine.called {
				t.Error("transform engine was invoked")
			}
			if deps.renderer.called {
				t.Error("renderer was invoked")
			}
		})
	}
}

func TestConvert_ModeIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	conv, deps := newTestConverter(t)
	res, err := conv.Convert(context.Background(), Input{Document: []byte(validInvoice), Mode: " PDF "})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !deps.renderer.called || len(res.PDF) == 0 {
		t.Error("PDF mode did not render")
	}
}

// ---------------------------------------------------------------------------
// TestConvert_Input - Input decoding and parse failures
// ---------------------------------------------------------------------------

func TestConvert_InputErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   Input
		wantErr error
	}{
		{
			name:    "empty document",
			input:   Input{Document: []byte("  \n"), Mode: ModeHTML},
			wantErr: ErrEmptyInput,
		},
		{
			name:    "invalid base64",
			input:   Input{Document: []byte("%%%not base64%%%"), Mode: ModeHTML, Encoded: true},
			wantErr: ErrInputDecode,
		},
		{
			name:    "not xml",
			input:   Input{Document: []byte("plain text"), Mode: ModeHTML},
			wantErr: ErrDocumentParse,
		},
		{
			name:    "unclosed element",
			input:   Input{Document: []byte("<Invoice><ID>1</Invoice>"), Mode: ModeHTML},
			wantErr: ErrDocumentParse,
		},
		{
			name:    "doctype",
			input:   Input{Document: []byte(`<!DOCTYPE Invoice SYSTEM "file:///etc/passwd"><Invoice/>`), Mode: ModeHTML},
			wantErr: ErrDoctypeNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv, deps := newTestConverter(t)
			_, err := conv.Convert(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Convert() error = %v, want %v", err, tt.wantErr)
			}
			if deps.engine.called {
				t.Error("transform engine was invoked")
			}
		})
	}
}

func TestConvert_EncodedInput(t *testing.T) {
	t.Parallel()

	encoded := base64.StdEncoding.EncodeToString([]byte(validInvoice))
	var wrapped strings.Builder
	for i := 0; i < len(encoded); i += 76 {
		wrapped.WriteString(encoded[i:min(i+76, len(encoded))])
		wrapped.WriteString("\r\n")
	}

	conv, deps := newTestConverter(t)
	_, err := conv.Convert(context.Background(), Input{Document: []byte(wrapped.String()), Mode: ModeHTML, Encoded: true})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !strings.Contains(deps.engine.document, "GIB2025000000001") {
		t.Errorf("engine document = %q", deps.engine.document)
	}
}

// ---------------------------------------------------------------------------
// TestConvert_Stylesheet - Resolution results reach the engine
// ---------------------------------------------------------------------------

func TestConvert_StylesheetErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{name: "none", doc: fixtureInvoice(""), wantErr: ErrStylesheetNotFound},
		{name: "malformed payload", doc: fixtureInvoice(embeddedXSLT("QUJD=RA")), wantErr: ErrPayloadDecode},
		{name: "payload not xml", doc: fixtureInvoice(embeddedXSLT(base64.StdEncoding.EncodeToString([]byte("hello")))), wantErr: ErrEmbeddedStylesheetParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv, deps := newTestConverter(t)
			_, err := conv.Convert(context.Background(), Input{Document: []byte(tt.doc), Mode: ModePDF})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Convert() error = %v, want %v", err, tt.wantErr)
			}
			if deps.engine.called || deps.renderer.called {
				t.Error("pipeline continued after resolution failure")
			}
		})
	}
}

func TestConvert_PayloadDecodeErrorDetails(t *testing.T) {
	t.Parallel()

	conv, _ := newTestConverter(t)
	_, err := conv.Convert(context.Background(), Input{Document: []byte(fixtureInvoice(embeddedXSLT("QUJD=RA"))), Mode: ModeHTML})

	var pe *PayloadDecodeError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *PayloadDecodeError", err)
	}
	if !strings.HasPrefix(pe.Prefix, "QUJD") {
		t.Errorf("Prefix = %q", pe.Prefix)
	}
}

func TestConvert_InlineStylesheetExcludedFromSource(t *testing.T) {
	t.Parallel()

	doc := fixtureInvoice(`<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
    <xsl:template match="/"><p>inline</p></xsl:template>
  </xsl:stylesheet>`)

	conv, deps := newTestConverter(t)
	if _, err := conv.Convert(context.Background(), Input{Document: []byte(doc), Mode: ModeHTML}); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if strings.Contains(deps.engine.document, "xsl:template") {
		t.Errorf("source handed to engine still contains the stylesheet:\n%s", deps.engine.document)
	}
	if !strings.Contains(deps.engine.program, "xsl:template") {
		t.Errorf("program = %q", deps.engine.program)
	}
	if !strings.Contains(deps.engine.document, "GIB2025000000001") {
		t.Error("source lost invoice content")
	}
}

// ---------------------------------------------------------------------------
// TestConvert_Modes - HTML and PDF outputs
// ---------------------------------------------------------------------------

const markupWithImage = `<html><body><img src="https://cdn.example.com/logo.png"/></body></html>`

func TestConvert_HTMLMode(t *testing.T) {
	t.Parallel()

	conv, deps := newTestConverter(t)
	deps.engine.output = markupWithImage

	res, err := conv.Convert(context.Background(), Input{Document: []byte(validInvoice), Mode: ModeHTML})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if string(res.HTML) != markupWithImage {
		t.Errorf("HTML = %q, want engine output untouched", res.HTML)
	}
	if res.PDF != nil {
		t.Error("PDF should be nil in HTML mode")
	}
	if deps.renderer.called {
		t.Error("renderer invoked in HTML mode")
	}
	if len(deps.fetcher.calls) != 0 {
		t.Errorf("fetches in HTML mode = %v", deps.fetcher.calls)
	}
}

func TestConvert_HTMLModeWithInlining(t *testing.T) {
	t.Parallel()

	conv, deps := newTestConverter(t, WithInlineHTML(true))
	deps.engine.output = markupWithImage

	res, err := conv.Convert(context.Background(), Input{Document: []byte(validInvoice), Mode: ModeHTML})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !strings.Contains(string(res.HTML), `src="data:image/png;base64,AAAA"`) {
		t.Errorf("HTML = %q", res.HTML)
	}
}

func TestConvert_PDFMode(t *testing.T) {
	t.Parallel()

	conv, deps := newTestConverter(t)
	deps.engine.output = markupWithImage

	res, err := conv.Convert(context.Background(), Input{Document: []byte(validInvoice), Mode: ModePDF})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	want := `<html><body><img src="data:image/png;base64,AAAA"/></body></html>`
	if deps.renderer.input != want {
		t.Errorf("renderer input = %q, want inlined markup", deps.renderer.input)
	}
	if string(res.HTML) != want {
		t.Errorf("HTML = %q", res.HTML)
	}
	if string(res.PDF) != "%PDF-1.4 fake" {
		t.Errorf("PDF = %q", res.PDF)
	}
	if res.EncodedPDF() != base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 fake")) {
		t.Errorf("EncodedPDF() = %q", res.EncodedPDF())
	}
}

func TestConvert_WithoutFetch(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{output: markupWithImage}
	renderer := &mockRenderer{}
	conv, err := NewConverter(
		WithLogger(quietLogger()),
		WithTransformEngine(engine),
		WithRenderer(renderer),
		WithoutFetch(),
	)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}

	if _, err := conv.Convert(context.Background(), Input{Document: []byte(validInvoice), Mode: ModePDF}); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if want := `<html><body><img src=""/></body></html>`; renderer.input != want {
		t.Errorf("renderer input = %q, want %q", renderer.input, want)
	}
}

// ---------------------------------------------------------------------------
// TestConvert_Failures - Engine and renderer errors
// ---------------------------------------------------------------------------

func TestConvert_TransformErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "engine sentinel", err: ErrTransform, wantErr: ErrTransform},
		{name: "foreign engine error", err: errors.New("boom"), wantErr: ErrTransform},
		{name: "binary missing", err: ErrTransformerNotFound, wantErr: ErrTransformerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv, deps := newTestConverter(t)
			deps.engine.err = tt.err

			_, err := conv.Convert(context.Background(), Input{Document: []byte(validInvoice), Mode: ModePDF})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Convert() error = %v, want %v", err, tt.wantErr)
			}
			if deps.renderer.called {
				t.Error("renderer invoked after transform failure")
			}
		})
	}
}

func TestConvert_RenderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantErr  error
		wantCode int
	}{
		{
			name:     "timeout",
			err:      &render.Error{Kind: render.ErrTimeout, ExitCode: -1, Timeout: 10 * time.Second},
			wantErr:  ErrRenderTimeout,
			wantCode: -1,
		},
		{
			name:     "process failed",
			err:      &render.Error{Kind: render.ErrProcessFailed, ExitCode: 1, Diagnostics: "Exit with code 1"},
			wantErr:  ErrRenderProcessFailed,
			wantCode: 1,
		},
		{
			name:     "empty output",
			err:      &render.Error{Kind: render.ErrEmptyOutput},
			wantErr:  ErrRenderEmptyOutput,
			wantCode: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv, deps := newTestConverter(t)
			deps.renderer.err = tt.err

			_, err := conv.Convert(context.Background(), Input{Document: []byte(validInvoice), Mode: ModePDF})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Convert() error = %v, want %v", err, tt.wantErr)
			}
			var re *RenderError
			if !errors.As(err, &re) {
				t.Fatalf("error type = %T, want *RenderError in chain", err)
			}
			if re.ExitCode != tt.wantCode {
				t.Errorf("ExitCode = %d, want %d", re.ExitCode, tt.wantCode)
			}
		})
	}
}

func TestConvert_RecoversPanic(t *testing.T) {
	t.Parallel()

	conv, deps := newTestConverter(t)
	deps.engine.panicMsg = "engine exploded"

	_, err := conv.Convert(context.Background(), Input{Document: []byte(validInvoice), Mode: ModeHTML})
	if err == nil || !strings.Contains(err.Error(), "internal error: engine exploded") {
		t.Errorf("Convert() error = %v, want recovered panic", err)
	}
}

func TestConvert_CanceledBeforeRender(t *testing.T) {
	t.Parallel()

	conv, deps := newTestConverter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := conv.Convert(ctx, Input{Document: []byte(validInvoice), Mode: ModePDF})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Convert() error = %v, want context.Canceled", err)
	}
	if deps.renderer.called {
		t.Error("renderer invoked with canceled context")
	}
}

// ---------------------------------------------------------------------------
// TestNewConverter - Construction
// ---------------------------------------------------------------------------

func TestNewConverter_UnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := NewConverter(WithLogger(quietLogger()), WithRenderBackend("prince"))
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("NewConverter() error = %v, want ErrUnknownBackend", err)
	}
}

func TestNewConverter_Defaults(t *testing.T) {
	t.Parallel()

	conv, err := NewConverter(WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	defer conv.Close()

	p, ok := conv.renderer.(*render.Process)
	if !ok {
		t.Fatalf("renderer = %T, want *render.Process", conv.renderer)
	}
	if p.Binary() != render.DefaultBinary {
		t.Errorf("renderer binary = %q", p.Binary())
	}
	args := strings.Join(p.Args(), " ")
	for _, want := range []string{"--page-size A4", "--margin-top 5mm", "--zoom 1.0"} {
		if !strings.Contains(args, want) {
			t.Errorf("renderer args %q missing %q", args, want)
		}
	}
}

func TestNewConverter_RenderOptions(t *testing.T) {
	t.Parallel()

	conv, err := NewConverter(
		WithLogger(quietLogger()),
		WithRendererBinary("/opt/wkhtmltopdf"),
		WithPageSize("Letter"),
		WithMargin(0),
		WithZoom(1.5),
	)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	p := conv.renderer.(*render.Process)

	args := strings.Join(p.Args(), " ")
	for _, want := range []string{"--page-size Letter", "--margin-top 0mm", "--zoom 1.5"} {
		if !strings.Contains(args, want) {
			t.Errorf("renderer args %q missing %q", args, want)
		}
	}
	if p.Binary() != "/opt/wkhtmltopdf" {
		t.Errorf("renderer binary = %q", p.Binary())
	}
}

func TestWithTimeouts_PanicOnNonPositive(t *testing.T) {
	t.Parallel()

	for name, fn := range map[string]func(){
		"render":    func() { WithRenderTimeout(0) },
		"transform": func() { WithTransformTimeout(-time.Second) },
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			fn()
		})
	}
}

func TestConverter_Close(t *testing.T) {
	t.Parallel()

	renderer := &mockRenderer{}
	conv, err := NewConverter(WithLogger(quietLogger()), WithRenderer(renderer))
	if err != nil {
		t.Fatal(err)
	}
	if err := conv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !renderer.closed {
		t.Error("renderer not closed")
	}
}
