package invoice2pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-invoice2pdf/internal/fetch"
	"github.com/alnah/go-invoice2pdf/internal/inline"
	"github.com/alnah/go-invoice2pdf/internal/render"
	"github.com/alnah/go-invoice2pdf/internal/stylesheet"
	"github.com/alnah/go-invoice2pdf/internal/xmldoc"
	"github.com/alnah/go-invoice2pdf/internal/xslt"
)

// Compile-time interface implementation checks.
var (
	_ xslt.Engine     = (*xslt.Xsltproc)(nil)
	_ render.Renderer = (*render.Process)(nil)
	_ render.Renderer = (*render.Chrome)(nil)
	_ inline.Fetcher  = (*fetch.Fetcher)(nil)
)

// Converter orchestrates the invoice-to-PDF conversion pipeline.
// Create with NewConverter(), use Convert() for conversion, and Close() when done.
type Converter struct {
	cfg      converterConfig
	logger   *log.Logger
	resolver *stylesheet.Resolver
	engine   xslt.Engine
	fetcher  inline.Fetcher
	inliner  *inline.Inliner
	renderer render.Renderer
}

// NewConverter creates a Converter with default configuration.
// Use options to customize behavior (e.g., WithRenderTimeout, WithRenderBackend).
// Returns error if the render backend is unknown.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{cfg: defaultConfig()}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.cfg.logger
	if c.logger == nil {
		c.logger = log.Default()
	}

	c.resolver = stylesheet.NewResolver(c.logger)

	// Engine, fetcher and renderer may be injected (e.g., by tests).
	if c.engine == nil {
		c.engine = xslt.NewXsltproc(c.cfg.transformerBinary, c.cfg.transformTimeout, c.logger)
	}

	if c.fetcher == nil {
		if c.cfg.noFetch {
			c.fetcher = inline.Disabled{}
		} else {
			c.fetcher = fetch.New(c.cfg.fetchOpts, c.logger)
		}
	}
	c.inliner = inline.New(c.fetcher, c.logger)

	if c.renderer == nil {
		r, err := render.New(c.cfg.backend, c.cfg.rendererBinary, c.cfg.renderOpts, c.logger)
		if err != nil {
			return nil, err
		}
		c.renderer = r
	}

	return c, nil
}

// Convert runs the full pipeline and returns the result.
// The mode is checked before anything else, so an unknown mode never
// reaches the parser or the renderer.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (c *Converter) Convert(ctx context.Context, input Input) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	mode, err := ParseMode(string(input.Mode))
	if err != nil {
		return nil, err
	}

	raw := input.Document
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyInput
	}
	if input.Encoded {
		raw, err = decodeInput(raw)
		if err != nil {
			return nil, err
		}
	}

	start := time.Now()

	html, err := c.transform(ctx, raw)
	if err != nil {
		return nil, err
	}

	if mode == ModePDF || c.cfg.inlineHTML {
		html = []byte(c.inliner.Inline(ctx, string(html)))
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	res := &Result{HTML: html}
	if mode == ModeHTML {
		c.logger.Debug("conversion done", "mode", mode, "elapsed", time.Since(start).Round(time.Millisecond))
		return res, nil
	}

	pdf, err := c.renderer.Render(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF: %w", err)
	}
	res.PDF = pdf

	c.logger.Debug("conversion done", "mode", mode, "bytes", len(pdf), "elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}

// transform parses raw, resolves its stylesheet and applies it.
func (c *Converter) transform(ctx context.Context, raw []byte) ([]byte, error) {
	doc, err := xmldoc.Parse(raw)
	if err != nil {
		if errors.Is(err, xmldoc.ErrDoctypeNotAllowed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDocumentParse, err)
	}

	cand, err := c.resolver.Resolve(doc)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("stylesheet selected", "origin", cand.Origin)

	source, err := xmldoc.Serialize(cand.Source)
	if err != nil {
		return nil, err
	}
	program, err := xmldoc.Serialize(cand.Program)
	if err != nil {
		return nil, err
	}

	html, err := c.engine.Transform(ctx, source, program)
	if err != nil {
		if errors.Is(err, ErrTransform) || errors.Is(err, ErrTransformerNotFound) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrTransform, err)
	}
	return html, nil
}

// Close releases renderer resources (headless Chrome browser).
func (c *Converter) Close() error {
	if c.renderer != nil {
		return c.renderer.Close()
	}
	return nil
}
