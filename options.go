package invoice2pdf

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-invoice2pdf/internal/fetch"
	"github.com/alnah/go-invoice2pdf/internal/render"
	"github.com/alnah/go-invoice2pdf/internal/xslt"
)

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	logger *log.Logger

	transformerBinary string
	transformTimeout  time.Duration

	backend        string
	rendererBinary string
	renderOpts     render.Options

	fetchOpts  fetch.Options
	inlineHTML bool
	noFetch    bool
}

func defaultConfig() converterConfig {
	return converterConfig{
		transformTimeout: xslt.DefaultTimeout,
		backend:          render.BackendWkhtmltopdf,
		renderOpts: render.Options{
			PageSize: render.DefaultPageSize,
			MarginMM: render.DefaultMarginMM,
			Zoom:     render.DefaultZoom,
			Timeout:  render.DefaultTimeout,
		},
	}
}

// WithLogger sets the logger used by every pipeline stage.
func WithLogger(l *log.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.cfg.logger = l
		}
	}
}

// WithTransformerBinary sets the xsltproc executable.
func WithTransformerBinary(path string) Option {
	return func(c *Converter) {
		c.cfg.transformerBinary = path
	}
}

// WithTransformTimeout bounds a single XSLT transform.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTransformTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("invoice2pdf: WithTransformTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.transformTimeout = d
	}
}

// WithTransformEngine replaces the xsltproc engine.
func WithTransformEngine(e xslt.Engine) Option {
	return func(c *Converter) {
		c.engine = e
	}
}

// WithRenderBackend selects "wkhtmltopdf" (default) or "chrome".
func WithRenderBackend(name string) Option {
	return func(c *Converter) {
		c.cfg.backend = name
	}
}

// WithRendererBinary sets the wkhtmltopdf executable.
func WithRendererBinary(path string) Option {
	return func(c *Converter) {
		c.cfg.rendererBinary = path
	}
}

// WithRenderer replaces the PDF renderer entirely.
func WithRenderer(r render.Renderer) Option {
	return func(c *Converter) {
		c.renderer = r
	}
}

// WithRenderTimeout sets the render ceiling.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithRenderTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("invoice2pdf: WithRenderTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.renderOpts.Timeout = d
	}
}

// WithPageSize sets the paper size: A3, A4, A5, Letter or Legal.
func WithPageSize(size string) Option {
	return func(c *Converter) {
		c.cfg.renderOpts.PageSize = size
	}
}

// WithMargin sets all four page margins in millimetres.
func WithMargin(mm float64) Option {
	return func(c *Converter) {
		if mm == 0 {
			mm = -1
		}
		c.cfg.renderOpts.MarginMM = mm
	}
}

// WithZoom sets the render zoom factor.
func WithZoom(z float64) Option {
	return func(c *Converter) {
		c.cfg.renderOpts.Zoom = z
	}
}

// WithJoinGrace bounds how long renderer output drains may lag behind exit.
func WithJoinGrace(d time.Duration) Option {
	return func(c *Converter) {
		c.cfg.renderOpts.JoinGrace = d
	}
}

// WithFetchTimeouts sets the connect and idle read timeouts for resource downloads.
func WithFetchTimeouts(connect, read time.Duration) Option {
	return func(c *Converter) {
		c.cfg.fetchOpts.ConnectTimeout = connect
		c.cfg.fetchOpts.ReadTimeout = read
	}
}

// WithMaxRedirects sets how many redirects a resource download may follow.
func WithMaxRedirects(n int) Option {
	return func(c *Converter) {
		c.cfg.fetchOpts.MaxRedirects = n
	}
}

// WithReferer sets the Referer sent with resource downloads.
func WithReferer(referer string) Option {
	return func(c *Converter) {
		c.cfg.fetchOpts.Referer = referer
	}
}

// WithUserAgent overrides the browser User-Agent sent with resource downloads.
func WithUserAgent(ua string) Option {
	return func(c *Converter) {
		c.cfg.fetchOpts.UserAgent = ua
	}
}

// WithAcceptLanguage overrides the Accept-Language sent with resource downloads.
func WithAcceptLanguage(lang string) Option {
	return func(c *Converter) {
		c.cfg.fetchOpts.AcceptLanguage = lang
	}
}

// WithInlineHTML also inlines external resources in HTML mode.
func WithInlineHTML(enabled bool) Option {
	return func(c *Converter) {
		c.cfg.inlineHTML = enabled
	}
}

// WithoutFetch never downloads anything; external references are blanked
// instead of inlined.
func WithoutFetch() Option {
	return func(c *Converter) {
		c.cfg.noFetch = true
	}
}
