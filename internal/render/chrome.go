package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-invoice2pdf/internal/fileutil"
)

// pageRenderer abstracts printing an HTML file to enable testing without a browser.
type pageRenderer interface {
	RenderFromFile(ctx context.Context, filePath string) ([]byte, error)
	Close() error
}

// Chrome renders through headless Chrome via go-rod.
// Rod downloads Chromium on first use if no browser is found.
// The browser is started lazily and reused until Close.
type Chrome struct {
	renderer pageRenderer
	opts     Options
	logger   *log.Logger
}

// NewChrome creates a Chrome renderer.
func NewChrome(opts Options, logger *log.Logger) *Chrome {
	opts = opts.withDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &Chrome{renderer: &rodRenderer{opts: opts}, opts: opts, logger: logger}
}

// Render writes markup to a temp file and prints it to PDF.
// Errors map onto the same *Error kinds as Process.
func (c *Chrome) Render(ctx context.Context, markup []byte) ([]byte, error) {
	path, cleanup, err := fileutil.WriteTempFile(markup, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	start := time.Now()
	pdf, err := c.renderer.RenderFromFile(ctx, path)
	if err != nil {
		switch {
		case errors.Is(err, ErrBrowserConnect):
			return nil, err
		case errors.Is(err, context.DeadlineExceeded):
			return nil, &Error{Kind: ErrTimeout, ExitCode: -1, Diagnostics: err.Error(), Timeout: c.opts.Timeout}
		case errors.Is(err, context.Canceled):
			return nil, err
		default:
			return nil, &Error{Kind: ErrProcessFailed, ExitCode: -1, Diagnostics: err.Error()}
		}
	}
	if len(pdf) == 0 {
		return nil, &Error{Kind: ErrEmptyOutput, ExitCode: 0}
	}

	c.logger.Debug("render done", "backend", BackendChrome, "bytes", len(pdf), "elapsed", time.Since(start).Round(time.Millisecond))
	return pdf, nil
}

// Close releases browser resources.
func (c *Chrome) Close() error {
	if c.renderer != nil {
		return c.renderer.Close()
	}
	return nil
}

// rodRenderer implements pageRenderer using go-rod.
type rodRenderer struct {
	opts Options

	mu      sync.Mutex
	browser *rod.Browser
}

// ensureBrowser lazily connects to the browser.
func (r *rodRenderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" || os.Getenv("ROD_NO_SANDBOX") == "1" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	r.browser = browser
	return browser, nil
}

func (r *rodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		err := r.browser.Close()
		r.browser = nil
		return err
	}
	return nil
}

// RenderFromFile opens a local HTML file and prints it to PDF.
func (r *rodRenderer) RenderFromFile(ctx context.Context, filePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdfOpts, err := r.printOptions()
	if err != nil {
		return nil, err
	}

	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "file://" + filePath})
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("loading page: %w", err)
	}

	reader, err := page.PDF(pdfOpts)
	if err != nil {
		return nil, fmt.Errorf("printing PDF: %w", err)
	}

	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading PDF stream: %w", err)
	}
	return pdf, nil
}

func (r *rodRenderer) printOptions() (*proto.PagePrintToPDF, error) {
	width, height, err := PaperSize(r.opts.PageSize)
	if err != nil {
		return nil, err
	}
	margin := mmToInches(r.opts.MarginMM)
	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(width),
		PaperHeight:     floatPtr(height),
		MarginTop:       floatPtr(margin),
		MarginBottom:    floatPtr(margin),
		MarginLeft:      floatPtr(margin),
		MarginRight:     floatPtr(margin),
		Scale:           floatPtr(r.opts.Zoom),
		PrintBackground: true,
	}, nil
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}

// Compile-time interface check.
var _ Renderer = (*Chrome)(nil)
