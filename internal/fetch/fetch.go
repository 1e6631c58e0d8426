// Package fetch downloads remote resources and encodes them as data URIs.
//
// Fetch never fails loudly: every problem is logged as a warning and the
// caller receives an empty string, because a missing logo or font must not
// abort an otherwise good conversion.
package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Default limits.
const (
	DefaultConnectTimeout = 1500 * time.Millisecond
	DefaultReadTimeout    = 1500 * time.Millisecond
	DefaultMaxRedirects   = 3
	DefaultMaxBodySize    = 20 << 20
	DefaultMIME           = "application/octet-stream"
)

// Browser-like request headers. Some origins refuse requests that do not
// look like they come from a browser.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"
	DefaultAcceptLanguage = "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7"
)

// Sentinel errors returned by Get.
var (
	ErrUnsupportedScheme = errors.New("only http and https URLs can be fetched")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrMissingLocation   = errors.New("redirect without Location header")
	ErrStatus            = errors.New("unexpected HTTP status")
	ErrReadTimeout       = errors.New("read timed out")
	ErrBodyTooLarge      = errors.New("response body too large")
)

// Options configures a Fetcher. Zero values select the defaults above.
type Options struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxRedirects   int
	MaxBodySize    int64

	UserAgent      string
	AcceptLanguage string

	// Referer is sent with every request. When empty, the origin of the
	// requested URL is used.
	Referer string
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = DefaultMaxRedirects
	}
	if o.MaxBodySize <= 0 {
		o.MaxBodySize = DefaultMaxBodySize
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.AcceptLanguage == "" {
		o.AcceptLanguage = DefaultAcceptLanguage
	}
	return o
}

// Resource is a downloaded body with its resolved MIME type.
type Resource struct {
	URL  string
	MIME string
	Data []byte
}

// DataURI encodes r as a base64 data URI.
func (r *Resource) DataURI() string {
	return "data:" + r.MIME + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// Fetcher performs GET requests with manual redirect handling.
// A Fetcher is safe for concurrent use.
type Fetcher struct {
	client *http.Client
	opts   Options
	logger *log.Logger
}

// New creates a Fetcher. A nil logger falls back to log.Default().
func New(opts Options, logger *log.Logger) *Fetcher {
	opts = opts.withDefaults()
	if logger == nil {
		logger = log.Default()
	}

	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.ReadTimeout,
		MaxIdleConns:          16,
		IdleConnTimeout:       30 * time.Second,
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		opts:   opts,
		logger: logger,
	}
}

// Fetch downloads rawURL and returns it as a data URI, or "" on any failure.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) string {
	res, err := f.Get(ctx, rawURL)
	if err != nil {
		f.logger.Warn("resource not inlined", "url", rawURL, "err", err)
		return ""
	}
	f.logger.Debug("resource inlined", "url", rawURL, "mime", res.MIME, "bytes", len(res.Data))
	return res.DataURI()
}

// Get downloads rawURL following at most MaxRedirects redirects.
// Relative Location headers are resolved against the current URL.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Resource, error) {
	requested, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}
	if requested.Scheme != "http" && requested.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
	}

	current := requested
	for redirects := 0; ; redirects++ {
		resp, err := f.do(ctx, current)
		if err != nil {
			return nil, err
		}

		if isRedirect(resp.StatusCode) {
			location := resp.Header.Get("Location")
			discard(resp)
			if location == "" {
				return nil, fmt.Errorf("%w: %s", ErrMissingLocation, current)
			}
			if redirects >= f.opts.MaxRedirects {
				return nil, fmt.Errorf("%w: more than %d", ErrTooManyRedirects, f.opts.MaxRedirects)
			}
			next, err := current.Parse(location)
			if err != nil {
				return nil, fmt.Errorf("parsing redirect target %q: %w", location, err)
			}
			f.logger.Debug("following redirect", "from", current, "to", next, "status", resp.StatusCode)
			current = next
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			discard(resp)
			return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
		}

		data, err := f.readBody(ctx, resp)
		if err != nil {
			return nil, err
		}
		return &Resource{
			URL:  current.String(),
			MIME: ResolveMIME(resp.Header.Get("Content-Type"), requested),
			Data: data,
		}, nil
	}
}

func (f *Fetcher) do(ctx context.Context, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	referer := f.opts.Referer
	if referer == "" {
		referer = u.Scheme + "://" + u.Host + "/"
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", DefaultAccept)
	req.Header.Set("Accept-Language", f.opts.AcceptLanguage)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Referer", referer)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", u, err)
	}
	return resp, nil
}

// readBody buffers the body. The read deadline is an idle timeout: it is
// pushed back every time bytes arrive.
func (f *Fetcher) readBody(ctx context.Context, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	timer := time.AfterFunc(f.opts.ReadTimeout, func() {
		cancel(ErrReadTimeout)
		_ = resp.Body.Close()
	})
	defer timer.Stop()

	body := &idleReader{r: resp.Body, timer: timer, idle: f.opts.ReadTimeout}
	data, err := io.ReadAll(io.LimitReader(body, f.opts.MaxBodySize+1))
	if cause := context.Cause(ctx); errors.Is(cause, ErrReadTimeout) {
		return nil, fmt.Errorf("%w after %s", ErrReadTimeout, f.opts.ReadTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(data)) > f.opts.MaxBodySize {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.opts.MaxBodySize)
	}
	return data, nil
}

type idleReader struct {
	r     io.Reader
	timer *time.Timer
	idle  time.Duration
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 {
		ir.timer.Reset(ir.idle)
	}
	return n, err
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// ResolveMIME picks the MIME type for a downloaded resource.
//
// A Content-Type without parameters is used as is. Otherwise the extension
// of the requested URL path decides for the known image and font types,
// then the header's media type without parameters, then DefaultMIME.
func ResolveMIME(contentType string, requested *url.URL) string {
	contentType = strings.TrimSpace(contentType)
	if contentType != "" && !strings.Contains(contentType, ";") {
		return contentType
	}

	if requested != nil {
		switch strings.ToLower(path.Ext(requested.Path)) {
		case ".jpg", ".jpeg":
			return "image/jpeg"
		case ".png":
			return "image/png"
		case ".ttf":
			return "font/ttf"
		}
	}

	if contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType != "" {
			return mediaType
		}
		if primary := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]); primary != "" {
			return primary
		}
	}
	return DefaultMIME
}
