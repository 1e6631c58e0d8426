// Package inline makes rendered markup self-contained by replacing external
// http(s) references with data URIs.
//
// Matching is textual. The markup is never parsed or re-serialized, so
// everything outside a replaced reference comes out byte-for-byte.
package inline

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
)

// UnavailableMarker replaces a style url(...) whose resource could not be
// fetched. A comment keeps the surrounding declaration syntactically valid.
const UnavailableMarker = "/* resource unavailable */"

// urlQuote matches a quote around a url(...) reference, literal or as the
// entity it becomes inside a style attribute.
const urlQuote = `(?:['"]|&quot;|&#34;|&#39;|&apos;)?`

var (
	srcPattern = regexp.MustCompile(`src="(https?://[^"]+)"`)
	urlPattern = regexp.MustCompile(`url\(` + urlQuote + `(https?://[^'")]+?)` + urlQuote + `\)`)
)

// Fetcher resolves a URL to a data URI, or "" when it cannot.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) string
}

// Disabled is a Fetcher that never fetches. Every reference it sees is
// blanked, which keeps the renderer off the network.
type Disabled struct{}

func (Disabled) Fetch(context.Context, string) string { return "" }

// Stats counts what one Inline call did.
type Stats struct {
	Sources       int
	SourcesFailed int
	URLs          int
	URLsFailed    int
}

// Inliner rewrites external references using a Fetcher.
type Inliner struct {
	fetcher Fetcher
	logger  *log.Logger
}

// New creates an Inliner. A nil logger falls back to log.Default().
func New(fetcher Fetcher, logger *log.Logger) *Inliner {
	if fetcher == nil {
		fetcher = Disabled{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Inliner{fetcher: fetcher, logger: logger}
}

// Inline runs two passes over markup: src="..." attributes first, then
// url(...) references in styles. Matches are fetched one at a time in
// order of appearance; nothing is cached between matches.
func (in *Inliner) Inline(ctx context.Context, markup string) string {
	out, stats := in.InlineStats(ctx, markup)
	if stats.Sources+stats.URLs > 0 {
		in.logger.Info("external resources inlined",
			"src", stats.Sources, "src_failed", stats.SourcesFailed,
			"url", stats.URLs, "url_failed", stats.URLsFailed)
	}
	return out
}

// InlineStats is Inline with counters.
func (in *Inliner) InlineStats(ctx context.Context, markup string) (string, Stats) {
	var stats Stats

	markup = replaceAll(srcPattern, markup, func(ref string) string {
		stats.Sources++
		uri := in.fetcher.Fetch(ctx, html.UnescapeString(ref))
		if uri == "" {
			stats.SourcesFailed++
			return `src=""`
		}
		return `src="` + uri + `"`
	})

	markup = replaceAll(urlPattern, markup, func(ref string) string {
		stats.URLs++
		uri := in.fetcher.Fetch(ctx, html.UnescapeString(ref))
		if uri == "" {
			stats.URLsFailed++
			return UnavailableMarker
		}
		return "url('" + uri + "')"
	})

	return markup, stats
}

// replaceAll substitutes every match of re with replace(group 1). The
// replacement is inserted literally and never rescanned.
func replaceAll(re *regexp.Regexp, s string, replace func(ref string) string) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	last := 0
	for _, m := range matches {
		sb.WriteString(s[last:m[0]])
		sb.WriteString(replace(s[m[2]:m[3]]))
		last = m[1]
	}
	sb.WriteString(s[last:])
	return sb.String()
}
