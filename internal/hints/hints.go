// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"runtime"
	"strings"

	"github.com/alnah/go-invoice2pdf/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// InCI reports whether a well-known CI environment variable is set.
func InCI() bool {
	return os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""
}

// ForBrowserConnect returns hints for browser connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	if (InCI() || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}

	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}

	return formatHints(hints)
}

// ForRendererNotFound returns install hints for a missing wkhtmltopdf.
func ForRendererNotFound() string {
	hints := []string{installHint("wkhtmltopdf", "wkhtmltopdf")}
	hints = append(hints, "or set INVOICE2PDF_RENDER_BIN, or use --backend chrome")
	return formatHints(hints)
}

// ForTransformerNotFound returns install hints for a missing xsltproc.
func ForTransformerNotFound() string {
	pkg := "xsltproc"
	if runtime.GOOS == "darwin" {
		pkg = "libxslt"
	}
	return formatHints([]string{installHint("xsltproc", pkg), "or set INVOICE2PDF_XSLTPROC_BIN"})
}

// ForRenderTimeout returns a hint about the render ceiling.
func ForRenderTimeout() string {
	return format("large or image-heavy invoices may need --timeout 30s; remote fonts can stall wkhtmltopdf, try --no-fetch to rule them out")
}

// ForStylesheetNotFound returns a hint for documents without a usable stylesheet.
func ForStylesheetNotFound() string {
	return format("the invoice must carry an XSLT, inline or as an AdditionalDocumentReference with DocumentType XSLT")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-invoice2pdf/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-invoice2pdf") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

func installHint(binary, pkg string) string {
	switch runtime.GOOS {
	case "darwin":
		return "install " + binary + " with: brew install " + pkg
	case "windows":
		return "install " + binary + " and add it to PATH"
	default:
		if IsInContainer() {
			return "add " + pkg + " to the container image (apt-get install -y " + pkg + ")"
		}
		return "install " + binary + " with your package manager (e.g. apt-get install " + pkg + ")"
	}
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
