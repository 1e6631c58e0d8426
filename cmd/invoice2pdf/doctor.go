package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-invoice2pdf/internal/cfgfile"
	"github.com/alnah/go-invoice2pdf/internal/config"
	"github.com/alnah/go-invoice2pdf/internal/fileutil"
	"github.com/alnah/go-invoice2pdf/internal/hints"
	"github.com/alnah/go-invoice2pdf/internal/render"
	"github.com/alnah/go-invoice2pdf/internal/xslt"
)

// Lookups are variables so tests can stub the host.
var (
	lookPath        = exec.LookPath
	browserLookPath = launcher.LookPath
	commandOutput   = func(name string, args ...string) ([]byte, error) {
		return exec.Command(name, args...).CombinedOutput() // #nosec G204 -- binary from config
	}
	tempDir = os.TempDir
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status      string     `json:"status"` // "ready", "warnings", "errors"
	Backend     string     `json:"backend"`
	Transformer binaryInfo `json:"transformer"`
	Renderer    binaryInfo `json:"renderer"`
	Env         envInfo    `json:"environment"`
	System      systemInfo `json:"system"`
	Warnings    []string   `json:"warnings,omitempty"`
	Errors      []string   `json:"errors,omitempty"`
}

// binaryInfo holds detection results for an external program.
type binaryInfo struct {
	Name    string `json:"name"`
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox,omitempty"`
	BrowserBin    string `json:"rod_browser_bin,omitempty"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempDir      string `json:"temp_dir"`
	TempWritable bool   `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	flags, err := parseDoctorFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}

	cfg, err := loadSettings(flags.config, loadEnvConfig())
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	if flags.backend != "" {
		cfg.Render.Backend = flags.backend
	}

	if flags.showConfig {
		out, err := cfgfile.Marshal(cfgfile.FormatYAML, cfg)
		if err != nil {
			fmt.Fprintf(env.Stderr, "error: %v\n", err)
			return ExitGeneral
		}
		_, _ = env.Stdout.Write(out)
		return ExitSuccess
	}

	result := runDoctor(cfg)

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(cfg *config.Config) *doctorResult {
	backend := strings.ToLower(cfg.Render.Backend)
	if backend == "" {
		backend = render.BackendWkhtmltopdf
	}

	result := &doctorResult{
		Status:  "ready",
		Backend: backend,
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}

	checkTransformer(result, cfg.Transform.Binary)
	switch backend {
	case render.BackendChrome:
		checkChrome(result)
	default:
		checkWkhtmltopdf(result, cfg.Render.Binary)
	}
	checkEnvironment(result)
	checkSystem(result)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

// checkBinary resolves name on PATH and records its version line.
func checkBinary(result *doctorResult, info *binaryInfo, name, versionFlag, hint string) {
	info.Name = name
	path, err := lookPath(name)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s not found%s", name, hint))
		return
	}
	info.Found = true
	info.Path = path

	out, err := commandOutput(path, versionFlag)
	if err != nil && len(out) == 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get %s version: %v", name, err))
		return
	}
	info.Version = firstLine(out)
}

// checkTransformer detects xsltproc.
func checkTransformer(result *doctorResult, binary string) {
	if binary == "" {
		binary = xslt.DefaultBinary
	}
	checkBinary(result, &result.Transformer, binary, "--version", hints.ForTransformerNotFound())
}

// checkWkhtmltopdf detects the wkhtmltopdf renderer.
func checkWkhtmltopdf(result *doctorResult, binary string) {
	if binary == "" {
		binary = render.DefaultBinary
	}
	checkBinary(result, &result.Renderer, binary, "--version", hints.ForRendererNotFound())
}

// checkChrome detects Chrome/Chromium installation.
func checkChrome(result *doctorResult) {
	result.Renderer.Name = "chrome"
	chromePath := result.Env.BrowserBin

	if chromePath == "" {
		var found bool
		chromePath, found = browserLookPath()
		if !found {
			result.Errors = append(result.Errors,
				"Chrome/Chromium not found. Install Chrome or set ROD_BROWSER_BIN")
			return
		}
	}

	if !fileutil.FileExists(chromePath) {
		result.Errors = append(result.Errors, fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Renderer.Found = true
	result.Renderer.Path = chromePath

	out, err := commandOutput(chromePath, "--version")
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get Chrome version: %v", err))
		return
	}
	result.Renderer.Version = firstLine(out)
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer()
	result.Env.CI = hints.InCI()

	if result.Backend == render.BackendChrome &&
		(result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	if os.Getenv("INVOICE2PDF_CONTAINER") == "1" {
		return true, "INVOICE2PDF_CONTAINER=1"
	}
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory used for stylesheets and Chrome pages.
func checkSystem(result *doctorResult) {
	dir := tempDir()
	result.System.TempDir = dir
	if fileutil.DirWritable(dir) {
		result.System.TempWritable = true
		return
	}
	result.Errors = append(result.Errors, fmt.Sprintf("Temp directory not writable: %s", dir))
}

func firstLine(b []byte) string {
	line, _, _ := bytes.Cut(bytes.TrimSpace(b), []byte("\n"))
	return strings.TrimSpace(string(line))
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "invoice2pdf doctor")
	fmt.Fprintln(w)

	printBinary(w, "Transformer", r.Transformer)
	printBinary(w, "Renderer ("+r.Backend+")", r.Renderer)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintf(w, "  [OK] Temp directory: %s\n", r.System.TempDir)
	} else {
		fmt.Fprintf(w, "  [ERROR] Temp directory: %s not writable\n", r.System.TempDir)
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to convert")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}

func printBinary(w io.Writer, title string, b binaryInfo) {
	fmt.Fprintln(w, title)
	if b.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", b.Path)
		if b.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", b.Version)
		}
	} else {
		fmt.Fprintf(w, "  [ERROR] %s not found\n", b.Name)
	}
	fmt.Fprintln(w)
}
