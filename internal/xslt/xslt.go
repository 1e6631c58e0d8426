// Package xslt applies XSLT 1.0 stylesheets to XML documents.
//
// The transform itself is delegated to libxslt through the xsltproc command
// line tool; this package owns the process plumbing and error mapping.
package xslt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-invoice2pdf/internal/fileutil"
	"github.com/alnah/go-invoice2pdf/internal/process"
)

// DefaultBinary is the xsltproc executable looked up on PATH.
const DefaultBinary = "xsltproc"

// DefaultTimeout bounds a single transform.
const DefaultTimeout = 30 * time.Second

// Sentinel errors for transform failures.
var (
	ErrTransform       = errors.New("XSLT transform failed")
	ErrBinaryNotFound  = errors.New("xsltproc not found")
	ErrEmptyStylesheet = errors.New("stylesheet cannot be empty")
)

// Engine applies a stylesheet to a document and returns the result markup.
type Engine interface {
	Transform(ctx context.Context, document, stylesheet []byte) ([]byte, error)
}

// Runner abstracts command execution to enable testing without real subprocesses.
type Runner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) (stdout []byte, stderr string, err error)
}

// ExecRunner implements Runner using os/exec.
// The child runs in its own process group so cancellation reaps helpers too.
type ExecRunner struct{}

func (r *ExecRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	process.SetProcessGroup(cmd)
	cmd.Cancel = func() error {
		process.KillProcessGroup(cmd.Process.Pid)
		return nil
	}
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.String(), err
}

// Xsltproc is an Engine backed by the xsltproc CLI.
type Xsltproc struct {
	Binary  string
	Timeout time.Duration
	Runner  Runner
	Logger  *log.Logger
}

// NewXsltproc creates an Xsltproc engine with a real command runner.
// An empty binary selects DefaultBinary; a zero timeout selects DefaultTimeout.
func NewXsltproc(binary string, timeout time.Duration, logger *log.Logger) *Xsltproc {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Xsltproc{Binary: binary, Timeout: timeout, Runner: &ExecRunner{}, Logger: logger}
}

// Transform runs the stylesheet against the document.
// Network access and file writes are disabled for the stylesheet.
func (x *Xsltproc) Transform(ctx context.Context, document, stylesheet []byte) ([]byte, error) {
	if len(bytes.TrimSpace(stylesheet)) == 0 {
		return nil, ErrEmptyStylesheet
	}

	sheetPath, cleanup, err := fileutil.WriteTempFile(stylesheet, "xsl")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransform, err)
	}
	defer cleanup()

	if x.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.Timeout)
		defer cancel()
	}

	start := time.Now()
	stdout, stderr, err := x.Runner.Run(ctx, document, x.Binary,
		"--nonet", "--nowrite", "--nomkdir", sheetPath, "-")
	stderr = strings.TrimSpace(stderr)

	if err != nil {
		switch {
		case errors.Is(err, exec.ErrNotFound):
			return nil, fmt.Errorf("%w: %q: %w", ErrBinaryNotFound, x.Binary, err)
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%w: timed out after %s", ErrTransform, x.Timeout)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case stderr != "":
			return nil, fmt.Errorf("%w: %s: %w", ErrTransform, stderr, err)
		default:
			return nil, fmt.Errorf("%w: %w", ErrTransform, err)
		}
	}

	if stderr != "" {
		x.Logger.Debug("xsltproc diagnostics", "stderr", stderr)
	}
	x.Logger.Debug("transform done", "bytes", len(stdout), "elapsed", time.Since(start).Round(time.Millisecond))
	return stdout, nil
}

// Compile-time interface check.
var _ Engine = (*Xsltproc)(nil)
