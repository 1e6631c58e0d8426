package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-invoice2pdf/internal/process"
)

// DefaultBinary is the wkhtmltopdf executable looked up on PATH.
const DefaultBinary = "wkhtmltopdf"

// Process renders by piping markup through an external binary.
//
// Each Render spawns one process. Markup goes in on stdin; the PDF comes
// back on stdout while stderr is collected for diagnostics. Both outputs
// are drained concurrently with the input write, so a child that fills
// its stdout pipe before it has read all of stdin cannot deadlock us.
type Process struct {
	binary string
	args   []string
	opts   Options
	logger *log.Logger
}

// NewProcess creates a wkhtmltopdf driver. An empty binary selects
// DefaultBinary.
func NewProcess(binary string, opts Options, logger *log.Logger) *Process {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Process{binary: binary, opts: opts.withDefaults(), logger: logger}
}

// WithArgs replaces the generated wkhtmltopdf flags, for renderers that
// speak the same stdin/stdout protocol with different options.
func (p *Process) WithArgs(args ...string) *Process {
	cp := *p
	cp.args = append([]string(nil), args...)
	return &cp
}

// Binary returns the executable this driver runs.
func (p *Process) Binary() string { return p.binary }

// Args returns the command line arguments passed to the binary.
// Local file access is always disabled: the markup comes from the invoice
// and must not pull files off the host into the PDF.
func (p *Process) Args() []string {
	if p.args != nil {
		return append([]string(nil), p.args...)
	}
	margin := strconv.FormatFloat(p.opts.MarginMM, 'f', -1, 64) + "mm"
	return []string{
		"--encoding", "UTF-8",
		"--disable-local-file-access",
		"--quiet",
		"--page-size", p.opts.PageSize,
		"--margin-top", margin,
		"--margin-bottom", margin,
		"--margin-left", margin,
		"--margin-right", margin,
		"--zoom", formatZoom(p.opts.Zoom),
		"--enable-smart-shrinking",
		"--no-stop-slow-scripts",
		"-", "-",
	}
}

func formatZoom(z float64) string {
	s := strconv.FormatFloat(z, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Close is a no-op; every Render owns its own process.
func (p *Process) Close() error { return nil }

// Render runs one render job.
//
// The ceiling starts when the process starts and also covers the input
// write. When it elapses the process group is killed and *Error with
// ErrTimeout is returned along with any diagnostics captured so far.
// Cancelling ctx kills the process the same way and returns ctx.Err().
func (p *Process) Render(ctx context.Context, markup []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pipes, err := newStdio()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(p.binary, p.Args()...)
	cmd.Stdin = pipes.stdinR
	cmd.Stdout = pipes.stdoutW
	cmd.Stderr = pipes.stderrW
	process.SetProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		pipes.closeAll()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q: %w", ErrBinaryNotFound, p.binary, err)
		}
		return nil, fmt.Errorf("starting %s: %w", p.binary, err)
	}
	pipes.closeChildEnds()

	var stdout, stderr bytes.Buffer
	var drains errgroup.Group
	drains.Go(func() error { return drain(&stdout, pipes.stdoutR) })
	drains.Go(func() error { return drain(&stderr, pipes.stderrR) })

	job := &job{cmd: cmd, waitCh: make(chan error, 1)}
	go job.wait()

	var timedOut, canceled atomic.Bool
	watchdog := time.AfterFunc(p.opts.Timeout, func() {
		if job.kill() {
			timedOut.Store(true)
		}
	})
	stopCancel := context.AfterFunc(ctx, func() {
		if job.kill() {
			canceled.Store(true)
		}
	})

	_, writeErr := pipes.stdinW.Write(markup)
	_ = pipes.stdinW.Close()

	waitErr := <-job.waitCh
	watchdog.Stop()
	stopCancel()

	p.join(&drains, pipes)
	elapsed := time.Since(start)

	if writeErr != nil && !errors.Is(writeErr, syscall.EPIPE) {
		p.logger.Debug("renderer input write failed", "err", writeErr)
	}

	out, err := p.outcome(ctx, waitErr, timedOut.Load(), canceled.Load(), &stdout, &stderr)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("render done", "binary", p.binary, "bytes", stdout.Len(), "elapsed", elapsed.Round(time.Millisecond))
	return out, nil
}

// outcome classifies a finished job. A clean exit wins over a ceiling
// that fired while the process was already exiting but not yet reaped.
func (p *Process) outcome(ctx context.Context, waitErr error, timedOut, canceled bool, stdout, stderr *bytes.Buffer) ([]byte, error) {
	switch {
	case timedOut && waitErr != nil:
		return nil, &Error{Kind: ErrTimeout, ExitCode: -1, Diagnostics: stderr.String(), Timeout: p.opts.Timeout}
	case canceled:
		return nil, ctx.Err()
	case waitErr != nil:
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		return nil, &Error{Kind: ErrProcessFailed, ExitCode: code, Diagnostics: stderr.String()}
	case stdout.Len() == 0:
		return nil, &Error{Kind: ErrEmptyOutput, ExitCode: 0, Diagnostics: stderr.String()}
	}
	return stdout.Bytes(), nil
}

// join waits for both drains. If they outlive the grace period (a
// grandchild still holding a pipe open), the read ends are closed to
// unblock them; that is logged but not fatal.
func (p *Process) join(drains *errgroup.Group, pipes *stdio) {
	done := make(chan error, 1)
	go func() { done <- drains.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			p.logger.Debug("renderer output drain failed", "err", err)
		}
	case <-time.After(p.opts.JoinGrace):
		p.logger.Warn("renderer output drains did not finish in time", "grace", p.opts.JoinGrace)
		pipes.closeParentReads()
		<-done
	}
	pipes.closeParentReads()
}

func drain(dst *bytes.Buffer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

// job tracks one running process so a late kill never targets a reaped pid.
type job struct {
	cmd    *exec.Cmd
	waitCh chan error

	mu     sync.Mutex
	exited bool
}

func (j *job) wait() {
	err := j.cmd.Wait()
	j.mu.Lock()
	j.exited = true
	j.mu.Unlock()
	j.waitCh <- err
}

// kill terminates the process group. It reports false when the process
// had already exited.
func (j *job) kill() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.exited {
		return false
	}
	process.KillProcessGroup(j.cmd.Process.Pid)
	_ = j.cmd.Process.Kill()
	return true
}

// stdio holds the three pipe pairs of one job. Using *os.File on the
// child side keeps exec from adding its own copy goroutines, so
// cmd.Wait returns as soon as the process exits.
type stdio struct {
	stdinR, stdinW   *os.File
	stdoutR, stdoutW *os.File
	stderrR, stderrW *os.File
}

func newStdio() (*stdio, error) {
	s := &stdio{}
	var err error
	if s.stdinR, s.stdinW, err = os.Pipe(); err != nil {
		return nil, fmt.Errorf("creating stdin pipe: %w", err)
	}
	if s.stdoutR, s.stdoutW, err = os.Pipe(); err != nil {
		s.closeAll()
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	if s.stderrR, s.stderrW, err = os.Pipe(); err != nil {
		s.closeAll()
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}
	return s, nil
}

func (s *stdio) closeChildEnds() {
	closeFiles(s.stdinR, s.stdoutW, s.stderrW)
}

func (s *stdio) closeParentReads() {
	closeFiles(s.stdoutR, s.stderrR)
}

func (s *stdio) closeAll() {
	closeFiles(s.stdinR, s.stdinW, s.stdoutR, s.stdoutW, s.stderrR, s.stderrW)
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}

// Compile-time interface check.
var _ Renderer = (*Process)(nil)
