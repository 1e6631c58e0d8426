package main

// Notes:
// - runConvert: every test clears INVOICE2PDF_* variables first, so none
//   of them run in parallel.
// - The converter is a mock; it echoes the document into HTML and returns a
//   fixed PDF. Documents containing "FAIL" make it fail.

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
	"github.com/alnah/go-invoice2pdf/internal/config"
)

// ---------------------------------------------------------------------------
// TestRunConvert_Stream - stdin to stdout
// ---------------------------------------------------------------------------

func TestRunConvert_Stream(t *testing.T) {
	tests := []struct {
		name    string
		flags   convertFlags
		stdin   string
		want    string
		encoded bool
	}{
		{
			name:  "default mode is pdf",
			flags: convertFlags{},
			stdin: "<Invoice/>",
			want:  "%PDF-1.4 mock",
		},
		{
			name:  "html mode",
			flags: convertFlags{mode: "html"},
			stdin: "<Invoice/>",
			want:  "<html><Invoice/></html>",
		},
		{
			name:  "base64 output",
			flags: convertFlags{mode: "pdf", encodeOutput: true},
			stdin: "<Invoice/>",
			want:  base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 mock")),
		},
		{
			name:    "encoded input is passed through",
			flags:   convertFlags{mode: "PDF", encoded: true},
			stdin:   "PEludm9pY2UvPg==",
			want:    "%PDF-1.4 mock",
			encoded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			conv := &mockConverter{}
			pool := &mockPool{conv: conv}
			env, stdout, _ := testEnv(tt.stdin, pool)

			if err := runConvert(context.Background(), &tt.flags, nil, env); err != nil {
				t.Fatalf("runConvert() error = %v", err)
			}
			if stdout.String() != tt.want {
				t.Errorf("stdout = %q, want %q", stdout.String(), tt.want)
			}
			if got := conv.lastInput(t); got.Encoded != tt.encoded {
				t.Errorf("Input.Encoded = %v, want %v", got.Encoded, tt.encoded)
			}
			if pool.size != 1 {
				t.Errorf("stream pool size = %d, want 1", pool.size)
			}
			if !pool.closed {
				t.Error("pool not closed")
			}
		})
	}
}

func TestRunConvert_ModeFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("INVOICE2PDF_MODE", "html")

	conv := &mockConverter{}
	env, stdout, _ := testEnv("<Invoice/>", &mockPool{conv: conv})

	if err := runConvert(context.Background(), &convertFlags{}, nil, env); err != nil {
		t.Fatalf("runConvert() error = %v", err)
	}
	if conv.lastInput(t).Mode != invoice2pdf.ModeHTML {
		t.Errorf("mode = %q, want html", conv.lastInput(t).Mode)
	}
	if !strings.HasPrefix(stdout.String(), "<html>") {
		t.Errorf("stdout = %q", stdout.String())
	}

	// The flag wins over the environment.
	stdout.Reset()
	env.Stdin = strings.NewReader("<Invoice/>")
	if err := runConvert(context.Background(), &convertFlags{mode: "pdf"}, nil, env); err != nil {
		t.Fatalf("runConvert() error = %v", err)
	}
	if stdout.String() != "%PDF-1.4 mock" {
		t.Errorf("stdout = %q, want PDF", stdout.String())
	}
}

// ---------------------------------------------------------------------------
// TestRunConvert_Errors - validation and failures
// ---------------------------------------------------------------------------

func TestRunConvert_Errors(t *testing.T) {
	tests := []struct {
		name     string
		flags    convertFlags
		pool     *mockPool
		stdin    string
		wantErr  error
		wantCode int
	}{
		{
			name:     "unknown mode",
			flags:    convertFlags{mode: "xml"},
			wantErr:  invoice2pdf.ErrUnknownMode,
			wantCode: ExitUsage,
		},
		{
			name:     "negative workers",
			flags:    convertFlags{workers: -1},
			wantErr:  ErrInvalidWorkerCount,
			wantCode: ExitUsage,
		},
		{
			name:     "too many workers",
			flags:    convertFlags{workers: config.MaxWorkers + 1},
			wantErr:  ErrInvalidWorkerCount,
			wantCode: ExitUsage,
		},
		{
			name:     "invalid timeout",
			flags:    convertFlags{render: renderFlags{timeout: "soon"}},
			wantErr:  ErrInvalidTimeout,
			wantCode: ExitUsage,
		},
		{
			name:     "invalid backend",
			flags:    convertFlags{render: renderFlags{backend: "prince"}},
			wantErr:  config.ErrInvalidValue,
			wantCode: ExitUsage,
		},
		{
			name:     "invalid page size",
			flags:    convertFlags{render: renderFlags{pageSize: "B5"}},
			wantErr:  config.ErrInvalidValue,
			wantCode: ExitUsage,
		},
		{
			name:     "missing config",
			flags:    convertFlags{common: commonFlags{config: "./does-not-exist.yaml"}},
			wantErr:  config.ErrConfigNotFound,
			wantCode: ExitUsage,
		},
		{
			name:     "converter init failure",
			pool:     &mockPool{initErr: invoice2pdf.ErrUnknownBackend},
			wantErr:  ErrConverterInit,
			wantCode: ExitUsage,
		},
		{
			name:     "conversion failure",
			stdin:    "FAIL",
			pool:     &mockPool{conv: &mockConverter{failErr: invoice2pdf.ErrStylesheetNotFound}},
			wantErr:  invoice2pdf.ErrStylesheetNotFound,
			wantCode: ExitDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			pool := tt.pool
			if pool == nil {
				pool = &mockPool{conv: &mockConverter{}}
			}
			env, _, _ := testEnv(tt.stdin, pool)

			err := runConvert(context.Background(), &tt.flags, nil, env)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("runConvert() error = %v, want %v", err, tt.wantErr)
			}
			if code := exitCodeFor(err); code != tt.wantCode {
				t.Errorf("exitCodeFor() = %d, want %d", code, tt.wantCode)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRunConvert_Batch - files and directories
// ---------------------------------------------------------------------------

func TestRunConvert_Batch(t *testing.T) {
	clearEnv(t)

	in := t.TempDir()
	out := t.TempDir()
	writeInput(t, in, "a.xml", "<A/>")
	writeInput(t, filepath.Join(in, "sub"), "b.xml", "<B/>")
	writeInput(t, in, "notes.txt", "ignored")

	pool := &mockPool{conv: &mockConverter{}}
	env, stdout, _ := testEnv("", pool)

	flags := &convertFlags{mode: "html", output: out, workers: 4}
	if err := runConvert(context.Background(), flags, []string{in}, env); err != nil {
		t.Fatalf("runConvert() error = %v", err)
	}

	for path, want := range map[string]string{
		filepath.Join(out, "a.html"):        "<html><A/></html>",
		filepath.Join(out, "sub", "b.html"): "<html><B/></html>",
	} {
		got, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("reading %s: %v", path, err)
			continue
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}

	if pool.size != 2 {
		t.Errorf("pool size = %d, want min(workers, files) = 2", pool.size)
	}
	if !strings.Contains(stdout.String(), "2 succeeded, 0 failed") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunConvert_BatchPartialFailure(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	good := writeInput(t, dir, "good.xml", "<Invoice/>")
	bad := writeInput(t, dir, "bad.xml", "FAIL")

	conv := &mockConverter{failErr: invoice2pdf.ErrDocumentParse}
	env, stdout, stderr := testEnv("", &mockPool{conv: conv})

	err := runConvert(context.Background(), &convertFlags{}, []string{good, bad}, env)
	if !errors.Is(err, invoice2pdf.ErrDocumentParse) {
		t.Fatalf("runConvert() error = %v, want ErrDocumentParse", err)
	}
	if !strings.Contains(err.Error(), "1 conversion(s) failed") {
		t.Errorf("error = %v", err)
	}
	if !strings.Contains(stderr.String(), "FAILED "+bad) {
		t.Errorf("stderr = %q", stderr.String())
	}
	if !strings.Contains(stdout.String(), "1 succeeded, 1 failed") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "good.pdf")); err != nil {
		t.Errorf("good.pdf not written: %v", err)
	}
}

func TestRunConvert_NoInputFiles(t *testing.T) {
	clearEnv(t)

	env, _, _ := testEnv("", &mockPool{conv: &mockConverter{}})
	err := runConvert(context.Background(), &convertFlags{}, []string{t.TempDir()}, env)
	if !errors.Is(err, ErrNoInputFiles) {
		t.Fatalf("runConvert() error = %v, want ErrNoInputFiles", err)
	}
	if exitCodeFor(err) != ExitIO {
		t.Errorf("exit code = %d, want %d", exitCodeFor(err), ExitIO)
	}
}

// ---------------------------------------------------------------------------
// TestResolveMode
// ---------------------------------------------------------------------------

func TestResolveMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flag    string
		env     string
		want    invoice2pdf.Mode
		wantErr bool
	}{
		{name: "default", want: invoice2pdf.ModePDF},
		{name: "env", env: "html", want: invoice2pdf.ModeHTML},
		{name: "flag beats env", flag: "pdf", env: "html", want: invoice2pdf.ModePDF},
		{name: "bad flag", flag: "xml", wantErr: true},
		{name: "bad env", env: "docx", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolveMode(tt.flag, tt.env)
			if tt.wantErr {
				if !errors.Is(err, invoice2pdf.ErrUnknownMode) {
					t.Errorf("resolveMode() error = %v, want ErrUnknownMode", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("resolveMode() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestHintFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "stylesheet", err: invoice2pdf.ErrStylesheetNotFound, want: "AdditionalDocumentReference"},
		{name: "timeout", err: invoice2pdf.ErrRenderTimeout, want: "--timeout"},
		{name: "renderer", err: invoice2pdf.ErrRendererNotFound, want: "wkhtmltopdf"},
		{name: "transformer", err: invoice2pdf.ErrTransformerNotFound, want: "xsltproc"},
		{name: "output dir", err: ErrCreateOutputDir, want: "writable"},
		{name: "other", err: errors.New("x"), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := hintFor(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Errorf("hintFor() = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("hintFor() = %q, want it to mention %q", got, tt.want)
			}
		})
	}
}

func TestSearchedPaths(t *testing.T) {
	t.Parallel()

	err := errors.New("config file not found: tried a.yaml, /home/u/.config/go-invoice2pdf/a.yaml")
	got := searchedPaths(err)
	if len(got) != 2 || got[1] != "/home/u/.config/go-invoice2pdf/a.yaml" {
		t.Errorf("searchedPaths() = %v", got)
	}
	if searchedPaths(errors.New("other")) != nil {
		t.Error("expected nil for an error without paths")
	}
}
