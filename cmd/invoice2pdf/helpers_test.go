package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Mock converter and pool
// ---------------------------------------------------------------------------

// mockConverter returns canned results. Documents containing "FAIL" fail
// with failErr, so batches can mix outcomes.
type mockConverter struct {
	mu      sync.Mutex
	inputs  []invoice2pdf.Input
	failErr error
}

func (m *mockConverter) Convert(_ context.Context, in invoice2pdf.Input) (*invoice2pdf.Result, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, in)
	m.mu.Unlock()

	if _, err := invoice2pdf.ParseMode(string(in.Mode)); err != nil {
		return nil, err
	}
	if bytes.Contains(in.Document, []byte("FAIL")) {
		if m.failErr != nil {
			return nil, m.failErr
		}
		return nil, errors.New("mock failure")
	}
	res := &invoice2pdf.Result{HTML: []byte("<html>" + string(in.Document) + "</html>")}
	if in.Mode == invoice2pdf.ModePDF {
		res.PDF = []byte("%PDF-1.4 mock")
	}
	return res, nil
}

func (m *mockConverter) lastInput(t *testing.T) invoice2pdf.Input {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inputs) == 0 {
		t.Fatal("converter was not called")
	}
	return m.inputs[len(m.inputs)-1]
}

type mockPool struct {
	conv    *mockConverter
	size    int
	initErr error

	mu     sync.Mutex
	closed bool
	opts   int
}

func (p *mockPool) Acquire() CLIConverter {
	if p.initErr != nil || p.conv == nil {
		return nil
	}
	return p.conv
}

func (p *mockPool) Release(CLIConverter) {}
func (p *mockPool) Size() int            { return p.size }
func (p *mockPool) InitError() error     { return p.initErr }

func (p *mockPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// testEnv returns an Environment with captured output and a mock pool.
func testEnv(stdin string, pool *mockPool) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	env := &Environment{
		Stdin:  strings.NewReader(stdin),
		Stdout: stdout,
		Stderr: stderr,
		NewPool: func(size int, opts ...invoice2pdf.Option) Pool {
			pool.mu.Lock()
			pool.size = size
			pool.opts = len(opts)
			pool.mu.Unlock()
			return pool
		},
	}
	return env, stdout, stderr
}

// clearEnv unsets every INVOICE2PDF_* variable for the duration of a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for name := range knownEnvVars {
		t.Setenv(name, "")
	}
}
