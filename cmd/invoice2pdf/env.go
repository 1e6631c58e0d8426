package main

import (
	"io"
	"os"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// NewPool builds the converter pool for convert and serve.
	NewPool func(size int, opts ...invoice2pdf.Option) Pool
}

// DefaultEnv returns production dependencies.
func DefaultEnv() *Environment {
	return &Environment{
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		NewPool: newConverterPool,
	}
}
