package main

import (
	"context"
	"fmt"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
)

// CLIConverter is the interface for the conversion service.
type CLIConverter interface {
	Convert(ctx context.Context, input invoice2pdf.Input) (*invoice2pdf.Result, error)
}

// Compile-time interface implementation check.
var _ CLIConverter = (*invoice2pdf.Converter)(nil)

// Pool abstracts converter pool operations for testability.
type Pool interface {
	Acquire() CLIConverter
	Release(CLIConverter)
	Size() int
	InitError() error
	Close() error
}

// poolAdapter exposes *invoice2pdf.ConverterPool through Pool.
type poolAdapter struct {
	pool *invoice2pdf.ConverterPool
}

var _ Pool = (*poolAdapter)(nil)

func newConverterPool(size int, opts ...invoice2pdf.Option) Pool {
	return &poolAdapter{pool: invoice2pdf.NewConverterPool(size, opts...)}
}

// Acquire returns nil when the converter could not be built.
func (a *poolAdapter) Acquire() CLIConverter {
	conv := a.pool.Acquire()
	if conv == nil {
		return nil
	}
	return conv
}

// Release panics on a converter that did not come from this pool.
func (a *poolAdapter) Release(c CLIConverter) {
	conv, ok := c.(*invoice2pdf.Converter)
	if !ok {
		panic(fmt.Sprintf("poolAdapter.Release: unexpected type %T", c))
	}
	a.pool.Release(conv)
}

func (a *poolAdapter) Size() int        { return a.pool.Size() }
func (a *poolAdapter) InitError() error { return a.pool.InitError() }
func (a *poolAdapter) Close() error     { return a.pool.Close() }
