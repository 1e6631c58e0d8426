package invoice2pdf

import (
	"errors"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent renderers. Each one may hold a
	// wkhtmltopdf process or a Chrome instance.
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for renderer child processes.
	cpuDivisor = 2
)

// ConverterPool manages a pool of Converter instances for parallel processing.
// Converters are created lazily on first acquire to avoid startup delay.
type ConverterPool struct {
	size       int
	opts       []Option
	converters []*Converter
	sem        chan *Converter
	mu         sync.Mutex
	created    int
	freed      chan struct{} // closed and replaced when a creation fails
	closed     bool
	initErr    error
}

// NewConverterPool creates a pool with capacity for n Converter instances.
// Every converter is built with opts. Converters are created lazily when
// acquired, not at pool creation.
func NewConverterPool(n int, opts ...Option) *ConverterPool {
	if n < 1 {
		n = 1
	}

	return &ConverterPool{
		size:       n,
		opts:       opts,
		converters: make([]*Converter, 0, n),
		sem:        make(chan *Converter, n),
		freed:      make(chan struct{}),
	}
}

// Acquire gets a converter from the pool, creating one if needed.
// Blocks if all converters are in use. Returns nil if a converter could
// not be created; InitError reports why.
func (p *ConverterPool) Acquire() *Converter {
	for {
		// Try to get an existing converter (non-blocking)
		select {
		case conv := <-p.sem:
			return conv
		default:
		}

		// Check if we can create a new converter
		p.mu.Lock()
		if p.created < p.size {
			p.created++
			p.mu.Unlock()
			return p.create()
		}
		freed := p.freed
		p.mu.Unlock()

		// All slots taken: wait for a release, or for a failed creation
		// to give its slot back.
		select {
		case conv := <-p.sem:
			return conv
		case <-freed:
		}
	}
}

// create builds a converter for a slot already counted in created.
func (p *ConverterPool) create() *Converter {
	// Create new converter outside the lock
	conv, err := NewConverter(p.opts...)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.created--
		p.initErr = err
		close(p.freed)
		p.freed = make(chan struct{})
		return nil
	}
	p.converters = append(p.converters, conv)
	return conv
}

// Release returns a converter to the pool.
// The lock is released before sending to avoid deadlock when channel is full.
func (p *ConverterPool) Release(conv *Converter) {
	if conv == nil {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.sem <- conv
}

// InitError returns the last error from creating a converter, if any.
func (p *ConverterPool) InitError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initErr
}

// Close releases all renderer resources.
// Returns an aggregated error if multiple converters fail to close.
func (p *ConverterPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	converters := p.converters
	p.mu.Unlock()

	var errs []error
	for _, conv := range converters {
		if err := conv.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *ConverterPool) Size() int {
	return p.size
}

// ResolvePoolSize determines the optimal pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by servers and CLIs.
func ResolvePoolSize(workers int) int {
	// Explicit value takes priority
	if workers > 0 {
		return workers
	}

	// Auto-calculate based on GOMAXPROCS (adjusted by automaxprocs for containers)
	available := runtime.GOMAXPROCS(0)
	n := available / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
