// Package server exposes invoice conversion over HTTP.
//
// Routes:
//
//	GET  /healthz     liveness probe, answers "ok"
//	POST /v1/convert  body is the invoice; query: mode, encoded, encodeOutput
//
// Each request borrows a converter from a pool, so concurrent requests
// never share conversion state.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
)

// Defaults applied when Options fields are zero.
const (
	DefaultAddr         = ":8080"
	DefaultMaxBodyBytes = 32 << 20
	DefaultReadTimeout  = 30 * time.Second

	// RequestIDHeader carries the per-request identifier in both directions.
	RequestIDHeader = "X-Request-ID"

	shutdownGrace = 15 * time.Second
)

// Pool hands out converters. *invoice2pdf.ConverterPool satisfies it.
type Pool interface {
	Acquire() *invoice2pdf.Converter
	Release(*invoice2pdf.Converter)
	InitError() error
}

// Options configures the HTTP listener.
type Options struct {
	Addr         string
	MaxBodyBytes int64
	ReadTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	return o
}

// Server serves conversion requests backed by a converter pool.
type Server struct {
	pool   Pool
	opts   Options
	logger *log.Logger
}

// New creates a Server. A nil logger selects log.Default().
func New(pool Pool, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{pool: pool, opts: opts.withDefaults(), logger: logger}
}

// Router returns an http.Handler with registered routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/v1/convert", s.handleConvert)
	return r
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.opts.ReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode, err := invoice2pdf.ParseMode(q.Get("mode"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	encoded, err := queryBool(q.Get("encoded"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: encoded: %v", errBadQuery, err))
		return
	}
	encodeOutput, err := queryBool(q.Get("encodeOutput"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: encodeOutput: %v", errBadQuery, err))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conv := s.pool.Acquire()
	if conv == nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errUnavailable, s.pool.InitError()))
		return
	}
	defer s.pool.Release(conv)

	result, err := conv.Convert(r.Context(), invoice2pdf.Input{
		Document: body,
		Mode:     mode,
		Encoded:  encoded,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch {
	case mode == invoice2pdf.ModeHTML:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(result.HTML)
	case encodeOutput:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, result.EncodedPDF())
	default:
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Length", strconv.Itoa(len(result.PDF)))
		_, _ = w.Write(result.PDF)
	}
}

func queryBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

// errorBody is the JSON payload of every failed request.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	id := requestIDFrom(r.Context())

	if status >= http.StatusInternalServerError {
		s.logger.Error("conversion failed", "request_id", id, "status", status, "err", err)
	} else {
		s.logger.Warn("request rejected", "request_id", id, "status", status, "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: err.Error(), RequestID: id})
}
