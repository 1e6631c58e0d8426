package main

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
	"github.com/alnah/go-invoice2pdf/internal/server"
)

// runServeCmd starts the HTTP service and blocks until a signal arrives.
func runServeCmd(args []string, env *Environment) int {
	flags, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	if err := runServe(ctx, flags, env); err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

func runServe(ctx context.Context, flags *serveFlags, env *Environment) error {
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	cfg, err := loadSettings(flags.common.config, loadEnvConfig())
	if err != nil {
		return err
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}
	if flags.workers > 0 {
		cfg.Server.Workers = flags.workers
	}
	if err := applyRenderFlags(flags.render, cfg); err != nil {
		return err
	}

	logger := newLogger(env.Stderr, resolveLogLevel(flags.common, cfg.Log.Level))
	warnUnknownEnvVars(logger)
	setMaxProcs(logger)

	size := invoice2pdf.ResolvePoolSize(cfg.Server.Workers)
	pool := invoice2pdf.NewConverterPool(size, converterOptions(cfg, logger)...)
	defer pool.Close()

	// Fail fast on an unusable configuration instead of on the first request.
	conv := pool.Acquire()
	if conv == nil {
		return fmt.Errorf("%w: %w", ErrConverterInit, pool.InitError())
	}
	pool.Release(conv)

	logger.Info("starting server", "workers", size, "backend", cfg.Render.Backend)
	srv := server.New(pool, server.Options{
		Addr:         cfg.Server.Addr,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
	}, logger)
	return srv.ListenAndServe(ctx)
}
