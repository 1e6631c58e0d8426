package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
	"github.com/alnah/go-invoice2pdf/internal/config"
	"github.com/alnah/go-invoice2pdf/internal/hints"
)

// defaultMode is used when neither --mode nor INVOICE2PDF_MODE is set.
const defaultMode = invoice2pdf.ModePDF

// maxStdinBytes caps a document read from standard input.
const maxStdinBytes = 64 << 20

// runConvertCmd parses flags, runs the conversion and returns an exit code.
func runConvertCmd(args []string, env *Environment) int {
	flags, positional, err := parseConvertFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	if err := runConvert(ctx, flags, positional, env); err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// runConvert orchestrates the conversion process.
// No positional arguments reads one document from stdin and writes the
// result to stdout; otherwise every discovered file is converted in a batch.
func runConvert(ctx context.Context, flags *convertFlags, positional []string, env *Environment) error {
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	envCfg := loadEnvConfig()
	cfg, err := loadSettings(flags.common.config, envCfg)
	if err != nil {
		return err
	}
	if err := applyRenderFlags(flags.render, cfg); err != nil {
		return err
	}
	if flags.inlineHTML {
		cfg.Fetch.InlineHTML = true
	}
	if flags.encodeOutput {
		cfg.Output.EncodePDF = true
	}
	if flags.output != "" {
		cfg.Output.Dir = flags.output
	}

	logger := newLogger(env.Stderr, resolveLogLevel(flags.common, cfg.Log.Level))
	warnUnknownEnvVars(logger)
	setMaxProcs(logger)

	mode, err := resolveMode(flags.mode, envCfg.Mode)
	if err != nil {
		return err
	}

	workers := flags.workers
	if workers == 0 {
		workers = cfg.Server.Workers
	}

	job := convertJob{
		mode:      mode,
		encoded:   flags.encoded,
		encodePDF: cfg.Output.EncodePDF,
	}

	if len(positional) == 0 {
		pool := env.NewPool(1, converterOptions(cfg, logger)...)
		defer pool.Close()
		return convertStream(ctx, pool, job, env.Stdin, env.Stdout)
	}

	files, err := discoverFiles(positional, cfg.Output.Dir, outputExtension(job))
	if err != nil {
		return err
	}

	size := min(invoice2pdf.ResolvePoolSize(workers), len(files))
	logger.Debug("starting batch", "files", len(files), "workers", size, "mode", mode)

	pool := env.NewPool(size, converterOptions(cfg, logger)...)
	defer pool.Close()

	results := convertBatch(withLogger(ctx, logger), pool, files, job)
	if failed := printResults(results, flags.common, env); failed > 0 {
		return fmt.Errorf("%d conversion(s) failed: %w", failed, firstError(results))
	}
	return nil
}

// resolveMode picks the conversion mode: flag > environment > default.
func resolveMode(flagMode, envMode string) (invoice2pdf.Mode, error) {
	switch {
	case flagMode != "":
		return invoice2pdf.ParseMode(flagMode)
	case envMode != "":
		return invoice2pdf.ParseMode(envMode)
	default:
		return defaultMode, nil
	}
}

// setMaxProcs configures GOMAXPROCS from the container CPU quota.
// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
// in which case Go runtime defaults apply and the program continues safely.
func setMaxProcs(logger *log.Logger) {
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.Debugf(format, args...)
	}))
}

// convertJob holds the per-document settings shared by a run.
type convertJob struct {
	mode      invoice2pdf.Mode
	encoded   bool
	encodePDF bool
}

// output selects the bytes to write for a result.
func (j convertJob) output(res *invoice2pdf.Result) []byte {
	if j.mode == invoice2pdf.ModeHTML {
		return res.HTML
	}
	if j.encodePDF {
		return []byte(res.EncodedPDF())
	}
	return res.PDF
}

// convertStream converts one document from r and writes the result to w.
func convertStream(ctx context.Context, pool Pool, job convertJob, r io.Reader, w io.Writer) error {
	data, err := io.ReadAll(io.LimitReader(r, maxStdinBytes+1))
	if err != nil {
		return fmt.Errorf("%w: stdin: %v", ErrReadInput, err)
	}
	if len(data) > maxStdinBytes {
		return fmt.Errorf("%w: stdin exceeds %d bytes", ErrReadInput, maxStdinBytes)
	}

	conv := pool.Acquire()
	if conv == nil {
		return initError(pool)
	}
	defer pool.Release(conv)

	res, err := conv.Convert(ctx, invoice2pdf.Input{Document: data, Mode: job.mode, Encoded: job.encoded})
	if err != nil {
		return err
	}
	if _, err := w.Write(job.output(res)); err != nil {
		return fmt.Errorf("%w: stdout: %v", ErrWriteOutput, err)
	}
	return nil
}

// initError reports why the pool could not build a converter.
func initError(pool Pool) error {
	if err := pool.InitError(); err != nil {
		return fmt.Errorf("%w: %w", ErrConverterInit, err)
	}
	return ErrConverterInit
}

// outputExtension returns the file extension for a job's output.
func outputExtension(job convertJob) string {
	switch {
	case job.mode == invoice2pdf.ModeHTML:
		return ".html"
	case job.encodePDF:
		return ".pdf.b64"
	default:
		return ".pdf"
	}
}

// hintFor returns an actionable hint for well-known failures.
func hintFor(err error) string {
	switch {
	case errors.Is(err, invoice2pdf.ErrRendererNotFound):
		return hints.ForRendererNotFound()
	case errors.Is(err, invoice2pdf.ErrTransformerNotFound):
		return hints.ForTransformerNotFound()
	case errors.Is(err, invoice2pdf.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, invoice2pdf.ErrRenderTimeout):
		return hints.ForRenderTimeout()
	case errors.Is(err, invoice2pdf.ErrStylesheetNotFound):
		return hints.ForStylesheetNotFound()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(searchedPaths(err))
	case errors.Is(err, ErrCreateOutputDir):
		return hints.ForOutputDirectory()
	default:
		return ""
	}
}

// searchedPaths extracts the candidate paths from a config-not-found error.
func searchedPaths(err error) []string {
	_, tried, ok := strings.Cut(err.Error(), "tried ")
	if !ok {
		return nil
	}
	return strings.Split(tried, ", ")
}
