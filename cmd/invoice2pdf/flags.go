package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// renderFlags holds renderer overrides shared by convert and serve.
type renderFlags struct {
	backend  string
	timeout  string
	pageSize string
	noFetch  bool
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common       commonFlags
	render       renderFlags
	mode         string
	encoded      bool
	encodeOutput bool
	inlineHTML   bool
	output       string
	workers      int
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common  commonFlags
	render  renderFlags
	addr    string
	workers int
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs and timing")
}

// addRenderFlags adds renderer flags to a FlagSet.
func addRenderFlags(fs *flag.FlagSet, f *renderFlags) {
	fs.StringVar(&f.backend, "backend", "", "PDF renderer: wkhtmltopdf, chrome")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "render ceiling (e.g., 10s, 1m)")
	fs.StringVarP(&f.pageSize, "page-size", "p", "", "page size: A3, A4, A5, Letter, Legal")
	fs.BoolVar(&f.noFetch, "no-fetch", false, "never download external resources")
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string, usage io.Writer) (*convertFlags, []string, error) {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(usage)
	f := &convertFlags{}

	fs.StringVarP(&f.mode, "mode", "m", "", "output mode: html, pdf (default pdf)")
	fs.BoolVar(&f.encoded, "encoded", false, "input is base64 text")
	fs.BoolVar(&f.encodeOutput, "encode-output", false, "write PDF as base64 text")
	fs.BoolVar(&f.inlineHTML, "inline-html", false, "inline external resources in HTML mode too")
	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")

	addCommonFlags(fs, &f.common)
	addRenderFlags(fs, &f.render)

	fs.Usage = func() { printConvertUsage(usage) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string, usage io.Writer) (*serveFlags, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(usage)
	f := &serveFlags{}

	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (default :8080)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent conversions (0 = auto)")

	addCommonFlags(fs, &f.common)
	addRenderFlags(fs, &f.render)

	fs.Usage = func() { printServeUsage(usage) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// doctorFlags holds flags for the doctor command.
type doctorFlags struct {
	config     string
	backend    string
	json       bool
	showConfig bool
}

// parseDoctorFlags parses doctor command flags.
func parseDoctorFlags(args []string, usage io.Writer) (*doctorFlags, error) {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(usage)
	f := &doctorFlags{}

	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVar(&f.backend, "backend", "", "renderer to check: wkhtmltopdf, chrome")
	fs.BoolVar(&f.json, "json", false, "output JSON")
	fs.BoolVar(&f.showConfig, "show-config", false, "print the effective configuration as YAML and exit")

	fs.Usage = func() { printDoctorUsage(usage) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}
