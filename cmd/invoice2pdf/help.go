package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: invoice2pdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Convert UBL invoices to HTML or PDF")
	fmt.Fprintln(w, "  serve      Run the HTTP conversion service")
	fmt.Fprintln(w, "  doctor     Check xsltproc, renderer and environment")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'invoice2pdf help <command>' for details on a specific command.")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: invoice2pdf convert [flags] [files or directories...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert invoices using the XSLT stylesheet they carry.")
	fmt.Fprintln(w, "Without arguments, reads one invoice from stdin and writes to stdout.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Conversion:")
	fmt.Fprintln(w, "  -m, --mode <s>            Output mode: html, pdf (default pdf)")
	fmt.Fprintln(w, "      --encoded             Input is base64 text")
	fmt.Fprintln(w, "      --encode-output       Write PDF as base64 text")
	fmt.Fprintln(w, "      --inline-html         Inline external resources in HTML mode too")
	fmt.Fprintln(w, "      --no-fetch            Never download external resources")
	fmt.Fprintln(w)
	printRenderUsage(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file or directory")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w)
	printOutputControlUsage(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: invoice2pdf serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve POST /v1/convert?mode=html|pdf&encoded=bool&encodeOutput=bool")
	fmt.Fprintln(w, "and GET /healthz.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "  -a, --addr <host:port>    Listen address (default :8080)")
	fmt.Fprintln(w, "  -w, --workers <n>         Concurrent conversions (0 = auto)")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --no-fetch            Never download external resources")
	fmt.Fprintln(w)
	printRenderUsage(w)
	printOutputControlUsage(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: invoice2pdf doctor [--json] [--show-config] [--backend <s>] [--config <name>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that xsltproc and the selected renderer are installed.")
	fmt.Fprintln(w, "--show-config prints the effective configuration as YAML instead.")
}

func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "      --backend <s>         PDF renderer: wkhtmltopdf, chrome")
	fmt.Fprintln(w, "  -t, --timeout <d>         Render ceiling (e.g., 10s, 1m)")
	fmt.Fprintln(w, "  -p, --page-size <s>       Page size: A3, A4, A5, Letter, Legal")
	fmt.Fprintln(w)
}

func printOutputControlUsage(w io.Writer) {
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs and timing")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: invoice2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: invoice2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
