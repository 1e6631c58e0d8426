package main

import (
	"fmt"
	"os"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	os.Exit(runMain(os.Args, DefaultEnv()))
}

// runMain dispatches to a subcommand and returns the exit code.
// Anything that is not a command name is treated as convert arguments,
// so "invoice2pdf invoice.xml" works.
func runMain(args []string, env *Environment) int {
	if len(args) < 2 {
		return runConvertCmd(nil, env)
	}

	cmd, rest := args[1], args[2:]
	switch cmd {
	case "convert":
		return runConvertCmd(rest, env)
	case "serve":
		return runServeCmd(rest, env)
	case "doctor":
		return runDoctorCmd(rest, env)
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "go-invoice2pdf %s\n", Version)
		return ExitSuccess
	case "help", "-h", "--help":
		return runHelp(rest, env)
	default:
		return runConvertCmd(args[1:], env)
	}
}
