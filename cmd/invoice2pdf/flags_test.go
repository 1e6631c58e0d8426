package main

import (
	"errors"
	"io"
	"testing"

	flag "github.com/spf13/pflag"
)

func TestParseConvertFlags(t *testing.T) {
	t.Parallel()

	f, args, err := parseConvertFlags([]string{
		"-m", "html", "--encoded", "--encode-output", "--inline-html",
		"-o", "out", "-w", "3", "-c", "work", "-q",
		"--backend", "chrome", "-t", "20s", "-p", "Letter", "--no-fetch",
		"a.xml", "dir",
	}, io.Discard)
	if err != nil {
		t.Fatalf("parseConvertFlags() error = %v", err)
	}

	if f.mode != "html" || !f.encoded || !f.encodeOutput || !f.inlineHTML {
		t.Errorf("mode flags = %+v", f)
	}
	if f.output != "out" || f.workers != 3 {
		t.Errorf("output = %q, workers = %d", f.output, f.workers)
	}
	if f.common.config != "work" || !f.common.quiet || f.common.verbose {
		t.Errorf("common = %+v", f.common)
	}
	want := renderFlags{backend: "chrome", timeout: "20s", pageSize: "Letter", noFetch: true}
	if f.render != want {
		t.Errorf("render = %+v, want %+v", f.render, want)
	}
	if len(args) != 2 || args[0] != "a.xml" || args[1] != "dir" {
		t.Errorf("args = %v, want [a.xml dir]", args)
	}
}

func TestParseServeFlags(t *testing.T) {
	t.Parallel()

	f, err := parseServeFlags([]string{"--addr", ":9000", "-w", "4", "-v", "--page-size", "A5"}, io.Discard)
	if err != nil {
		t.Fatalf("parseServeFlags() error = %v", err)
	}
	if f.addr != ":9000" || f.workers != 4 || !f.common.verbose || f.render.pageSize != "A5" {
		t.Errorf("serve flags = %+v", f)
	}
}

func TestParseDoctorFlags(t *testing.T) {
	t.Parallel()

	f, err := parseDoctorFlags([]string{"--json", "--backend", "chrome"}, io.Discard)
	if err != nil {
		t.Fatalf("parseDoctorFlags() error = %v", err)
	}
	if !f.json || f.backend != "chrome" {
		t.Errorf("doctor flags = %+v", f)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	t.Parallel()

	if _, _, err := parseConvertFlags([]string{"--nope"}, io.Discard); err == nil {
		t.Error("convert: unknown flag accepted")
	}
	if _, _, err := parseConvertFlags([]string{"-w", "lots"}, io.Discard); err == nil {
		t.Error("convert: non-numeric workers accepted")
	}
	if _, err := parseServeFlags([]string{"--help"}, io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("serve --help error = %v, want flag.ErrHelp", err)
	}
	if _, err := parseDoctorFlags([]string{"extra", "--bogus"}, io.Discard); err == nil {
		t.Error("doctor: unknown flag accepted")
	}
}
