// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/streamrx/internal/config"
	"github.com/ManuGH/streamrx/internal/validate"
	"gopkg.in/yaml.v3"
)

func runConfigCLI(args []string) int {
	return configCLI(args, os.Stdout, os.Stderr)
}

const configUsage = `Usage:
  streamrx config validate [--file|-f config.yaml]
  streamrx config dump --effective [--file|-f config.yaml] [--format=yaml|json]
`

func configCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, configUsage)
		return 0
	}
	switch args[0] {
	case "-h", "--help", "help":
		fmt.Fprint(stderr, configUsage)
		return 0
	case "validate":
		return configValidate(args[1:], stdout, stderr)
	case "dump":
		return configDump(args[1:], stdout, stderr)
	}
	fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n%s", args[0], configUsage)
	return 2
}

// resolveDefaultConfigPath picks ${STREAMRX_DATA}/config.yaml when it exists.
func resolveDefaultConfigPath() string {
	dir := strings.TrimSpace(os.Getenv(config.EnvPrefix + "DATA"))
	if dir == "" {
		return ""
	}
	p := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// fileFlag registers --file and -f on fs and returns a resolver that falls
// back to the data directory default.
func fileFlag(fs *flag.FlagSet) func() string {
	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "shorthand for --file")
	return func() string {
		if p := strings.TrimSpace(file); p != "" {
			return p
		}
		return resolveDefaultConfigPath()
	}
}

func printLoadError(w io.Writer, path string, err error) {
	fmt.Fprintf(w, "Configuration error in %s:\n", path)
	if report, ok := validate.AsReport(err); ok {
		for _, fe := range report {
			fmt.Fprintf(w, "  %s\n", fe.Error())
		}
		return
	}
	fmt.Fprintf(w, "  %v\n", err)
}

func configValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("streamrx config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fileFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	p := path()
	if p == "" {
		fmt.Fprintln(stderr, "Error: --file is required (no config.yaml found in $STREAMRX_DATA)")
		return 2
	}
	if _, err := config.NewLoader(p).Load(); err != nil {
		printLoadError(stderr, p, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s is valid\n", p)
	return 0
}

var dumpEncoders = map[string]func(io.Writer, any) error{
	"yaml": encodeYAML,
	"yml":  encodeYAML,
	"json": func(w io.Writer, v any) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	},
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// configDump prints the effective configuration: defaults, then the file,
// then the environment.
func configDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("streamrx config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fileFlag(fs)
	format := fs.String("format", "yaml", "output format: yaml or json")
	effective := fs.Bool("effective", false, "dump the effective configuration")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !*effective {
		fmt.Fprintln(stderr, "Error: --effective is required")
		return 2
	}
	encode, ok := dumpEncoders[strings.ToLower(strings.TrimSpace(*format))]
	if !ok {
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", *format)
		return 2
	}

	p := path()
	cfg, err := config.NewLoader(p).Load()
	if err != nil {
		printLoadError(stderr, p, err)
		return 1
	}
	if err := encode(stdout, cfg); err != nil {
		fmt.Fprintf(stderr, "Failed to encode configuration: %v\n", err)
		return 1
	}
	return 0
}
