// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/ManuGH/streamrx/internal/health"
)

const defaultDiagnosticsAddr = "127.0.0.1:9945"

var probePaths = map[string]string{
	"ready": "/readyz",
	"live":  "/healthz",
}

func runHealthcheckCLI(args []string) int {
	return healthcheckCLI(args, os.Stdout, os.Stderr)
}

// healthcheckCLI probes a running receiver and exits non-zero unless the
// probe answers 200. It is meant for container HEALTHCHECK lines.
func healthcheckCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("healthcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mode := fs.String("mode", "ready", "probe to run: ready or live")
	addr := fs.String("addr", defaultDiagnosticsAddr, "diagnostics address of the running receiver")
	timeout := fs.Duration("timeout", 5*time.Second, "probe timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	path, ok := probePaths[*mode]
	if !ok {
		fmt.Fprintf(stderr, "unknown mode %q (want ready or live)\n", *mode)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+*addr+path, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Healthcheck failed: %v\n", err)
		return 1
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(stderr, "Healthcheck failed (network): %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	// The body is informational; older receivers may not send one.
	var rep health.Report
	_ = json.NewDecoder(resp.Body).Decode(&rep)

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "Healthcheck failed (status): %s\n", resp.Status)
		printFailingChecks(stderr, rep)
		return 1
	}
	fmt.Fprintf(stdout, "Healthcheck successful (%s)\n", *mode)
	return 0
}

func printFailingChecks(w io.Writer, rep health.Report) {
	names := make([]string, 0, len(rep.Checks))
	for name, res := range rep.Checks {
		if res.Status != health.StatusHealthy {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		res := rep.Checks[name]
		fmt.Fprintf(w, "  %s: %s %s\n", name, res.Status, res.Error)
	}
}
