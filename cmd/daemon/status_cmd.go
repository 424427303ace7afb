// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ManuGH/streamrx/internal/orchestrator"
)

func runStatusCLI(args []string) int {
	return statusCLI(args, os.Stdout, os.Stderr)
}

// statusCLI prints the running receiver's session snapshot.
func statusCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", defaultDiagnosticsAddr, "diagnostics address of the running receiver")
	timeout := fs.Duration("timeout", 5*time.Second, "request timeout")
	raw := fs.Bool("json", false, "print the raw JSON snapshot")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	client := http.Client{Timeout: *timeout}
	resp, err := client.Get(fmt.Sprintf("http://%s/status", *addr))
	if err != nil {
		fmt.Fprintf(stderr, "Receiver not reachable: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "Status request failed: %s\n", resp.Status)
		return 1
	}

	var st orchestrator.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Fprintf(stderr, "Invalid status response: %v\n", err)
		return 1
	}

	if *raw {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(st)
		return 0
	}

	fmt.Fprintf(stdout, "session:    %s (generation %d)\n", orDash(st.SessionID), st.Generation)
	fmt.Fprintf(stdout, "state:      %s\n", st.State)
	if st.ErrorMessage != "" {
		fmt.Fprintf(stdout, "error:      %s\n", st.ErrorMessage)
	}
	if st.Codec != "" {
		fmt.Fprintf(stdout, "stream:     %s %s @ %dHz\n", st.Codec, st.Resolution, st.RefreshHz)
	}
	fmt.Fprintf(stdout, "sink ready: %t\n", st.SinkPrepared)
	fmt.Fprintf(stdout, "last frame: %d\n", st.LastFrame)
	return 0
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
