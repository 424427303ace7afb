// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/streamrx/internal/daemon"
	rxlog "github.com/ManuGH/streamrx/internal/log"
	"github.com/ManuGH/streamrx/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		case "status":
			os.Exit(runStatusCLI(os.Args[2:]))
		}
	}

	// Handle command-line flags
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Create a context that listens for the interrupt signal from the OS
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	effectiveConfigPath := *configPath
	if effectiveConfigPath == "" {
		effectiveConfigPath = resolveDefaultConfigPath()
	}

	rt, err := daemon.Bootstrap(ctx, daemon.Options{
		Version:    version.Version,
		ConfigPath: effectiveConfigPath,
	})
	logger := rxlog.WithComponent("daemon")
	if err != nil {
		if errors.Is(err, daemon.ErrNoBackend) {
			logger.Fatal().
				Err(err).
				Str("event", "startup.no_backend").
				Msg("no display backend available; set sim.enabled or STREAMRX_SIM_ENABLED=true")
		}
		logger.Fatal().
			Err(err).
			Str("event", "startup.failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to bootstrap receiver")
	}

	// Start daemon app (blocks until shutdown)
	if err := rt.App().Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "app.failed").
			Msg("daemon app failed")
	}

	logger.Info().Msg("receiver exiting")
}
