// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/ManuGH/streamrx/internal/config"
	"github.com/ManuGH/streamrx/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment before the receiver starts.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkStoreDir(logger, cfg.Store); err != nil {
		return fmt.Errorf("store directory check failed: %w", err)
	}
	for _, addr := range []string{cfg.Launcher.ListenAddr, cfg.Diagnostics.ListenAddr} {
		if err := checkBindable(ctx, logger, addr); err != nil {
			return fmt.Errorf("listen address check failed: %w", err)
		}
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkStoreDir(logger zerolog.Logger, store config.StoreConfig) error {
	switch store.Backend {
	case config.StoreFile, config.StoreSQLite, config.StoreBadger:
	default:
		return nil
	}
	if store.Path == "" {
		logger.Warn().Str("backend", store.Backend).Msg("store path not set; endpoint will not survive restarts")
		return nil
	}

	dir := store.Path
	if store.Backend != config.StoreBadger {
		dir = filepath.Dir(store.Path)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	testFile := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %w)", dir, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", dir).Msg("store directory is writable")
	return nil
}

func checkBindable(ctx context.Context, logger zerolog.Logger, addr string) error {
	if addr == "" {
		return nil
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return fmt.Errorf("cannot bind %s: %w", addr, opErr.Err)
		}
		return err
	}
	_ = ln.Close()
	logger.Info().Str("addr", addr).Msg("listen address is available")
	return nil
}
