// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

// Wiring errors returned by NewManager and App.Run.
var (
	ErrMissingLogger       = errors.New("daemon: logger is required")
	ErrMissingOrchestrator = errors.New("daemon: orchestrator is required")
	ErrMissingLoop         = errors.New("daemon: render loop is required")
	ErrMissingManager      = errors.New("daemon: manager is required")
)

// ErrManagerNotStarted is returned by Shutdown before Start.
var ErrManagerNotStarted = errors.New("daemon: manager not started")

// ErrNoBackend means no receiver backend is enabled. The simulated backend is
// the only one this build ships.
var ErrNoBackend = errors.New("daemon: no receiver backend configured (set sim.enabled)")
