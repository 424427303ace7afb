// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"github.com/ManuGH/streamrx/internal/config"
	"github.com/ManuGH/streamrx/internal/health"
	"github.com/ManuGH/streamrx/internal/loop"
	"github.com/ManuGH/streamrx/internal/orchestrator"
	"github.com/ManuGH/streamrx/internal/sim"
	"github.com/rs/zerolog"
)

// Deps contains dependencies required by the daemon Manager.
// This allows for clean dependency injection and easier testing.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// Config is the receiver configuration the daemon started with
	Config config.AppConfig

	// Loop is the serialized task loop owning all session state
	Loop *loop.Loop

	// Orchestrator is the receiver runtime
	Orchestrator *orchestrator.Orchestrator

	// Health aggregates the liveness and readiness checks (optional)
	Health *health.Manager

	// Sim exposes the simulated collaborators for debug routes (optional)
	Sim *sim.Rig
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.Loop == nil {
		return ErrMissingLoop
	}
	if d.Orchestrator == nil {
		return ErrMissingOrchestrator
	}
	return nil
}
