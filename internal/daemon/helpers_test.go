// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ManuGH/streamrx/internal/config"
	"github.com/ManuGH/streamrx/internal/log"
	"github.com/ManuGH/streamrx/internal/loop"
	"github.com/ManuGH/streamrx/internal/orchestrator"
	"github.com/ManuGH/streamrx/internal/sim"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testConfig() config.AppConfig {
	cfg := config.Default()
	cfg.Sim.Enabled = true
	cfg.Sim.ConnectDelay = 10 * time.Millisecond
	cfg.Launcher.ListenAddr = ""
	cfg.Diagnostics.ListenAddr = "127.0.0.1:0"
	cfg.Lifecycle.StopTimeout = time.Second
	return cfg
}

// newTestDeps wires a simulated orchestrator without starting anything.
func newTestDeps(t *testing.T, cfg config.AppConfig) Deps {
	t.Helper()
	lp := loop.New(loop.WithLogger(zerolog.Nop()))

	var orch *orchestrator.Orchestrator
	rig, err := sim.NewRig(cfg.Sim, simServerAddr, simServerPort, func(enter bool) {
		orch.OnPresentationModeChanged(enter)
	})
	require.NoError(t, err)

	orch = orchestrator.New(orchestrator.Config{
		Pacing:      PacingFromConfig(cfg.Pacing),
		StopTimeout: cfg.Lifecycle.StopTimeout,
	}, orchestrator.Deps{
		Loop:        lp,
		Display:     rig.Display,
		NewDecoder:  rig.NewDecoder,
		NewReceiver: rig.NewReceiver,
	})

	return Deps{
		Logger:       log.WithComponent("test"),
		Config:       cfg,
		Loop:         lp,
		Orchestrator: orch,
		Sim:          rig,
	}
}

// runLoop runs lp until the test ends.
func runLoop(t *testing.T, lp *loop.Loop) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lp.Run(ctx) }()

	t.Cleanup(func() {
		lp.Shutdown()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			cancel()
			<-done
		}
		cancel()
	})
}

func waitForAddr(m Manager, timeout time.Duration) (net.Addr, error) {
	mm := m.(*manager)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if addr := mm.Addr(); addr != nil {
			return addr, nil
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil, errors.New("listen timeout")
}
