// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/streamrx/internal/config"
	"github.com/ManuGH/streamrx/internal/log"
	"github.com/ManuGH/streamrx/internal/loop"
	"github.com/ManuGH/streamrx/internal/orchestrator"
	"github.com/ManuGH/streamrx/internal/sim"
	"github.com/rs/zerolog"
)

// App owns the long-lived runtime lifecycle (loop, session, reload wiring)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.ConfigHolder
	loop         *loop.Loop
	orch         *orchestrator.Orchestrator
	surface      SurfaceHost
	reloadSignal os.Signal
}

// SurfaceHost plays the platform window for the orchestrator.
type SurfaceHost interface {
	AttachSurface(sink sim.SurfaceSink)
	DetachSurface(sink sim.SurfaceSink)
}

// NewApp creates a new App.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.ConfigHolder, lp *loop.Loop, orch *orchestrator.Orchestrator) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		loop:         lp,
		orch:         orch,
		reloadSignal: syscall.SIGHUP,
	}
}

// PacingFromConfig maps the pacing section onto the orchestrator's runtime knobs.
func PacingFromConfig(cfg config.PacingConfig) orchestrator.Pacing {
	return orchestrator.Pacing{
		FastTick:           cfg.FastTick,
		IdleTick:           cfg.IdleTick,
		PlaceholderTick:    cfg.PlaceholderTick,
		SafetyMargin:       cfg.SafetyMargin,
		DefaultRefreshHz:   cfg.DefaultRefreshHz,
		DiscardStaleFrames: cfg.DiscardStaleFrames,
	}
}

// Run starts the loop, the session and all owned background subsystems, and
// blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.loop == nil {
		return ErrMissingLoop
	}
	if a.orch == nil {
		return ErrMissingOrchestrator
	}

	g, ctx := errgroup.WithContext(ctx)

	// The loop outlives ctx: Quit tears the session down as tasks, and those
	// must still run after the signal that cancelled ctx.
	loopCtx, cancelLoop := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelLoop()

	g.Go(func() error {
		if err := a.loop.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("render loop: %w", err)
		}
		return nil
	})

	// Registered last so it runs first: the session stops before the store
	// and the exporter it reports to are closed.
	a.manager.RegisterShutdownHook("orchestrator", func(hookCtx context.Context) error {
		return a.quit(hookCtx, cancelLoop)
	})

	if err := a.orch.Start(ctx); err != nil {
		return fmt.Errorf("start orchestrator: %w", err)
	}
	if a.surface != nil {
		a.surface.AttachSurface(a.orch)
	}
	if err := a.orch.Resume(ctx); err != nil {
		return fmt.Errorf("resume session: %w", err)
	}

	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("config watcher unavailable, reload only via signal")
		}
		updates := a.cfgHolder.Subscribe()
		g.Go(func() error { return a.applyReloads(ctx, updates) })
		if a.reloadSignal != nil {
			g.Go(func() error { return a.reloadOnSignal(ctx) })
		}
	}

	// Main server lifecycle.
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	err := g.Wait()
	if a.cfgHolder != nil {
		a.cfgHolder.Wait()
	}
	return err
}

// applyReloads pushes reloaded pacing into the running session. Pacing is
// the only section applied live; the rest takes effect on restart.
func (a *App) applyReloads(ctx context.Context, updates <-chan config.AppConfig) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case next := <-updates:
			if err := a.orch.ApplyPacing(PacingFromConfig(next.Pacing)); err != nil {
				a.logger.Warn().Err(err).Str(log.FieldEvent, "config.apply_failed").Msg("reloaded pacing not applied")
			}
		}
	}
}

func (a *App) reloadOnSignal(ctx context.Context) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, a.reloadSignal)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sig:
			a.logger.Info().Str(log.FieldEvent, "config.reload_signal").Str("signal", a.reloadSignal.String()).Msg("reloading configuration")
			_ = a.cfgHolder.Reload(ctx)
		}
	}
}

// quit tears the session down through the loop and waits for the loop to
// exit. On timeout the loop is cancelled so Run cannot hang.
func (a *App) quit(ctx context.Context, cancelLoop context.CancelFunc) error {
	if a.surface != nil {
		a.surface.DetachSurface(a.orch)
	}
	if err := a.orch.Quit(ctx); err != nil {
		if errors.Is(err, loop.ErrClosed) {
			return nil
		}
		cancelLoop()
		return fmt.Errorf("post quit: %w", err)
	}

	select {
	case <-a.loop.Done():
	case <-ctx.Done():
		cancelLoop()
		return fmt.Errorf("loop did not stop: %w", ctx.Err())
	}
	a.orch.Wait()
	a.logger.Info().Str(log.FieldEvent, "orchestrator.stopped").Msg("orchestrator stopped")
	return nil
}
