// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon provides the core daemon bootstrapping and lifecycle management.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ManuGH/streamrx/internal/config"
	"github.com/ManuGH/streamrx/internal/health"
	"github.com/ManuGH/streamrx/internal/launcher"
	"github.com/ManuGH/streamrx/internal/log"
	"github.com/ManuGH/streamrx/internal/loop"
	"github.com/ManuGH/streamrx/internal/orchestrator"
	"github.com/ManuGH/streamrx/internal/persistence/endpoint"
	"github.com/ManuGH/streamrx/internal/sim"
	"github.com/ManuGH/streamrx/internal/telemetry"
	"github.com/rs/zerolog"
)

// Address the simulated server reports when it shuts down.
const (
	simServerAddr = "127.0.0.1"
	simServerPort = 9943
)

const heartbeatBound = time.Second

// Options are the process-level inputs to Bootstrap.
type Options struct {
	// Version is the build version
	Version string

	// ConfigPath is the path to the YAML config file (optional)
	ConfigPath string

	// LogOutput receives the structured log (defaults to stdout)
	LogOutput io.Writer

	// SkipStartupChecks disables the pre-flight checks, for tests binding :0
	SkipStartupChecks bool
}

// Runtime is a fully wired receiver, ready to Run.
type Runtime struct {
	Logger       zerolog.Logger
	Holder       *config.ConfigHolder
	Loop         *loop.Loop
	Orchestrator *orchestrator.Orchestrator
	Manager      Manager
	Rig          *sim.Rig
	Health       *health.Manager
}

// Bootstrap loads configuration and wires every component. Resources opened
// here are released by manager shutdown hooks.
func Bootstrap(ctx context.Context, opts Options) (rt *Runtime, err error) {
	// Configure logger with safe defaults until config is loaded
	log.Configure(log.Config{
		Level:   "info",
		Output:  opts.LogOutput,
		Version: opts.Version,
	})

	loader := config.NewLoader(opts.ConfigPath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  opts.LogOutput,
		Service: cfg.LogService,
		Version: opts.Version,
	})
	logger := log.WithComponent("daemon")

	if !cfg.Sim.Enabled {
		return nil, ErrNoBackend
	}

	if !opts.SkipStartupChecks {
		if err := health.PerformStartupChecks(ctx, cfg); err != nil {
			return nil, err
		}
	}

	// Everything opened below is closed again if a later step fails.
	var cleanups []func(context.Context) error
	defer func() {
		if err == nil {
			return
		}
		for i := len(cleanups) - 1; i >= 0; i-- {
			err = errors.Join(err, cleanups[i](context.WithoutCancel(ctx)))
		}
	}()

	tp, terr := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: opts.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if terr != nil {
		logger.Warn().Err(terr).Msg("Telemetry initialization failed, continuing without tracing")
	} else {
		cleanups = append(cleanups, tp.Shutdown)
	}

	store, err := endpoint.NewStore(ctx, endpoint.Options{
		Backend:   cfg.Store.Backend,
		Path:      cfg.Store.Path,
		RedisAddr: cfg.Store.RedisAddr,
		RedisKey:  cfg.Store.RedisKey,
	}, log.WithComponent("endpoint-store"))
	if err != nil {
		return nil, err
	}
	cleanups = append(cleanups, func(context.Context) error { return store.Close() })

	lp := loop.New(loop.WithLogger(log.WithComponent("loop")))

	// The presentation callback needs the orchestrator, which needs the rig.
	var orch *orchestrator.Orchestrator
	rig, err := sim.NewRig(cfg.Sim, simServerAddr, simServerPort, func(enter bool) {
		orch.OnPresentationModeChanged(enter)
	})
	if err != nil {
		return nil, fmt.Errorf("build simulator: %w", err)
	}

	var newLauncher orchestrator.LauncherFactory
	if cfg.Launcher.ListenAddr != "" {
		lc := launcher.Config{
			ListenAddr:       cfg.Launcher.ListenAddr,
			CommandTimeout:   cfg.Launcher.CommandTimeout,
			BreakerThreshold: cfg.Launcher.BreakerThreshold,
			BreakerReset:     cfg.Launcher.BreakerReset,
		}
		newLauncher = func(onConnect func()) orchestrator.Launcher {
			return launcher.New(lc, onConnect)
		}
	}

	orch = orchestrator.New(orchestrator.Config{
		Pacing:       PacingFromConfig(cfg.Pacing),
		StopTimeout:  cfg.Lifecycle.StopTimeout,
		VersionLabel: cfg.VersionLabel,
	}, orchestrator.Deps{
		Loop:        lp,
		Display:     rig.Display,
		NewDecoder:  rig.NewDecoder,
		NewReceiver: rig.NewReceiver,
		NewLauncher: newLauncher,
		Store:       store,
	})

	hm := health.NewManager(opts.Version)
	registerCheckers(hm, lp, orch, store)

	mgr, err := NewManager(Deps{
		Logger:       logger,
		Config:       cfg,
		Loop:         lp,
		Orchestrator: orch,
		Health:       hm,
		Sim:          rig,
	})
	if err != nil {
		return nil, err
	}
	// Shutdown hooks run LIFO: the exporter flushes after the store closes.
	if tp.Enabled() {
		mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	}
	mgr.RegisterShutdownHook("endpoint_store", func(context.Context) error { return store.Close() })

	logger.Info().
		Str("version", opts.Version).
		Str("config", loader.Path()).
		Str("store", cfg.Store.Backend).
		Str("launcher", cfg.Launcher.ListenAddr).
		Str("diagnostics", cfg.Diagnostics.ListenAddr).
		Msg("receiver bootstrapped")

	return &Runtime{
		Logger:       logger,
		Holder:       config.NewConfigHolder(cfg, loader),
		Loop:         lp,
		Orchestrator: orch,
		Manager:      mgr,
		Rig:          rig,
		Health:       hm,
	}, nil
}

// App returns the lifecycle owner for this runtime.
func (rt *Runtime) App() *App {
	app := NewApp(rt.Logger, rt.Manager, rt.Holder, rt.Loop, rt.Orchestrator)
	if rt.Rig != nil {
		app.surface = rt.Rig
	}
	return app
}

func registerCheckers(hm *health.Manager, lp *loop.Loop, orch *orchestrator.Orchestrator, store endpoint.Store) {
	hm.RegisterChecker(health.NewLoopChecker(func(ctx context.Context) error {
		return lp.Call(ctx, "health.heartbeat", func() {})
	}, heartbeatBound))

	hm.RegisterChecker(health.NewSessionChecker(func(ctx context.Context) (health.SessionView, error) {
		st, err := orch.Snapshot(ctx)
		if err != nil {
			return health.SessionView{}, err
		}
		return health.SessionView{State: string(st.State), ErrorMessage: st.ErrorMessage}, nil
	}))

	if v, ok := store.(endpoint.Verifier); ok {
		hm.RegisterChecker(health.NewFuncChecker("endpoint_store", v.Verify))
	}
}
