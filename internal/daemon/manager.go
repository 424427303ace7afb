// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/streamrx/internal/log"
	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 15 * time.Second

// ShutdownHook releases one resource. Hooks run in reverse registration order.
type ShutdownHook func(ctx context.Context) error

// Manager owns the diagnostics listener and the shutdown hooks.
type Manager interface {
	// Start serves diagnostics and blocks until ctx ends or the server fails.
	Start(ctx context.Context) error
	// Shutdown stops the server and runs the hooks. Later calls are no-ops.
	Shutdown(ctx context.Context) error
	RegisterShutdownHook(name string, hook ShutdownHook)
}

type hookEntry struct {
	name string
	fn   ShutdownHook
}

type manager struct {
	deps            Deps
	logger          zerolog.Logger
	shutdownTimeout time.Duration

	mu         sync.Mutex
	started    bool
	stopping   bool
	hooks      []hookEntry
	diagServer *http.Server
	diagAddr   net.Addr
}

// NewManager validates deps. The shutdown budget grows with the configured
// worker stop timeout so the orchestrator hook can finish.
func NewManager(deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	budget := defaultShutdownTimeout
	if stop := deps.Config.Lifecycle.StopTimeout; 3*stop > budget {
		budget = 3 * stop
	}
	return &manager{
		deps:            deps,
		logger:          deps.Logger.With().Str(log.FieldComponent, "manager").Logger(),
		shutdownTimeout: budget,
	}, nil
}

// bounded detaches ctx from caller cancellation but caps it at the shutdown
// budget.
func (m *manager) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), m.shutdownTimeout)
}

func (m *manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("manager already started")
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("diagnostics", m.deps.Config.Diagnostics.ListenAddr).
		Dur("shutdown_timeout", m.shutdownTimeout).
		Msg("daemon manager starting")

	serveErr := make(chan error, 1)
	if err := m.listen(serveErr); err != nil {
		// Hooks registered so far still own resources.
		sctx, cancel := m.bounded(ctx)
		defer cancel()
		return errors.Join(fmt.Errorf("failed to start diagnostics server: %w", err), m.Shutdown(sctx))
	}

	var cause error
	select {
	case cause = <-serveErr:
		m.logger.Error().Err(cause).Str(log.FieldEvent, "diagnostics.failed").Msg("diagnostics server failed, shutting down")
	case <-ctx.Done():
		m.logger.Info().Str(log.FieldEvent, "daemon.signal").Msg("shutdown requested")
	}

	sctx, cancel := m.bounded(ctx)
	defer cancel()
	return errors.Join(cause, m.Shutdown(sctx))
}

// listen binds synchronously so an occupied port fails Start instead of
// surfacing later.
func (m *manager) listen(serveErr chan<- error) error {
	addr := m.deps.Config.Diagnostics.ListenAddr
	if addr == "" {
		m.logger.Info().Msg("diagnostics server disabled")
		return nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: NewRouter(m.deps), ReadHeaderTimeout: 5 * time.Second}

	m.mu.Lock()
	m.diagServer, m.diagAddr = srv, ln.Addr()
	m.mu.Unlock()

	m.logger.Info().Str(log.FieldServerAddr, ln.Addr().String()).Msg("diagnostics server listening")
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("diagnostics server: %w", err)
		}
	}()
	return nil
}

// Addr returns the bound diagnostics address, or nil before Start.
func (m *manager) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.diagAddr
}

func (m *manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.stopping:
		m.mu.Unlock()
		return nil
	case !m.started:
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	hooks := append([]hookEntry(nil), m.hooks...)
	srv := m.diagServer
	m.mu.Unlock()

	ctx, cancel := m.bounded(ctx)
	defer cancel()

	var errs []error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("diagnostics server shutdown: %w", err))
		}
	}
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		err := h.fn(ctx)
		ev := m.logger.Debug()
		if err != nil {
			ev = m.logger.Error().Err(err)
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		}
		ev.Str("hook", h.name).Dur("duration", time.Since(start)).Msg("shutdown hook finished")
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	m.logger.Info().Msg("daemon manager stopped")
	return nil
}

func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	m.hooks = append(m.hooks, hookEntry{name: name, fn: hook})
	m.mu.Unlock()
}
