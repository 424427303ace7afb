// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package health answers liveness and readiness probes by fanning out to
// registered component checkers.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/streamrx/internal/log"
	"golang.org/x/sync/errgroup"
)

// Status grades a single component or the receiver as a whole.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// worse returns the more severe of a and b.
func worse(a, b Status) Status {
	rank := func(s Status) int {
		switch s {
		case StatusUnhealthy:
			return 2
		case StatusDegraded:
			return 1
		}
		return 0
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// CheckResult is what a Checker reports.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Report is the body of both /healthz and /readyz.
type Report struct {
	Status    Status                 `json:"status"`
	Ready     bool                   `json:"ready"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker probes one component.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager holds the registered checkers.
type Manager struct {
	version string

	mu       sync.RWMutex
	checkers []Checker
}

func NewManager(version string) *Manager {
	return &Manager{version: version}
}

func (m *Manager) RegisterChecker(c Checker) {
	m.mu.Lock()
	m.checkers = append(m.checkers, c)
	m.mu.Unlock()
}

// run executes every checker concurrently. A slow checker delays the report
// but never hides the others.
func (m *Manager) run(ctx context.Context) Report {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()

	rep := Report{Status: StatusHealthy, Version: m.version}
	if len(checkers) > 0 {
		results := make([]CheckResult, len(checkers))
		var g errgroup.Group
		for i, c := range checkers {
			g.Go(func() error {
				results[i] = c.Check(ctx)
				return nil
			})
		}
		_ = g.Wait()

		rep.Checks = make(map[string]CheckResult, len(checkers))
		for i, c := range checkers {
			rep.Checks[c.Name()] = results[i]
			rep.Status = worse(rep.Status, results[i].Status)
		}
	}
	rep.Ready = rep.Status != StatusUnhealthy
	rep.Timestamp = time.Now()
	return rep
}

// Health is the liveness view. It only consults checkers when verbose is set
// and never reports not-ready.
func (m *Manager) Health(ctx context.Context, verbose bool) Report {
	if !verbose {
		return Report{Status: StatusHealthy, Ready: true, Version: m.version, Timestamp: time.Now()}
	}
	rep := m.run(ctx)
	rep.Ready = true
	return rep
}

// Ready is the readiness view. Degraded components keep the receiver ready.
func (m *Manager) Ready(ctx context.Context) Report {
	return m.run(ctx)
}

// ServeHealth always answers 200 so orchestrators do not restart a receiver
// that is merely degraded.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	writeReport(r, w, "health", http.StatusOK, m.Health(r.Context(), verbose))
}

// ServeReady answers 503 while any component is unhealthy.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	rep := m.Ready(r.Context())
	code := http.StatusOK
	if !rep.Ready {
		code = http.StatusServiceUnavailable
	}
	writeReport(r, w, "readiness", code, rep)
}

func writeReport(r *http.Request, w http.ResponseWriter, probe string, code int, rep Report) {
	logger := log.WithComponentFromContext(r.Context(), probe)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, probe+".encode_error").Msg("failed to encode probe response")
		return
	}
	logger.Debug().
		Str(log.FieldEvent, probe+".checked").
		Str("status", string(rep.Status)).
		Bool("ready", rep.Ready).
		Msg("probe served")
}
