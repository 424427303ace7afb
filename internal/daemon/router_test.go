// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/streamrx/internal/domain/session/model"
	"github.com/ManuGH/streamrx/internal/health"
	"github.com/ManuGH/streamrx/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.10:4242"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Status(t *testing.T) {
	deps := newTestDeps(t, testConfig())
	runLoop(t, deps.Loop)
	h := NewRouter(deps)

	rec := serve(h, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var st orchestrator.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.Active)
	assert.Equal(t, 60, st.RefreshHz)
}

func TestRouter_StatusAfterLoopStopped(t *testing.T) {
	deps := newTestDeps(t, testConfig())
	deps.Loop.Shutdown()
	deps.Loop.Drain()

	rec := serve(NewRouter(deps), http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "closed")
}

func TestRouter_HealthRoutes(t *testing.T) {
	deps := newTestDeps(t, testConfig())
	runLoop(t, deps.Loop)

	hm := health.NewManager("test")
	registerCheckers(hm, deps.Loop, deps.Orchestrator, nil)
	deps.Health = hm
	h := NewRouter(deps)

	rec := serve(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ready health.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.True(t, ready.Ready)
	assert.Contains(t, ready.Checks, "render_loop")
	assert.Contains(t, ready.Checks, "session")
}

func TestRouter_HealthRoutesAbsentWithoutManager(t *testing.T) {
	rec := serve(NewRouter(newTestDeps(t, testConfig())), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	rec := serve(NewRouter(newTestDeps(t, testConfig())), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Diagnostics.RateLimit = 2
	h := NewRouter(newTestDeps(t, cfg))

	for i := 0; i < 2; i++ {
		rec := serve(h, http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := serve(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")
}

func TestRouter_SimDebug(t *testing.T) {
	deps := newTestDeps(t, testConfig())
	h := NewRouter(deps)

	t.Run("no session", func(t *testing.T) {
		rec := serve(h, http.MethodPost, "/debug/sim/shutdown", "")
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = serve(h, http.MethodPost, "/debug/sim/error", `{"message":"boom"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("bad error body", func(t *testing.T) {
		rec := serve(h, http.MethodPost, "/debug/sim/error", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("confirm", func(t *testing.T) {
		rec := serve(h, http.MethodPost, "/debug/sim/confirm", "")
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.True(t, deps.Sim.Display.ConfirmPressed())
	})

	t.Run("display", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "/debug/sim/display", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Display struct {
				RefreshHz int `json:"refresh_hz"`
			} `json:"display"`
			DroppedFrames int `json:"dropped_frames"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Zero(t, body.DroppedFrames)
	})
}

func TestRouter_SimRoutesAbsentWithoutRig(t *testing.T) {
	deps := newTestDeps(t, testConfig())
	deps.Sim = nil

	rec := serve(NewRouter(deps), http.MethodPost, "/debug/sim/confirm", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_SimErrorReachesSession(t *testing.T) {
	deps := newTestDeps(t, testConfig())
	runLoop(t, deps.Loop)
	h := NewRouter(deps)

	require.NoError(t, deps.Orchestrator.ResumeSync(t.Context()))
	t.Cleanup(func() { _ = deps.Orchestrator.PauseSync(context.Background()) })

	// Connecting clears the receiver error, so inject after it.
	require.Eventually(t, func() bool {
		st, err := deps.Orchestrator.Snapshot(t.Context())
		return err == nil && st.State == model.StateConnected
	}, 2*time.Second, 10*time.Millisecond)

	rec := serve(h, http.MethodPost, "/debug/sim/error", `{"message":"stream lost"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		st, err := deps.Orchestrator.Snapshot(t.Context())
		return err == nil && st.ErrorMessage == "stream lost"
	}, 2*time.Second, 10*time.Millisecond)
}
