// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/streamrx/internal/config"
	"github.com/ManuGH/streamrx/internal/domain/session/model"
	"github.com/ManuGH/streamrx/internal/orchestrator"
	"github.com/ManuGH/streamrx/internal/persistence/endpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_RunRequiresCollaborators(t *testing.T) {
	deps := newTestDeps(t, testConfig())
	m, err := NewManager(deps)
	require.NoError(t, err)

	tests := []struct {
		name string
		app  *App
		want error
	}{
		{"manager", NewApp(deps.Logger, nil, nil, deps.Loop, deps.Orchestrator), ErrMissingManager},
		{"loop", NewApp(deps.Logger, m, nil, nil, deps.Orchestrator), ErrMissingLoop},
		{"orchestrator", NewApp(deps.Logger, m, nil, deps.Loop, nil), ErrMissingOrchestrator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.app.Run(context.Background()), tt.want)
		})
	}
}

func TestApp_RunStreamsUntilCancelled(t *testing.T) {
	setSimEnv(t)
	endpointPath := filepath.Join(t.TempDir(), "endpoint.yaml")
	t.Setenv(config.EnvPrefix+"STORE_BACKEND", config.StoreFile)
	t.Setenv(config.EnvPrefix+"STORE_PATH", endpointPath)

	rt, err := Bootstrap(context.Background(), testOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- rt.App().Run(ctx) }()

	addr, err := waitForAddr(rt.Manager, 2*time.Second)
	require.NoError(t, err)

	client := &http.Client{
		Timeout:   time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	status := func() (orchestrator.Status, bool) {
		resp, err := client.Get("http://" + addr.String() + "/status")
		if err != nil {
			return orchestrator.Status{}, false
		}
		defer resp.Body.Close()
		var st orchestrator.Status
		if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&st) != nil {
			return orchestrator.Status{}, false
		}
		return st, true
	}

	require.Eventually(t, func() bool {
		st, ok := status()
		return ok && st.Active && st.State == model.StateConnected && st.LastFrame > 0
	}, 5*time.Second, 20*time.Millisecond, "session never started presenting frames")

	st, _ := status()
	assert.Equal(t, "h264", st.Codec)
	assert.Equal(t, "1920x1080", st.Resolution)
	assert.Equal(t, 72, st.RefreshHz)
	assert.True(t, st.SinkPrepared)
	assert.Equal(t, uint64(1), rt.Rig.Display.Stats().Surface)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}

	select {
	case <-rt.Loop.Done():
	default:
		t.Fatal("loop still running after shutdown")
	}
	assert.False(t, rt.Rig.Display.Stats().Presenting)
	assert.Zero(t, rt.Rig.Display.Stats().Surface)

	// The network worker reported its server while stopping.
	ep, ok, err := endpoint.NewFileStore(endpointPath).Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, simServerAddr, ep.Address)
	assert.Equal(t, simServerPort, ep.Port)
}
