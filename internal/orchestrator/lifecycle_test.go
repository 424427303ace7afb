// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/streamrx/internal/domain/session/model"
	"github.com/ManuGH/streamrx/internal/loop"
	"github.com/ManuGH/streamrx/internal/persistence/endpoint"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestResume_StartOrder(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.resume())

	want := []string{
		"launcher.Listen",
		"display.FlushPendingOutput",
		"decoder.Start",
		"display.DeviceInfo",
		"receiver.Start(7,72)",
		"receiver.SetSinkPrepared(false)",
		"display.Resume",
	}
	if diff := cmp.Diff(want, h.rec.snapshot()); diff != "" {
		t.Fatalf("start order mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, h.orch.active)
	assert.Equal(t, model.StateConnecting, h.orch.session.State)
	assert.Equal(t, uint64(1), h.orch.session.Generation)
	assert.Equal(t, "session-1", h.orch.session.ID)
}

func TestPause_DecoderStopsBeforeReceiver(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.resume())
	h.rec.reset()

	require.NoError(t, h.pause())

	want := []string{
		"launcher.Close",
		"receiver.SetSinkPrepared(false)",
		"decoder.StopAndWait",
		"receiver.StopAndWait",
		"display.Pause",
	}
	if diff := cmp.Diff(want, h.rec.snapshot()); diff != "" {
		t.Fatalf("stop order mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, h.orch.active)
	assert.Nil(t, h.orch.decoder)
	assert.Nil(t, h.orch.receiver)
	assert.Equal(t, model.StateDisconnected, h.orch.session.State)
}

func TestPause_ClearsSinkPreparedBeforeDecoderStops(t *testing.T) {
	h := newHarness(t)
	h.connect(params1080p)
	prepared, ok := h.receiver().lastSink()
	require.True(t, ok)
	require.True(t, prepared)
	h.rec.reset()

	require.NoError(t, h.pause())

	calls := h.rec.snapshot()
	require.GreaterOrEqual(t, len(calls), 3)
	assert.Equal(t, "receiver.SetSinkPrepared(false)", calls[1])
	assert.Equal(t, "decoder.StopAndWait", calls[2])
	assert.False(t, h.orch.displayState.DecoderPrepared)
}

func TestPause_WithUnclaimedFrameCompletes(t *testing.T) {
	h := newHarness(t)
	h.connect(params1080p)
	dec := h.decoder()
	dec.pending = []model.FrameIndex{4, 5}

	require.NoError(t, h.pause())

	assert.True(t, dec.stopped)
	assert.Len(t, dec.pending, 2, "stop must not consume pending frames")
	assert.Empty(t, h.disp.presented())

	// Late signal from the stopped decoder is ignored.
	h.rec.reset()
	dec.events.OnFrameAvailable()
	h.loop.Drain()
	assert.NotContains(t, h.rec.snapshot(), "decoder.NotifyFrameAvailable")
}

func TestPause_NotActive(t *testing.T) {
	h := newHarness(t)
	require.ErrorIs(t, h.pause(), ErrNotActive)
}

func TestResume_ReceiverStartFailure(t *testing.T) {
	h := newHarness(t)
	h.receiverSetup = func(r *fakeReceiver) { r.startErr = errors.New("permission denied") }

	err := h.resume()
	require.ErrorIs(t, err, ErrReceiverStart)
	require.ErrorContains(t, err, "permission denied")

	want := []string{
		"launcher.Listen",
		"display.FlushPendingOutput",
		"decoder.Start",
		"display.DeviceInfo",
		"receiver.Start(7,72)",
		"decoder.StopAndWait",
		"launcher.Close",
	}
	if diff := cmp.Diff(want, h.rec.snapshot()); diff != "" {
		t.Fatalf("failed start mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, h.orch.active)
	assert.Equal(t, model.StateDisconnected, h.orch.session.State)
	assert.Empty(t, h.loop.Outstanding())

	// The stray decoder never reaches the connected state.
	h.decoder().events.OnPrepared()
	h.loop.Drain()
	assert.False(t, h.orch.displayState.DecoderPrepared)
}

func TestResume_DecoderStartFailure(t *testing.T) {
	h := newHarness(t)
	h.decoderSetup = func(d *fakeDecoder) { d.startErr = errors.New("codec busy") }

	err := h.resume()
	require.ErrorIs(t, err, ErrDecoderStart)

	want := []string{
		"launcher.Listen",
		"display.FlushPendingOutput",
		"decoder.Start",
		"launcher.Close",
	}
	if diff := cmp.Diff(want, h.rec.snapshot()); diff != "" {
		t.Fatalf("failed start mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, h.orch.active)
}

func TestResume_LauncherListenFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.launcherSetup = func(l *fakeLauncher) { l.listenErr = errors.New("address in use") }

	require.NoError(t, h.resume())
	assert.True(t, h.orch.active)
	assert.Nil(t, h.orch.launcher)

	h.rec.reset()
	require.NoError(t, h.pause())
	assert.NotContains(t, h.rec.snapshot(), "launcher.Close")
}

func TestResume_WhileActiveRestartsWorkers(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.resume())
	first := h.decoder()
	h.rec.reset()

	require.NoError(t, h.resume())

	want := []string{
		"launcher.Close",
		"receiver.SetSinkPrepared(false)",
		"decoder.StopAndWait",
		"receiver.StopAndWait",
		"display.Pause",
		"launcher.Listen",
		"display.FlushPendingOutput",
		"decoder.Start",
		"display.DeviceInfo",
		"receiver.Start(7,72)",
		"receiver.SetSinkPrepared(false)",
		"display.Resume",
	}
	if diff := cmp.Diff(want, h.rec.snapshot()); diff != "" {
		t.Fatalf("restart mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, h.decoders, 2)
	assert.Equal(t, uint64(2), h.orch.session.Generation)
	assert.Equal(t, "session-2", h.orch.session.ID)

	// Callbacks of the first pair no longer reach the session.
	first.events.OnPrepared()
	h.loop.Drain()
	assert.False(t, h.orch.displayState.DecoderPrepared)
}

func TestResume_RecoversSavedEndpoint(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Save(context.Background(), endpoint.Endpoint{Address: "10.0.0.2", Port: 9943}))

	require.NoError(t, h.resume())

	calls := h.rec.snapshot()
	recovered := indexOf(calls, "receiver.ResumeFromSavedEndpoint(10.0.0.2:9943)")
	started := indexOf(calls, "receiver.Start(7,72)")
	require.NotEqual(t, -1, recovered)
	assert.Less(t, recovered, started)
}

func TestResume_IgnoresInvalidSavedEndpoint(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Save(context.Background(), endpoint.Endpoint{Address: "", Port: 0}))

	require.NoError(t, h.resume())
	for _, c := range h.rec.snapshot() {
		assert.False(t, strings.HasPrefix(c, "receiver.ResumeFromSavedEndpoint"), c)
	}
}

func TestStart_InitializesDisplayOnce(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.orch.Start(context.Background()))
	require.ErrorIs(t, h.orch.Start(context.Background()), ErrAlreadyActive)
	h.loop.Drain()

	assert.Equal(t, []string{"display.Initialize"}, h.rec.snapshot())
	assert.Equal(t, "streamrx test\nLoading...", h.disp.lastPlaceholder())
}

func TestStart_DisplayInitFailureSkipsPlaceholder(t *testing.T) {
	h := newHarness(t)
	h.disp.initErr = errors.New("no gpu")
	require.NoError(t, h.orch.Start(context.Background()))
	h.loop.Drain()
	assert.Zero(t, h.disp.placeholderCount())
}

func TestQuit_PausesDestroysAndShutsDown(t *testing.T) {
	h := newHarness(t)
	h.connect(params1080p)
	h.rec.reset()

	require.NoError(t, h.orch.Quit(context.Background()))
	h.loop.Drain()

	want := []string{
		"launcher.Close",
		"receiver.SetSinkPrepared(false)",
		"decoder.StopAndWait",
		"receiver.StopAndWait",
		"display.Pause",
		"display.Destroy",
	}
	if diff := cmp.Diff(want, h.rec.snapshot()); diff != "" {
		t.Fatalf("quit mismatch (-want +got):\n%s", diff)
	}

	select {
	case <-h.loop.Done():
	default:
		t.Fatal("loop not shut down")
	}
	assert.Empty(t, h.loop.Outstanding())
	require.ErrorIs(t, h.orch.Resume(context.Background()), loop.ErrClosed)
}

func TestSyncVariantsAndSnapshot(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newRunningHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- h.loop.Run(ctx) }()

	require.NoError(t, h.orch.ResumeSync(ctx))

	st, err := h.orch.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.Equal(t, "session-1", st.SessionID)
	assert.Equal(t, uint64(1), st.Generation)
	assert.Equal(t, model.StateConnecting, st.State)
	assert.Equal(t, 72, st.RefreshHz)
	assert.False(t, st.SinkPrepared)
	assert.Equal(t, model.NoFrame, st.LastFrame)

	require.NoError(t, h.orch.PauseSync(ctx))
	require.ErrorIs(t, h.orch.PauseSync(ctx), ErrNotActive)

	st, err = h.orch.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, st.Active)
	assert.Equal(t, model.StateDisconnected, st.State)

	require.NoError(t, h.orch.Quit(ctx))
	<-h.loop.Done()
	require.NoError(t, <-runErr)
	h.orch.Wait()
}

func indexOf(calls []string, want string) int {
	for i, c := range calls {
		if c == want {
			return i
		}
	}
	return -1
}
