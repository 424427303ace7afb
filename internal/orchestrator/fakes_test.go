// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/streamrx/internal/domain/session/model"
	"github.com/ManuGH/streamrx/internal/loop"
	"github.com/ManuGH/streamrx/internal/persistence/endpoint"
	"github.com/ManuGH/streamrx/internal/testutil"
)

// recorder collects collaborator calls in the order they happen.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

type fakeDisplay struct {
	rec *recorder

	mu           sync.Mutex
	presentation bool
	confirm      bool
	device       DeviceInfo
	initErr      error
	placeholders []string
	frames       []model.FrameIndex
	tracking     []Tracking
	haptics      []Haptics
}

func (d *fakeDisplay) Initialize(context.Context) error {
	d.rec.add("display.Initialize")
	return d.initErr
}
func (d *fakeDisplay) Destroy() { d.rec.add("display.Destroy") }
func (d *fakeDisplay) Resume()  { d.rec.add("display.Resume") }
func (d *fakeDisplay) Pause()   { d.rec.add("display.Pause") }

func (d *fakeDisplay) DeviceInfo() DeviceInfo {
	d.rec.add("display.DeviceInfo")
	return d.device
}
func (d *fakeDisplay) GraphicsContext() Handle { return 7 }
func (d *fakeDisplay) Surface() Handle         { return 9 }
func (d *fakeDisplay) FlushPendingOutput()     { d.rec.add("display.FlushPendingOutput") }

func (d *fakeDisplay) ApplyRefreshRate(hz int) { d.rec.add("display.ApplyRefreshRate(%d)", hz) }
func (d *fakeDisplay) ApplyFrameGeometry(w, h int) {
	d.rec.add("display.ApplyFrameGeometry(%dx%d)", w, h)
}
func (d *fakeDisplay) ChangeSettings(suspend bool, q int) {
	d.rec.add("display.ChangeSettings(%t,%d)", suspend, q)
}

func (d *fakeDisplay) RenderFrame(idx model.FrameIndex) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = append(d.frames, idx)
	d.rec.add("display.RenderFrame(%d)", idx)
}

func (d *fakeDisplay) RenderPlaceholder(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.placeholders = append(d.placeholders, text)
}

func (d *fakeDisplay) IsPresentationModeActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presentation
}

func (d *fakeDisplay) setPresentation(active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presentation = active
}

func (d *fakeDisplay) ConfirmPressed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	pressed := d.confirm
	d.confirm = false
	return pressed
}

func (d *fakeDisplay) ForwardTracking(t Tracking) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tracking = append(d.tracking, t)
}

func (d *fakeDisplay) ForwardHaptics(h Haptics) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.haptics = append(d.haptics, h)
}

func (d *fakeDisplay) SurfaceCreated(s Handle) { d.rec.add("display.SurfaceCreated(%d)", s) }
func (d *fakeDisplay) SurfaceChanged(s Handle, w, h int) {
	d.rec.add("display.SurfaceChanged(%d,%dx%d)", s, w, h)
}
func (d *fakeDisplay) SurfaceDestroyed() { d.rec.add("display.SurfaceDestroyed") }

func (d *fakeDisplay) lastPlaceholder() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.placeholders) == 0 {
		return ""
	}
	return d.placeholders[len(d.placeholders)-1]
}

func (d *fakeDisplay) placeholderCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.placeholders)
}

func (d *fakeDisplay) presented() []model.FrameIndex {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.FrameIndex(nil), d.frames...)
}

type fakeDecoder struct {
	rec    *recorder
	events DecoderEvents

	startErr error
	// pending are handed out by ClaimLatestFrame in order.
	pending  []model.FrameIndex
	discard  bool
	released int
	stopped  bool
}

func (d *fakeDecoder) Start(context.Context) error {
	d.rec.add("decoder.Start")
	return d.startErr
}

func (d *fakeDecoder) StopAndWait(context.Context) error {
	d.rec.add("decoder.StopAndWait")
	d.stopped = true
	return nil
}

func (d *fakeDecoder) NotifyConnect(c model.Codec, q int) {
	d.rec.add("decoder.NotifyConnect(%s,%d)", c, q)
}
func (d *fakeDecoder) NotifyDisconnect()     { d.rec.add("decoder.NotifyDisconnect") }
func (d *fakeDecoder) NotifyFrameAvailable() { d.rec.add("decoder.NotifyFrameAvailable") }

func (d *fakeDecoder) ClaimLatestFrame(Handle) model.FrameIndex {
	if len(d.pending) == 0 {
		return model.NoFrame
	}
	idx := d.pending[0]
	d.pending = d.pending[1:]
	return idx
}

func (d *fakeDecoder) ReleaseBuffer() { d.released++ }

func (d *fakeDecoder) DiscardStaleFrames(Handle) bool {
	d.rec.add("decoder.DiscardStaleFrames")
	return d.discard
}

type fakeReceiver struct {
	rec    *recorder
	events ReceiverEvents

	mu        sync.Mutex
	startErr  error
	connected bool
	errMsg    string
	sink      []bool
	savedAddr string
	savedPort int

	// reportOnStop makes StopAndWait report the server endpoint while
	// connected, the way the network worker does on exit.
	reportOnStop bool
	serverAddr   string
	serverPort   int
}

func (r *fakeReceiver) Start(_ context.Context, g Handle, dev DeviceInfo, _ Decoder) error {
	r.rec.add("receiver.Start(%d,%d)", g, dev.PreferredRefreshHz())
	return r.startErr
}

func (r *fakeReceiver) StopAndWait(context.Context) error {
	r.rec.add("receiver.StopAndWait")
	r.mu.Lock()
	report := r.reportOnStop && r.connected
	r.connected = false
	r.mu.Unlock()
	if report {
		r.events.OnShutdown(r.serverAddr, r.serverPort)
	}
	return nil
}

func (r *fakeReceiver) SetSinkPrepared(prepared bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = append(r.sink, prepared)
	r.rec.add("receiver.SetSinkPrepared(%t)", prepared)
}

func (r *fakeReceiver) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

func (r *fakeReceiver) setConnected(c bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = c
}

func (r *fakeReceiver) CurrentErrorMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errMsg
}

func (r *fakeReceiver) setError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errMsg = msg
}

func (r *fakeReceiver) ResumeFromSavedEndpoint(addr string, port int) {
	r.rec.add("receiver.ResumeFromSavedEndpoint(%s:%d)", addr, port)
	r.savedAddr, r.savedPort = addr, port
}

func (r *fakeReceiver) lastSink() (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sink) == 0 {
		return false, false
	}
	return r.sink[len(r.sink)-1], true
}

type fakeLauncher struct {
	rec       *recorder
	onConnect func()

	mu        sync.Mutex
	listenErr error
	connected bool
	commands  []string
}

func (l *fakeLauncher) Listen() error {
	l.rec.add("launcher.Listen")
	return l.listenErr
}

func (l *fakeLauncher) Close() error {
	l.rec.add("launcher.Close")
	return nil
}

func (l *fakeLauncher) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *fakeLauncher) SendCommand(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commands = append(l.commands, name)
	return nil
}

func (l *fakeLauncher) sent() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.commands...)
}

// harness drives an orchestrator on a manual clock. Tasks only run when the
// test calls Drain or step, on the test goroutine.
type harness struct {
	t     *testing.T
	rec   *recorder
	clock *testutil.ManualClock
	loop  *loop.Loop
	orch  *Orchestrator
	disp  *fakeDisplay
	store *endpoint.MemoryStore

	decoders  []*fakeDecoder
	receivers []*fakeReceiver
	launchers []*fakeLauncher

	// Applied to each worker as it is created.
	decoderSetup  func(*fakeDecoder)
	receiverSetup func(*fakeReceiver)
	launcherSetup func(*fakeLauncher)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithPacing(t, DefaultPacing())
}

func newHarnessWithPacing(t *testing.T, p Pacing) *harness {
	t.Helper()
	clock := testutil.NewManualClock(time.Time{})
	return buildHarness(t, p, clock, loop.New(loop.WithClock(clock)))
}

// newRunningHarness uses the wall clock; the caller runs the loop.
func newRunningHarness(t *testing.T) *harness {
	t.Helper()
	return buildHarness(t, DefaultPacing(), nil, loop.New())
}

func buildHarness(t *testing.T, p Pacing, clock *testutil.ManualClock, lp *loop.Loop) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		rec:   &recorder{},
		clock: clock,
		loop:  lp,
		store: endpoint.NewMemoryStore(),
	}
	h.disp = &fakeDisplay{rec: h.rec, device: DeviceInfo{Name: "test-hmd", RefreshRates: []int{72, 90}}}

	h.orch = New(Config{Pacing: p, StopTimeout: time.Second, VersionLabel: "streamrx test"}, Deps{
		Loop:    h.loop,
		Display: h.disp,
		NewDecoder: func(ev DecoderEvents) Decoder {
			d := &fakeDecoder{rec: h.rec, events: ev}
			if h.decoderSetup != nil {
				h.decoderSetup(d)
			}
			h.decoders = append(h.decoders, d)
			return d
		},
		NewReceiver: func(ev ReceiverEvents) Receiver {
			r := &fakeReceiver{rec: h.rec, events: ev}
			if h.receiverSetup != nil {
				h.receiverSetup(r)
			}
			h.receivers = append(h.receivers, r)
			return r
		},
		NewLauncher: func(onConnect func()) Launcher {
			l := &fakeLauncher{rec: h.rec, onConnect: onConnect}
			if h.launcherSetup != nil {
				h.launcherSetup(l)
			}
			h.launchers = append(h.launchers, l)
			return l
		},
		Store: h.store,
	})
	h.orch.newID = func() string { return fmt.Sprintf("session-%d", h.orch.generation) }
	return h
}

// step advances the clock and runs everything that became due.
func (h *harness) step(d time.Duration) {
	h.clock.Advance(d)
	h.loop.Drain()
}

// resume runs the start sequence on the loop and returns its error.
func (h *harness) resume() error {
	var err error
	h.inLoop(func() { err = h.orch.resume(context.Background()) })
	return err
}

func (h *harness) pause() error {
	var err error
	h.inLoop(func() { err = h.orch.pause(context.Background()) })
	return err
}

// inLoop runs fn as a task and drains the queue behind it.
func (h *harness) inLoop(fn func()) {
	h.t.Helper()
	if err := h.loop.Post("test", fn); err != nil {
		h.t.Fatalf("post: %v", err)
	}
	h.loop.Drain()
}

func (h *harness) decoder() *fakeDecoder   { return h.decoders[len(h.decoders)-1] }
func (h *harness) receiver() *fakeReceiver { return h.receivers[len(h.receivers)-1] }
func (h *harness) launcher() *fakeLauncher { return h.launchers[len(h.launchers)-1] }

// connect brings up a streaming session with presentation mode active.
func (h *harness) connect(params model.StreamParams) {
	h.t.Helper()
	if err := h.resume(); err != nil {
		h.t.Fatalf("resume: %v", err)
	}
	h.disp.setPresentation(true)
	h.orch.OnPresentationModeChanged(true)
	h.decoder().events.OnPrepared()
	h.receiver().setConnected(true)
	h.receiver().events.OnConnected(params)
	h.loop.Drain()
}

var params1080p = model.StreamParams{
	Width:          1920,
	Height:         1080,
	Codec:          model.CodecH264,
	FrameQueueSize: 3,
	RefreshHz:      72,
}
