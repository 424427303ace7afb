// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"context"
	"sync"

	"github.com/ManuGH/streamrx/internal/domain/session/lifecycle"
	"github.com/ManuGH/streamrx/internal/domain/session/model"
	rxlog "github.com/ManuGH/streamrx/internal/log"
	"github.com/ManuGH/streamrx/internal/metrics"
	"github.com/ManuGH/streamrx/internal/persistence/endpoint"
)

// Bridge event names, used as task names and metric labels.
const (
	evConnected        = "connected"
	evChangeSettings   = "change_settings"
	evShutdown         = "shutdown"
	evDisconnect       = "disconnect"
	evTracking         = "tracking"
	evHaptics          = "haptics"
	evDecoderPrepared  = "decoder_prepared"
	evDecoderDestroyed = "decoder_destroyed"
	evFrameDecoded     = "frame_decoded"
	evFrameAvailable   = "frame_available"
	evLauncherConnect  = "launcher_connect"
	evPresentation     = "presentation_mode"
)

// Drop reasons.
const (
	dropStale        = "stale_session"
	dropPresentation = "presentation_inactive"
)

// sessionEvents is handed to the workers of one session. Callbacks never
// touch loop state directly; most post a task that is ignored once the
// session it was created for has been torn down.
type sessionEvents struct {
	o   *Orchestrator
	gen uint64
}

var (
	_ DecoderEvents  = (*sessionEvents)(nil)
	_ ReceiverEvents = (*sessionEvents)(nil)
)

// deliver posts fn as a bridge task bound to this session's generation.
func (e *sessionEvents) deliver(event string, fn func()) {
	o := e.o
	o.post("bridge."+event, func() {
		if !o.current(e.gen) {
			metrics.IncBridgeEventDropped(event, dropStale)
			o.logger.Debug().
				Str(rxlog.FieldEvent, "bridge."+event).
				Uint64("generation", e.gen).
				Msg("event from a previous session ignored")
			return
		}
		metrics.IncBridgeEvent(event)
		fn()
	})
}

// current reports whether gen is the live session. Loop-owned.
func (o *Orchestrator) current(gen uint64) bool {
	return o.active && gen == o.session.Generation
}

func (e *sessionEvents) OnConnected(params model.StreamParams) {
	e.deliver(evConnected, func() { e.o.onConnected(params) })
}

func (e *sessionEvents) OnChangeSettings(suspend bool, frameQueueSize int) {
	e.deliver(evChangeSettings, func() {
		e.o.display.ChangeSettings(suspend, frameQueueSize)
		e.o.logger.Debug().
			Bool("suspend", suspend).
			Int(rxlog.FieldQueueSize, frameQueueSize).
			Msg("stream settings changed")
	})
}

// OnShutdown saves the endpoint the network worker reports as it exits. The
// report usually arrives while the session is being paused, and it only
// touches the store, so it is not bound to the session generation.
func (e *sessionEvents) OnShutdown(serverAddr string, serverPort int) {
	o := e.o
	o.post("bridge."+evShutdown, func() {
		metrics.IncBridgeEvent(evShutdown)
		o.saveEndpoint(serverAddr, serverPort)
	})
}

func (e *sessionEvents) OnDisconnect() {
	e.deliver(evDisconnect, func() { e.o.onDisconnect() })
}

// OnTracking coalesces samples: only the newest one is forwarded and at most
// one forwarding task is queued.
func (e *sessionEvents) OnTracking(t Tracking) {
	o := e.o
	if !o.tracking.offer(e.gen, t) {
		return
	}
	o.post("bridge."+evTracking, func() {
		gen, sample, ok := o.tracking.take()
		if !ok {
			return
		}
		if !o.current(gen) {
			metrics.IncBridgeEventDropped(evTracking, dropStale)
			return
		}
		if !o.display.IsPresentationModeActive() {
			metrics.IncBridgeEventDropped(evTracking, dropPresentation)
			return
		}
		metrics.IncBridgeEvent(evTracking)
		o.display.ForwardTracking(sample)
	})
}

func (e *sessionEvents) OnHapticsFeedback(h Haptics) {
	e.deliver(evHaptics, func() {
		if !e.o.display.IsPresentationModeActive() {
			metrics.IncBridgeEventDropped(evHaptics, dropPresentation)
			return
		}
		e.o.display.ForwardHaptics(h)
	})
}

func (e *sessionEvents) OnPrepared() {
	e.deliver(evDecoderPrepared, func() {
		e.o.displayState.DecoderPrepared = true
		e.o.pushSinkPrepared()
	})
}

func (e *sessionEvents) OnDestroyed() {
	e.deliver(evDecoderDestroyed, func() {
		e.o.displayState.DecoderPrepared = false
		e.o.pushSinkPrepared()
	})
}

// OnFrameDecoded is counted only. Buffers are released by the render tick
// that presented them, so there is nothing to do on the loop.
func (e *sessionEvents) OnFrameDecoded() {
	metrics.IncBridgeEvent(evFrameDecoded)
}

func (e *sessionEvents) OnFrameAvailable() {
	e.deliver(evFrameAvailable, e.o.frameAvailable)
}

// onLauncherConnect refreshes the placeholder once a launcher peer attaches.
func (e *sessionEvents) onLauncherConnect() {
	e.deliver(evLauncherConnect, func() {
		e.o.logger.Info().Str(rxlog.FieldEvent, "bridge.launcher_connected").Msg("launcher peer connected")
		e.o.scheduleTick(0)
	})
}

// onConnected applies display parameters strictly before the decoder learns
// the codec, so the first decoded frame already has the right geometry.
func (o *Orchestrator) onConnected(p model.StreamParams) {
	from := o.session.State

	o.display.ApplyRefreshRate(p.RefreshHz)
	o.display.ApplyFrameGeometry(p.Width, p.Height)
	o.decoder.NotifyConnect(p.Codec, p.FrameQueueSize)

	res, err := o.apply(lifecycle.Event{Kind: lifecycle.EvConnected, Params: p})
	if err != nil {
		o.logger.Warn().Err(err).Str(rxlog.FieldOldState, string(from)).Msg("connected event rejected")
		return
	}
	o.publishSessionState()

	o.logger.Info().
		Str(rxlog.FieldEvent, "bridge.connected").
		Str(rxlog.FieldSessionID, o.session.ID).
		Str(rxlog.FieldOldState, string(res.From)).
		Str(rxlog.FieldNewState, string(res.To)).
		Str(rxlog.FieldCodec, p.Codec.String()).
		Str(rxlog.FieldResolution, p.Resolution()).
		Int(rxlog.FieldRefreshHz, p.RefreshHz).
		Int(rxlog.FieldQueueSize, p.FrameQueueSize).
		Bool("error_cleared", res.ErrorCleared).
		Msg("stream negotiated")
	o.scheduleTick(0)
}

func (o *Orchestrator) onDisconnect() {
	o.decoder.NotifyDisconnect()

	res, err := o.apply(lifecycle.Event{Kind: lifecycle.EvDisconnected})
	if err != nil {
		o.logger.Debug().Err(err).Msg("disconnect event ignored")
		return
	}
	// The next stream starts a new index sequence; renegotiation keeps the old one.
	o.claims.Reset()
	o.clock.Reset()
	o.publishSessionState()
	o.logger.Info().
		Str(rxlog.FieldEvent, "bridge.disconnected").
		Str(rxlog.FieldSessionID, o.session.ID).
		Str(rxlog.FieldOldState, string(res.From)).
		Str(rxlog.FieldNewState, string(res.To)).
		Msg("stream disconnected")
	// Back to placeholders; the tick decides whether anything is visible.
	o.scheduleTick(0)
}

func (o *Orchestrator) saveEndpoint(addr string, port int) {
	ep := endpoint.Endpoint{Address: addr, Port: port, SavedAt: o.loop.Now().UTC()}
	if err := o.store.Save(context.Background(), ep); err != nil {
		o.logger.Warn().Err(err).Str(rxlog.FieldServerAddr, addr).Int(rxlog.FieldServerPort, port).Msg("could not save endpoint")
		return
	}
	o.logger.Info().
		Str(rxlog.FieldEvent, "bridge.endpoint_saved").
		Str(rxlog.FieldServerAddr, addr).
		Int(rxlog.FieldServerPort, port).
		Msg("save connection state")
}

// pushSinkPrepared recomputes the sink flag and hands it to the network worker.
func (o *Orchestrator) pushSinkPrepared() {
	prepared := o.displayState.SinkPrepared()
	metrics.SetSinkPrepared(prepared)
	if o.receiver != nil {
		o.receiver.SetSinkPrepared(prepared)
	}
}

// OnPresentationModeChanged reports the display entering or leaving presentation mode.
func (o *Orchestrator) OnPresentationModeChanged(enter bool) {
	o.post("bridge."+evPresentation, func() {
		metrics.IncBridgeEvent(evPresentation)
		o.displayState.PresentationActive = enter
		o.pushSinkPrepared()
		o.logger.Info().
			Str(rxlog.FieldEvent, "bridge.presentation_mode").
			Bool("active", enter).
			Msg("presentation mode changed")
		if enter {
			o.scheduleTick(0)
		}
	})
}

// SurfaceCreated, SurfaceChanged and SurfaceDestroyed forward platform
// window callbacks to the display as tasks.
func (o *Orchestrator) SurfaceCreated(surface Handle) {
	o.post("surface.created", func() { o.display.SurfaceCreated(surface) })
}

func (o *Orchestrator) SurfaceChanged(surface Handle, width, height int) {
	o.post("surface.changed", func() { o.display.SurfaceChanged(surface, width, height) })
}

func (o *Orchestrator) SurfaceDestroyed() {
	o.post("surface.destroyed", func() { o.display.SurfaceDestroyed() })
}

// trackingMailbox holds the newest tracking sample not yet forwarded.
type trackingMailbox struct {
	mu      sync.Mutex
	gen     uint64
	sample  Tracking
	has     bool
	pending bool
}

// offer stores t and reports whether the caller must post a forwarding task.
func (m *trackingMailbox) offer(gen uint64, t Tracking) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen, m.sample, m.has = gen, t, true
	if m.pending {
		return false
	}
	m.pending = true
	return true
}

func (m *trackingMailbox) take() (uint64, Tracking, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = false
	if !m.has {
		return 0, Tracking{}, false
	}
	m.has = false
	return m.gen, m.sample, true
}

func (m *trackingMailbox) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.has = false
	m.sample = Tracking{}
}
