// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"context"
	"time"

	"github.com/ManuGH/streamrx/internal/domain/session/lifecycle"
	"github.com/ManuGH/streamrx/internal/domain/session/model"
	"github.com/ManuGH/streamrx/internal/launcher"
	rxlog "github.com/ManuGH/streamrx/internal/log"
	"github.com/ManuGH/streamrx/internal/metrics"
)

// Placeholder statuses, in rendering priority order.
const (
	placeholderError     = "error"
	placeholderConnected = "connected_waiting"
	placeholderAwaiting  = "awaiting_user_action"
	placeholderWaiting   = "waiting_for_connection"
)

// OnDecodedFrameAvailable cancels any pending idle tick and queues an
// immediate one. Safe from any goroutine. Decode workers reach the same
// handler through their session events.
func (o *Orchestrator) OnDecodedFrameAvailable() {
	o.post("render.frame_available", o.frameAvailable)
}

// frameAvailable acknowledges the output to the running decoder and replaces
// the pending tick with an immediate one.
func (o *Orchestrator) frameAvailable() {
	if o.active && o.decoder != nil {
		o.decoder.NotifyFrameAvailable()
	}
	o.scheduleTick(0)
}

// scheduleTick arms the single tick slot, replacing whatever tick was pending.
func (o *Orchestrator) scheduleTick(delay time.Duration) {
	if err := o.loop.Schedule(tickSlot, delay, "render.tick", o.tick); err != nil {
		o.logger.Debug().Err(err).Msg("tick not scheduled")
	}
}

// tick is the render loop body.
func (o *Orchestrator) tick() {
	o.pullReceiverError()

	if o.streaming() {
		o.renderStreaming()
		return
	}

	if !o.display.IsPresentationModeActive() {
		// Nothing is visible: no idle ticks until an event wakes the loop.
		metrics.IncRenderTick(metrics.TickInactive)
		return
	}

	status, text := o.placeholder()
	o.display.RenderPlaceholder(text)
	metrics.IncRenderTick(metrics.TickPlaceholder)
	metrics.IncPlaceholderRender(status)
	o.scheduleTick(o.cfg.Pacing.PlaceholderTick)
}

// streaming reports whether frames may be presented: the session is
// connected without error and the network worker still reports a link.
func (o *Orchestrator) streaming() bool {
	return o.active &&
		o.decoder != nil &&
		o.session.Streaming() &&
		o.receiver.IsConnected()
}

func (o *Orchestrator) renderStreaming() {
	if last, ok := o.clock.LastPresented(); ok {
		now, hz := o.nowNanos(), o.effectiveRefreshHz()
		if ms := o.pacer.TimeUntilNextFrame(now, last, hz); ms > 0 {
			metrics.IncRenderTick(metrics.TickPaced)
			metrics.ObserveFramePacingWait(o.pacer.Remaining(now, last, hz))
			o.scheduleTick(time.Duration(ms) * time.Millisecond)
			return
		}
	}

	surface := o.display.Surface()
	if o.cfg.Pacing.DiscardStaleFrames && o.decoder.DiscardStaleFrames(surface) {
		metrics.IncRenderTick(metrics.TickDiscarded)
		o.scheduleTick(o.cfg.Pacing.IdleTick)
		return
	}

	idx := o.decoder.ClaimLatestFrame(surface)
	if idx == model.NoFrame {
		metrics.IncRenderTick(metrics.TickNoFrame)
		o.scheduleTick(o.cfg.Pacing.IdleTick)
		return
	}

	if !o.claims.Admit(idx) {
		// The buffer was claimed, so it still goes back to the pool.
		o.decoder.ReleaseBuffer()
		metrics.IncRenderTick(metrics.TickOutOfOrder)
		o.logger.Warn().
			Int64(rxlog.FieldFrameIndex, int64(idx)).
			Int64("last_frame_index", int64(o.claims.Last())).
			Msg("decoder returned an older frame, not presenting")
		o.scheduleTick(o.cfg.Pacing.FastTick)
		return
	}

	o.display.RenderFrame(idx)
	o.decoder.ReleaseBuffer()
	o.clock.MarkPresented(o.nowNanos())
	metrics.IncRenderTick(metrics.TickPresented)
	metrics.IncFramePresented()

	// Another frame may already be queued.
	o.scheduleTick(o.cfg.Pacing.FastTick)
}

// pullReceiverError copies the network worker's live error into the session.
func (o *Orchestrator) pullReceiverError() {
	if o.receiver == nil {
		return
	}
	msg := o.receiver.CurrentErrorMessage()
	if msg == "" {
		return
	}
	res, _ := o.apply(lifecycle.Event{Kind: lifecycle.EvError, Message: msg})
	if res.ErrorSet {
		o.logger.Warn().
			Str(rxlog.FieldEvent, "session.error").
			Str(rxlog.FieldSessionID, o.session.ID).
			Str("error_message", msg).
			Msg("network worker reported an error")
		metrics.SetSessionState(string(o.session.State), true)
	}
}

// placeholder picks the status text. An error always wins.
func (o *Orchestrator) placeholder() (status, text string) {
	label := o.cfg.VersionLabel + "\n \n"
	switch {
	case o.session.HasError():
		return placeholderError, label + "!!! Error !!!\n" + o.session.ErrorMessage
	case o.receiver != nil && o.receiver.IsConnected():
		return placeholderConnected, label + "Connected!\nStreaming will begin soon!"
	case o.launcher != nil && o.launcher.IsConnected():
		if o.display.ConfirmPressed() {
			o.sendLauncherCommand(launcher.CommandStartServer)
		}
		return placeholderAwaiting, label + "Connected!\nStart the streaming server on the host."
	default:
		return placeholderWaiting, label + "Press CONNECT on the streaming server."
	}
}

// sendLauncherCommand writes off the loop so a slow peer never stalls a tick.
func (o *Orchestrator) sendLauncherCommand(name string) {
	l := o.launcher
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.StopTimeout)
	o.bg.Add(1)
	go func() {
		defer o.bg.Done()
		defer cancel()
		if err := l.SendCommand(ctx, name); err != nil {
			o.logger.Debug().Err(err).Str("command", name).Msg("launcher command not delivered")
		}
	}()
}
