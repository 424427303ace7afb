// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sim provides software stand-ins for the decode worker, the network
// worker and the display so the receiver runs without hardware.
package sim

import (
	"context"
	"errors"
	"sync"

	"github.com/ManuGH/streamrx/internal/domain/session/model"
	rxlog "github.com/ManuGH/streamrx/internal/log"
	"github.com/ManuGH/streamrx/internal/orchestrator"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrAlreadyStarted is returned by Start on a running worker.
var ErrAlreadyStarted = errors.New("sim: worker already started")

// Decoder produces frame indices at a fixed rate once a stream is connected.
// Only the newest decoded frame is kept.
type Decoder struct {
	events  orchestrator.DecoderEvents
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	connected chan struct{}
	codec     model.Codec
	next      model.FrameIndex
	latest    model.FrameIndex
	held      bool
	acked     int
	dropped   int
}

var _ orchestrator.Decoder = (*Decoder)(nil)

// NewDecoder returns a decoder emitting fps frames per second.
func NewDecoder(events orchestrator.DecoderEvents, fps int) *Decoder {
	if fps <= 0 {
		fps = 60
	}
	return &Decoder{
		events:  events,
		limiter: rate.NewLimiter(rate.Limit(fps), 1),
		logger:  rxlog.WithComponent("sim.decoder"),
		latest:  model.NoFrame,
	}
}

func (d *Decoder) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return ErrAlreadyStarted
	}
	// The worker outlives the start call; only Stop ends it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	d.done = make(chan struct{})
	d.connected = make(chan struct{})
	done, connected := d.done, d.connected
	d.mu.Unlock()

	go d.run(runCtx, done, connected)
	d.events.OnPrepared()
	return nil
}

func (d *Decoder) run(ctx context.Context, done, connected chan struct{}) {
	defer close(done)
	select {
	case <-connected:
	case <-ctx.Done():
		return
	}
	for {
		if err := d.limiter.Wait(ctx); err != nil {
			return
		}
		d.mu.Lock()
		idx := d.next
		d.next++
		if d.latest != model.NoFrame {
			d.dropped++
		}
		d.latest = idx
		d.mu.Unlock()

		d.events.OnFrameDecoded()
		d.events.OnFrameAvailable()
	}
}

// StopAndWait cancels the worker and waits for it, bounded by ctx. Pending
// frames are abandoned.
func (d *Decoder) StopAndWait(ctx context.Context) error {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel = nil
	d.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	d.events.OnDestroyed()
	d.logger.Debug().Int("dropped", d.Dropped()).Msg("decoder stopped")
	return nil
}

func (d *Decoder) NotifyConnect(codec model.Codec, frameQueueSize int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codec = codec
	if d.connected != nil {
		select {
		case <-d.connected:
		default:
			close(d.connected)
		}
	}
	d.logger.Info().
		Str(rxlog.FieldCodec, codec.String()).
		Int(rxlog.FieldQueueSize, frameQueueSize).
		Msg("decoder configured")
}

// NotifyDisconnect drops any undisplayed frame.
func (d *Decoder) NotifyDisconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latest = model.NoFrame
}

func (d *Decoder) NotifyFrameAvailable() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acked++
}

// ClaimLatestFrame hands out the newest frame not yet claimed.
func (d *Decoder) ClaimLatestFrame(orchestrator.Handle) model.FrameIndex {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.held || d.latest == model.NoFrame {
		return model.NoFrame
	}
	idx := d.latest
	d.latest = model.NoFrame
	d.held = true
	return idx
}

func (d *Decoder) ReleaseBuffer() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.held = false
}

// DiscardStaleFrames reports whether frames were overwritten before being claimed.
func (d *Decoder) DiscardStaleFrames(orchestrator.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dropped == 0 {
		return false
	}
	d.dropped = 0
	return true
}

// Dropped returns the number of frames overwritten before being claimed.
func (d *Decoder) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}
