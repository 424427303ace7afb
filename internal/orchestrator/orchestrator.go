// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package orchestrator coordinates the network worker, the decode worker and
// the display on a single serialized task loop. Every field of Orchestrator
// below the "loop-owned" marker is read and written only from loop tasks.
package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/streamrx/internal/domain/session/lifecycle"
	"github.com/ManuGH/streamrx/internal/domain/session/model"
	rxlog "github.com/ManuGH/streamrx/internal/log"
	"github.com/ManuGH/streamrx/internal/loop"
	"github.com/ManuGH/streamrx/internal/pacing"
	"github.com/ManuGH/streamrx/internal/persistence/endpoint"
	"github.com/ManuGH/streamrx/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// tickSlot is the single slot every render tick is scheduled in, so at most
// one tick is ever outstanding.
const tickSlot loop.Slot = "render.tick"

// Pacing holds the runtime-tunable render intervals.
type Pacing struct {
	FastTick           time.Duration
	IdleTick           time.Duration
	PlaceholderTick    time.Duration
	SafetyMargin       time.Duration
	DefaultRefreshHz   int
	DiscardStaleFrames bool
}

// DefaultPacing mirrors the configuration defaults.
func DefaultPacing() Pacing {
	return Pacing{
		FastTick:         5 * time.Millisecond,
		IdleTick:         50 * time.Millisecond,
		PlaceholderTick:  100 * time.Millisecond,
		SafetyMargin:     pacing.DefaultSafetyMargin,
		DefaultRefreshHz: 60,
	}
}

// Config wires the orchestrator.
type Config struct {
	Pacing       Pacing
	StopTimeout  time.Duration
	VersionLabel string
}

// Deps are the collaborators. Launcher and Store are optional.
type Deps struct {
	Loop        *loop.Loop
	Display     Display
	NewDecoder  DecoderFactory
	NewReceiver ReceiverFactory
	NewLauncher LauncherFactory
	Store       endpoint.Store
}

// Orchestrator is the receiver runtime. All exported methods are safe to call
// from any goroutine; they only post tasks.
type Orchestrator struct {
	loop        *loop.Loop
	display     Display
	newDecoder  DecoderFactory
	newReceiver ReceiverFactory
	newLauncher LauncherFactory
	store       endpoint.Store
	logger      zerolog.Logger
	tracer      trace.Tracer
	epoch       time.Time
	newID       func() string

	tracking trackingMailbox
	bg       sync.WaitGroup
	started  atomic.Bool

	// loop-owned
	cfg          Config
	pacer        pacing.Pacer
	session      model.Session
	generation   uint64
	displayState model.DisplayState
	clock        model.PresentationClock
	claims       model.ClaimGuard
	active       bool
	refreshHz    int
	decoder      Decoder
	receiver     Receiver
	launcher     Launcher
}

// New creates an orchestrator bound to deps.Loop. Nothing runs until Start.
func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 5 * time.Second
	}
	if cfg.VersionLabel == "" {
		cfg.VersionLabel = "streamrx"
	}
	if deps.Store == nil {
		deps.Store = endpoint.NewMemoryStore()
	}
	o := &Orchestrator{
		loop:        deps.Loop,
		display:     deps.Display,
		newDecoder:  deps.NewDecoder,
		newReceiver: deps.NewReceiver,
		newLauncher: deps.NewLauncher,
		store:       deps.Store,
		logger:      rxlog.WithComponent("orchestrator"),
		tracer:      telemetry.Tracer("streamrx/orchestrator"),
		epoch:       deps.Loop.Now(),
		newID:       func() string { return uuid.NewString() },
		cfg:         cfg,
		pacer:       pacing.New(cfg.Pacing.SafetyMargin),
		session:     model.NewSession("", 0),
	}
	return o
}

// nowNanos is the loop clock relative to the orchestrator epoch.
func (o *Orchestrator) nowNanos() int64 {
	return o.loop.Now().Sub(o.epoch).Nanoseconds()
}

func (o *Orchestrator) post(name string, fn func()) {
	if err := o.loop.Post(name, fn); err != nil {
		o.logger.Debug().Err(err).Str(rxlog.FieldTask, name).Msg("task rejected")
	}
}

// Start posts the startup task: display initialization and the loading placeholder.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.started.CompareAndSwap(false, true) {
		return ErrAlreadyActive
	}
	return o.loop.Post("orchestrator.startup", func() {
		if err := o.display.Initialize(ctx); err != nil {
			o.logger.Error().Err(err).Str(rxlog.FieldEvent, "startup.display_init_failed").Msg("display initialization failed")
			return
		}
		o.display.RenderPlaceholder(o.cfg.VersionLabel + "\nLoading...")
		o.logger.Info().Str(rxlog.FieldEvent, "startup.done").Msg("receiver started")
	})
}

// ApplyPacing swaps the render intervals on the loop.
func (o *Orchestrator) ApplyPacing(p Pacing) error {
	return o.loop.Post("orchestrator.apply_pacing", func() {
		o.cfg.Pacing = p
		o.pacer = pacing.New(p.SafetyMargin)
		o.logger.Info().
			Str(rxlog.FieldEvent, "pacing.applied").
			Dur("fast_tick", p.FastTick).
			Dur("idle_tick", p.IdleTick).
			Dur("placeholder_tick", p.PlaceholderTick).
			Bool("discard_stale_frames", p.DiscardStaleFrames).
			Msg("pacing updated")
	})
}

// Quit pauses an active session, destroys display resources and shuts the
// loop down. Every step runs as tasks behind anything already posted.
func (o *Orchestrator) Quit(ctx context.Context) error {
	return o.loop.Post("orchestrator.quit", func() {
		if o.active {
			if err := o.pause(ctx); err != nil {
				o.logger.Warn().Err(err).Str(rxlog.FieldEvent, "quit.pause_failed").Msg("pause during quit failed")
			}
		}
		o.display.Destroy()
		o.logger.Info().Str(rxlog.FieldEvent, "quit.done").Msg("display destroyed, shutting loop down")
		o.loop.Shutdown()
	})
}

// Wait blocks until background launcher commands have finished.
func (o *Orchestrator) Wait() {
	o.bg.Wait()
}

// Status is a point-in-time view of loop-owned state.
type Status struct {
	SessionID    string             `json:"session_id,omitempty"`
	Generation   uint64             `json:"generation"`
	State        model.ConnState    `json:"state"`
	ErrorMessage string             `json:"error_message,omitempty"`
	Active       bool               `json:"active"`
	Codec        string             `json:"codec,omitempty"`
	Resolution   string             `json:"resolution,omitempty"`
	RefreshHz    int                `json:"refresh_hz"`
	Display      model.DisplayState `json:"display"`
	SinkPrepared bool               `json:"sink_prepared"`
	LastFrame    model.FrameIndex   `json:"last_frame"`
	Scheduled    []loop.Scheduled   `json:"scheduled,omitempty"`
}

// Snapshot reads the current state through a task.
func (o *Orchestrator) Snapshot(ctx context.Context) (Status, error) {
	var st Status
	err := o.loop.Call(ctx, "orchestrator.snapshot", func() {
		st = Status{
			SessionID:    o.session.ID,
			Generation:   o.session.Generation,
			State:        o.session.State,
			ErrorMessage: o.session.ErrorMessage,
			Active:       o.active,
			RefreshHz:    o.effectiveRefreshHz(),
			Display:      o.displayState,
			SinkPrepared: o.displayState.SinkPrepared(),
			LastFrame:    o.claims.Last(),
			Scheduled:    o.loop.Outstanding(),
		}
		if o.session.State == model.StateConnected {
			st.Codec = o.session.Params.Codec.String()
			st.Resolution = o.session.Params.Resolution()
		}
	})
	return st, err
}

// effectiveRefreshHz prefers the negotiated rate, then the device rate, then the default.
func (o *Orchestrator) effectiveRefreshHz() int {
	switch {
	case o.session.Params.RefreshHz > 0:
		return o.session.Params.RefreshHz
	case o.refreshHz > 0:
		return o.refreshHz
	default:
		return o.cfg.Pacing.DefaultRefreshHz
	}
}

// apply runs ev through the session state machine and counts the step.
func (o *Orchestrator) apply(ev lifecycle.Event) (lifecycle.Result, error) {
	res, err := lifecycle.Apply(&o.session, ev, o.loop.Now())
	if err == nil && (res.Changed() || res.ErrorSet || res.ErrorCleared) {
		telemetry.RecordTransition(context.Background(), ev.Kind.String(), string(res.From), string(res.To))
	}
	return res, err
}
