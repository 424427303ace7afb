// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/streamrx/internal/domain/session/lifecycle"
	"github.com/ManuGH/streamrx/internal/domain/session/model"
	rxlog "github.com/ManuGH/streamrx/internal/log"
	"github.com/ManuGH/streamrx/internal/metrics"
	"github.com/ManuGH/streamrx/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

const (
	workerDecoder  = "decoder"
	workerReceiver = "receiver"
	workerLauncher = "launcher"
)

// Resume posts the start sequence. Errors are logged; use ResumeSync to observe them.
func (o *Orchestrator) Resume(ctx context.Context) error {
	return o.loop.Post("lifecycle.resume", func() {
		_ = o.resume(ctx)
	})
}

// ResumeSync runs the start sequence and returns its error. It must not be
// called from a loop task.
func (o *Orchestrator) ResumeSync(ctx context.Context) error {
	var err error
	if callErr := o.loop.Call(ctx, "lifecycle.resume", func() { err = o.resume(ctx) }); callErr != nil {
		return callErr
	}
	return err
}

// Pause posts the stop sequence.
func (o *Orchestrator) Pause(ctx context.Context) error {
	return o.loop.Post("lifecycle.pause", func() {
		_ = o.pause(ctx)
	})
}

// PauseSync runs the stop sequence and returns the joined teardown errors.
func (o *Orchestrator) PauseSync(ctx context.Context) error {
	var err error
	if callErr := o.loop.Call(ctx, "lifecycle.pause", func() { err = o.pause(ctx) }); callErr != nil {
		return callErr
	}
	return err
}

// resume starts a fresh worker pair. A running pair is stopped first.
func (o *Orchestrator) resume(ctx context.Context) (err error) {
	if o.active {
		o.logger.Info().
			Str(rxlog.FieldEvent, "lifecycle.resume_restart").
			Str(rxlog.FieldSessionID, o.session.ID).
			Msg("resume while active, stopping previous workers first")
		if perr := o.pause(ctx); perr != nil {
			o.logger.Warn().Err(perr).Msg("previous workers did not stop cleanly")
		}
	}

	o.generation++
	o.session = model.NewSession(o.newID(), o.generation)
	o.claims.Reset()
	o.clock.Reset()
	o.displayState.DecoderPrepared = false
	o.tracking.reset()

	ctx, span := o.tracer.Start(ctx, "lifecycle.resume")
	span.SetAttributes(telemetry.SessionAttributes(o.session.ID, o.session.Generation)...)
	defer func() { telemetry.EndSpan(span, err) }()

	logger := o.logger.With().Str(rxlog.FieldSessionID, o.session.ID).Logger()
	logger.Info().Str(rxlog.FieldEvent, "lifecycle.resume_start").Msg("starting worker threads")

	events := &sessionEvents{o: o, gen: o.generation}

	if o.newLauncher != nil {
		l := o.newLauncher(events.onLauncherConnect)
		if lerr := l.Listen(); lerr != nil {
			// The side channel is a convenience; streaming works without it.
			logger.Warn().Err(lerr).Str(rxlog.FieldWorker, workerLauncher).Msg("launcher socket unavailable")
		} else {
			o.launcher = l
		}
	}

	receiver := o.newReceiver(events)
	o.recoverEndpoint(ctx, receiver)

	// Output left by a previous decoder would swallow the next frame-available signal.
	o.display.FlushPendingOutput()
	span.AddEvent("display.flushed")

	decoder := o.newDecoder(events)
	if derr := decoder.Start(ctx); derr != nil {
		metrics.IncWorkerStart(workerDecoder, false)
		logger.Error().Err(derr).Str(rxlog.FieldEvent, "lifecycle.decoder_start_failed").Msg("decode worker failed to start")
		o.closeLauncher()
		return fmt.Errorf("%w: %w", ErrDecoderStart, derr)
	}
	metrics.IncWorkerStart(workerDecoder, true)
	span.AddEvent("decoder.started")

	device := o.display.DeviceInfo()
	o.refreshHz = device.PreferredRefreshHz()

	if _, terr := o.apply(lifecycle.Event{Kind: lifecycle.EvStartRequested}); terr != nil {
		logger.Warn().Err(terr).Msg("unexpected session state on resume")
	}

	if rerr := receiver.Start(ctx, o.display.GraphicsContext(), device, decoder); rerr != nil {
		metrics.IncWorkerStart(workerReceiver, false)
		logger.Error().
			Err(rerr).
			Str(rxlog.FieldEvent, "lifecycle.receiver_start_failed").
			Msg("FATAL: initialization of network worker failed")

		// The decoder was never told about a connection; stop it and stay inactive.
		if serr := o.stopWorker(ctx, workerDecoder, decoder.StopAndWait); serr != nil {
			logger.Warn().Err(serr).Msg("decode worker did not stop after failed resume")
		}
		_, _ = o.apply(lifecycle.Event{Kind: lifecycle.EvTeardown})
		o.publishSessionState()
		o.closeLauncher()
		return fmt.Errorf("%w: %w", ErrReceiverStart, rerr)
	}
	metrics.IncWorkerStart(workerReceiver, true)
	span.AddEvent("receiver.started")

	o.decoder = decoder
	o.receiver = receiver
	o.active = true
	o.publishSessionState()
	o.pushSinkPrepared()

	o.display.Resume()
	o.scheduleTick(0)

	logger.Info().
		Str(rxlog.FieldEvent, "lifecycle.resume_done").
		Int(rxlog.FieldRefreshHz, o.refreshHz).
		Str("device", device.Name).
		Msg("worker threads started")
	return nil
}

// recoverEndpoint hands the last saved server to the network worker.
func (o *Orchestrator) recoverEndpoint(ctx context.Context, receiver Receiver) {
	ep, ok, err := o.store.Load(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("could not load saved endpoint")
		return
	}
	if !ok || !ep.Valid() {
		return
	}
	o.logger.Info().
		Str(rxlog.FieldEvent, "lifecycle.endpoint_recovered").
		Str(rxlog.FieldServerAddr, ep.Address).
		Int(rxlog.FieldServerPort, ep.Port).
		Msg("load connection state")
	receiver.ResumeFromSavedEndpoint(ep.Address, ep.Port)
}

// pause stops the worker pair in reverse dependency order: launcher, decoder,
// receiver, display. Every step runs even if an earlier one failed.
func (o *Orchestrator) pause(ctx context.Context) (err error) {
	if !o.active {
		return ErrNotActive
	}

	ctx, span := o.tracer.Start(ctx, "lifecycle.pause")
	span.SetAttributes(telemetry.SessionAttributes(o.session.ID, o.session.Generation)...)
	defer func() { telemetry.EndSpan(span, err) }()

	logger := o.logger.With().Str(rxlog.FieldSessionID, o.session.ID).Logger()
	logger.Info().Str(rxlog.FieldEvent, "lifecycle.pause_start").Msg("stopping worker threads")

	var errs []error
	if cerr := o.closeLauncher(); cerr != nil {
		errs = append(errs, cerr)
	}
	span.AddEvent("launcher.closed")

	// Sink-prepared may only be true while the decoder runs.
	o.displayState.DecoderPrepared = false
	o.pushSinkPrepared()

	logger.Debug().Str(rxlog.FieldWorker, workerDecoder).Msg("stopping decode worker")
	if serr := o.stopWorker(ctx, workerDecoder, o.decoder.StopAndWait); serr != nil {
		errs = append(errs, serr)
	}
	span.AddEvent("decoder.stopped", trace.WithAttributes(telemetry.WorkerStep(workerDecoder, "stop")...))

	logger.Debug().Str(rxlog.FieldWorker, workerReceiver).Msg("stopping network worker")
	if serr := o.stopWorker(ctx, workerReceiver, o.receiver.StopAndWait); serr != nil {
		errs = append(errs, serr)
	}
	span.AddEvent("receiver.stopped", trace.WithAttributes(telemetry.WorkerStep(workerReceiver, "stop")...))

	o.display.Pause()

	_, _ = o.apply(lifecycle.Event{Kind: lifecycle.EvTeardown})
	o.active = false
	o.decoder = nil
	o.receiver = nil
	o.tracking.reset()
	o.publishSessionState()

	err = errors.Join(errs...)
	if err != nil {
		logger.Warn().Err(err).Str(rxlog.FieldEvent, "lifecycle.pause_incomplete").Msg("teardown finished with errors")
	} else {
		logger.Info().Str(rxlog.FieldEvent, "lifecycle.pause_done").Msg("worker threads stopped")
	}
	return err
}

// stopWorker calls a blocking stop bounded by the stop timeout. It is the only
// blocking call a task makes.
func (o *Orchestrator) stopWorker(ctx context.Context, worker string, stop func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.StopTimeout)
	defer cancel()

	start := time.Now()
	err := stop(ctx)
	metrics.ObserveWorkerStop(worker, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("stop %s: %w", worker, err)
	}
	return nil
}

func (o *Orchestrator) closeLauncher() error {
	if o.launcher == nil {
		return nil
	}
	err := o.launcher.Close()
	o.launcher = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", workerLauncher, err)
	}
	return nil
}

func (o *Orchestrator) publishSessionState() {
	metrics.SetSessionState(string(o.session.State), o.session.HasError())
}
