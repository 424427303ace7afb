// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/streamrx/internal/domain/session/model"
	rxlog "github.com/ManuGH/streamrx/internal/log"
	"github.com/ManuGH/streamrx/internal/orchestrator"
	"github.com/rs/zerolog"
)

var (
	// ErrNoRefreshRate is returned when the device advertises no refresh rate.
	ErrNoRefreshRate = errors.New("sim: device has no refresh rate")
	// ErrNotConnected is returned by ServerShutdown without a stream.
	ErrNotConnected = errors.New("sim: not connected")
)

// ReceiverConfig describes the stream the simulated server offers.
type ReceiverConfig struct {
	Params           model.StreamParams
	ConnectDelay     time.Duration
	TrackingInterval time.Duration
	ServerAddr       string
	ServerPort       int
}

// Receiver pretends to discover a server and negotiate a stream after ConnectDelay.
type Receiver struct {
	cfg    ReceiverConfig
	events orchestrator.ReceiverEvents
	logger zerolog.Logger

	mu         sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	connected  bool
	errMsg     string
	sink       bool
	serverAddr string
	serverPort int
}

var _ orchestrator.Receiver = (*Receiver)(nil)

func NewReceiver(events orchestrator.ReceiverEvents, cfg ReceiverConfig) *Receiver {
	if cfg.TrackingInterval <= 0 {
		cfg.TrackingInterval = 100 * time.Millisecond
	}
	return &Receiver{
		cfg:        cfg,
		events:     events,
		logger:     rxlog.WithComponent("sim.receiver"),
		serverAddr: cfg.ServerAddr,
		serverPort: cfg.ServerPort,
	}
}

// Start validates the device and launches the connect goroutine.
func (r *Receiver) Start(ctx context.Context, graphics orchestrator.Handle, device orchestrator.DeviceInfo, _ orchestrator.Decoder) error {
	if device.PreferredRefreshHz() <= 0 {
		return ErrNoRefreshRate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return ErrAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.done = make(chan struct{})

	params := r.cfg.Params
	if params.RefreshHz <= 0 {
		params.RefreshHz = device.PreferredRefreshHz()
	}
	go r.run(runCtx, r.done, params)

	r.logger.Info().
		Uint64("graphics", uint64(graphics)).
		Str("device", device.Name).
		Int(rxlog.FieldRefreshHz, device.PreferredRefreshHz()).
		Msg("network worker started")
	return nil
}

func (r *Receiver) run(ctx context.Context, done chan struct{}, params model.StreamParams) {
	defer close(done)

	connect := time.NewTimer(r.cfg.ConnectDelay)
	defer connect.Stop()
	select {
	case <-connect.C:
	case <-ctx.Done():
		return
	}

	r.mu.Lock()
	r.connected = true
	r.errMsg = ""
	addr, port := r.serverAddr, r.serverPort
	r.mu.Unlock()

	r.logger.Info().
		Str(rxlog.FieldServerAddr, addr).
		Int(rxlog.FieldServerPort, port).
		Str(rxlog.FieldResolution, params.Resolution()).
		Msg("server connected")
	r.events.OnConnected(params)

	ticker := time.NewTicker(r.cfg.TrackingInterval)
	defer ticker.Stop()
	var n float32
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n++
			r.events.OnTracking(orchestrator.Tracking{
				Position:    [3]float32{0, 1.6, 0},
				Orientation: [4]float32{0, n / 1000, 0, 1},
			})
		}
	}
}

func (r *Receiver) StopAndWait(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	// A worker leaving a live stream reports where to reconnect.
	r.mu.Lock()
	wasConnected := r.connected
	r.connected = false
	addr, port := r.serverAddr, r.serverPort
	r.mu.Unlock()
	if wasConnected {
		r.events.OnShutdown(addr, port)
	}
	return nil
}

func (r *Receiver) SetSinkPrepared(prepared bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = prepared
}

// SinkPrepared returns the last value pushed by the orchestrator.
func (r *Receiver) SinkPrepared() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sink
}

func (r *Receiver) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

func (r *Receiver) CurrentErrorMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errMsg
}

// ResumeFromSavedEndpoint targets the last known server.
func (r *Receiver) ResumeFromSavedEndpoint(address string, port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.serverAddr, r.serverPort = address, port
}

// InjectError sets the live transport error until the next connect.
func (r *Receiver) InjectError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errMsg = msg
}

// ServerShutdown plays a server-initiated shutdown: the endpoint is reported
// for reconnection, then the stream drops.
func (r *Receiver) ServerShutdown() error {
	r.mu.Lock()
	if !r.connected {
		r.mu.Unlock()
		return ErrNotConnected
	}
	r.connected = false
	addr, port := r.serverAddr, r.serverPort
	r.mu.Unlock()

	r.events.OnShutdown(addr, port)
	r.events.OnDisconnect()
	return nil
}
