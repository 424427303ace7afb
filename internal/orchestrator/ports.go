// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"context"

	"github.com/ManuGH/streamrx/internal/domain/session/model"
)

// Handle is an opaque reference to a platform object (graphics context,
// output surface) that the orchestrator passes along without interpreting.
type Handle uint64

// DeviceInfo describes display capabilities queried before the network worker starts.
type DeviceInfo struct {
	Name         string
	RefreshRates []int
	EyeWidth     int
	EyeHeight    int
}

// PreferredRefreshHz is the first advertised refresh rate, or 0.
func (d DeviceInfo) PreferredRefreshHz() int {
	if len(d.RefreshRates) == 0 {
		return 0
	}
	return d.RefreshRates[0]
}

// Tracking is one head-pose sample.
type Tracking struct {
	Position    [3]float32
	Orientation [4]float32
}

// Hand selects the controller a haptics pulse is sent to.
type Hand int

const (
	HandLeft Hand = iota
	HandRight
)

// Haptics is one haptics feedback request from the host.
type Haptics struct {
	StartTimeMicros int64
	Amplitude       float32
	Duration        float32
	Frequency       float32
	Hand            Hand
}

// DecoderEvents is the callback surface a decode worker reports to.
// Implementations only post tasks; they may be invoked from any goroutine.
type DecoderEvents interface {
	OnPrepared()
	OnDestroyed()
	OnFrameDecoded()
	// OnFrameAvailable signals that decoded output reached the surface.
	OnFrameAvailable()
}

// Decoder is the hardware decode worker.
type Decoder interface {
	Start(ctx context.Context) error
	// StopAndWait blocks until the worker has fully stopped. It must not wait
	// for pending frames to be consumed.
	StopAndWait(ctx context.Context) error
	NotifyConnect(codec model.Codec, frameQueueSize int)
	NotifyDisconnect()
	NotifyFrameAvailable()
	// ClaimLatestFrame returns the newest decoded frame or model.NoFrame.
	// Ownership of the claimed buffer passes to the caller until ReleaseBuffer.
	ClaimLatestFrame(surface Handle) model.FrameIndex
	ReleaseBuffer()
	// DiscardStaleFrames drops output older than the newest frame and reports
	// whether anything was dropped.
	DiscardStaleFrames(surface Handle) bool
}

// ReceiverEvents is the callback surface of the network worker.
type ReceiverEvents interface {
	OnConnected(params model.StreamParams)
	OnChangeSettings(suspend bool, frameQueueSize int)
	OnShutdown(serverAddr string, serverPort int)
	OnDisconnect()
	OnTracking(t Tracking)
	OnHapticsFeedback(h Haptics)
}

// Receiver is the network ingest worker.
type Receiver interface {
	Start(ctx context.Context, graphics Handle, device DeviceInfo, output Decoder) error
	StopAndWait(ctx context.Context) error
	SetSinkPrepared(prepared bool)
	IsConnected() bool
	// CurrentErrorMessage returns the live transport error, or "".
	CurrentErrorMessage() string
	ResumeFromSavedEndpoint(address string, port int)
}

// Display is the rendering layer.
type Display interface {
	Initialize(ctx context.Context) error
	Destroy()
	Resume()
	Pause()

	DeviceInfo() DeviceInfo
	GraphicsContext() Handle
	Surface() Handle
	// FlushPendingOutput consumes output left on the surface by a previous
	// decoder so the next one gets its frame-available callbacks.
	FlushPendingOutput()

	ApplyRefreshRate(hz int)
	ApplyFrameGeometry(width, height int)
	ChangeSettings(suspend bool, frameQueueSize int)

	RenderFrame(idx model.FrameIndex)
	RenderPlaceholder(text string)
	IsPresentationModeActive() bool
	// ConfirmPressed reports a confirm button press since the last call.
	ConfirmPressed() bool

	ForwardTracking(t Tracking)
	ForwardHaptics(h Haptics)

	SurfaceCreated(surface Handle)
	SurfaceChanged(surface Handle, width, height int)
	SurfaceDestroyed()
}

// Launcher is the side-channel socket used to start the streaming server remotely.
type Launcher interface {
	Listen() error
	Close() error
	IsConnected() bool
	SendCommand(ctx context.Context, name string) error
}

// Factories create a fresh worker per session.
type (
	DecoderFactory  func(events DecoderEvents) Decoder
	ReceiverFactory func(events ReceiverEvents) Receiver
	LauncherFactory func(onConnect func()) Launcher
)
