// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sim

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/streamrx/internal/config"
	"github.com/ManuGH/streamrx/internal/domain/session/model"
	"github.com/ManuGH/streamrx/internal/orchestrator"
)

// Rig builds simulated collaborators from configuration and keeps a handle on
// the current session's workers for the debug endpoints.
type Rig struct {
	Display *Display

	decodeFPS int
	receiver  ReceiverConfig

	mu      sync.Mutex
	current *Receiver
	decoder *Decoder
}

// NewRig returns a rig for cfg. onPresentation receives presentation mode changes.
func NewRig(cfg config.SimConfig, serverAddr string, serverPort int, onPresentation func(bool)) (*Rig, error) {
	codec, err := ParseCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}
	return &Rig{
		Display: NewDisplay(DisplayConfig{
			Name:                 "sim-hmd",
			RefreshRates:         []int{cfg.RefreshHz},
			EyeWidth:             cfg.Width / 2,
			EyeHeight:            cfg.Height,
			OnPresentationChange: onPresentation,
		}),
		decodeFPS: cfg.DecodeFPS,
		receiver: ReceiverConfig{
			Params: model.StreamParams{
				Width:          cfg.Width,
				Height:         cfg.Height,
				Codec:          codec,
				FrameQueueSize: cfg.FrameQueueSize,
				RefreshHz:      cfg.RefreshHz,
			},
			ConnectDelay:     cfg.ConnectDelay,
			TrackingInterval: 100 * time.Millisecond,
			ServerAddr:       serverAddr,
			ServerPort:       serverPort,
		},
	}, nil
}

// simSurface is the window handle the rig hands out.
const simSurface orchestrator.Handle = 1

// SurfaceSink receives platform window callbacks.
type SurfaceSink interface {
	SurfaceCreated(surface orchestrator.Handle)
	SurfaceChanged(surface orchestrator.Handle, width, height int)
	SurfaceDestroyed()
}

// AttachSurface plays the platform window appearing: created, then sized to
// hold both eyes side by side.
func (r *Rig) AttachSurface(sink SurfaceSink) {
	dev := r.Display.DeviceInfo()
	sink.SurfaceCreated(simSurface)
	sink.SurfaceChanged(simSurface, dev.EyeWidth*2, dev.EyeHeight)
}

// DetachSurface plays the platform window going away.
func (r *Rig) DetachSurface(sink SurfaceSink) {
	sink.SurfaceDestroyed()
}

// ParseCodec maps a configured codec name to a model.Codec.
func ParseCodec(name string) (model.Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "h264", "avc":
		return model.CodecH264, nil
	case "h265", "hevc":
		return model.CodecH265, nil
	default:
		return 0, fmt.Errorf("sim: unknown codec %q", name)
	}
}

func (r *Rig) NewDecoder(events orchestrator.DecoderEvents) orchestrator.Decoder {
	d := NewDecoder(events, r.decodeFPS)
	r.mu.Lock()
	r.decoder = d
	r.mu.Unlock()
	return d
}

func (r *Rig) NewReceiver(events orchestrator.ReceiverEvents) orchestrator.Receiver {
	rc := NewReceiver(events, r.receiver)
	r.mu.Lock()
	r.current = rc
	r.mu.Unlock()
	return rc
}

// Receiver returns the receiver of the most recent session, or nil.
func (r *Rig) Receiver() *Receiver {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// DroppedFrames returns how many frames the current decoder overwrote unclaimed.
func (r *Rig) DroppedFrames() int {
	r.mu.Lock()
	d := r.decoder
	r.mu.Unlock()
	if d == nil {
		return 0
	}
	return d.Dropped()
}
