// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sim

import (
	"context"
	"strings"
	"sync"

	"github.com/ManuGH/streamrx/internal/domain/session/model"
	rxlog "github.com/ManuGH/streamrx/internal/log"
	"github.com/ManuGH/streamrx/internal/orchestrator"
	"github.com/rs/zerolog"
)

// DisplayConfig describes the simulated headset.
type DisplayConfig struct {
	Name         string
	RefreshRates []int
	EyeWidth     int
	EyeHeight    int
	// OnPresentationChange is called when presentation mode is entered or left.
	OnPresentationChange func(enter bool)
}

// Display logs what would be drawn and tracks presentation mode. Presentation
// mode follows Resume and Pause.
type Display struct {
	cfg    DisplayConfig
	logger zerolog.Logger
	frames zerolog.Logger

	mu           sync.Mutex
	initialized  bool
	presenting   bool
	confirm      bool
	surface      orchestrator.Handle
	lastText     string
	presented    int
	lastFrame    model.FrameIndex
	refreshHz    int
	width        int
	height       int
	trackingSeen int
}

var _ orchestrator.Display = (*Display)(nil)

func NewDisplay(cfg DisplayConfig) *Display {
	if cfg.Name == "" {
		cfg.Name = "sim-hmd"
	}
	logger := rxlog.WithComponent("sim.display")
	// One line per second at 72 Hz is enough to follow presentation.
	frames := logger.Sample(&zerolog.BasicSampler{N: 72})
	return &Display{
		cfg:       cfg,
		logger:    logger,
		frames:    frames,
		lastFrame: model.NoFrame,
	}
}

func (d *Display) Initialize(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = true
	d.logger.Info().Str("device", d.cfg.Name).Msg("display initialized")
	return nil
}

func (d *Display) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = false
	d.logger.Info().Msg("display destroyed")
}

func (d *Display) Resume() { d.setPresenting(true) }
func (d *Display) Pause()  { d.setPresenting(false) }

func (d *Display) setPresenting(enter bool) {
	d.mu.Lock()
	changed := d.presenting != enter
	d.presenting = enter
	d.mu.Unlock()
	if changed && d.cfg.OnPresentationChange != nil {
		d.cfg.OnPresentationChange(enter)
	}
}

func (d *Display) DeviceInfo() orchestrator.DeviceInfo {
	return orchestrator.DeviceInfo{
		Name:         d.cfg.Name,
		RefreshRates: append([]int(nil), d.cfg.RefreshRates...),
		EyeWidth:     d.cfg.EyeWidth,
		EyeHeight:    d.cfg.EyeHeight,
	}
}

func (d *Display) GraphicsContext() orchestrator.Handle { return 1 }

func (d *Display) Surface() orchestrator.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.surface
}

func (d *Display) FlushPendingOutput() {}

func (d *Display) ApplyRefreshRate(hz int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshHz = hz
	d.logger.Debug().Int(rxlog.FieldRefreshHz, hz).Msg("refresh rate applied")
}

func (d *Display) ApplyFrameGeometry(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.width, d.height = width, height
	d.logger.Debug().Int("width", width).Int("height", height).Msg("frame geometry applied")
}

func (d *Display) ChangeSettings(suspend bool, frameQueueSize int) {
	d.logger.Debug().Bool("suspend", suspend).Int(rxlog.FieldQueueSize, frameQueueSize).Msg("settings changed")
}

func (d *Display) RenderFrame(idx model.FrameIndex) {
	d.mu.Lock()
	d.presented++
	d.lastFrame = idx
	d.mu.Unlock()
	d.frames.Debug().Int64(rxlog.FieldFrameIndex, int64(idx)).Msg("frame presented")
}

func (d *Display) RenderPlaceholder(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if text == d.lastText {
		return
	}
	d.lastText = text
	d.logger.Info().Str("text", strings.ReplaceAll(text, "\n", " | ")).Msg("placeholder")
}

func (d *Display) IsPresentationModeActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presenting
}

// PressConfirm queues a confirm button press for the next ConfirmPressed call.
func (d *Display) PressConfirm() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.confirm = true
}

func (d *Display) ConfirmPressed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	pressed := d.confirm
	d.confirm = false
	return pressed
}

func (d *Display) ForwardTracking(orchestrator.Tracking) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.trackingSeen++
}

func (d *Display) ForwardHaptics(h orchestrator.Haptics) {
	d.logger.Debug().Int("hand", int(h.Hand)).Float32("amplitude", h.Amplitude).Msg("haptics")
}

func (d *Display) SurfaceCreated(surface orchestrator.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.surface = surface
}

func (d *Display) SurfaceChanged(surface orchestrator.Handle, width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.surface = surface
	d.logger.Debug().Int("width", width).Int("height", height).Msg("surface changed")
}

func (d *Display) SurfaceDestroyed() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.surface = 0
}

// Stats is a snapshot of what the display has shown.
type Stats struct {
	Presented   int              `json:"presented"`
	LastFrame   model.FrameIndex `json:"last_frame"`
	Placeholder string           `json:"placeholder,omitempty"`
	Presenting  bool             `json:"presenting"`
	RefreshHz   int              `json:"refresh_hz"`
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	Tracking    int              `json:"tracking"`
	Surface     uint64           `json:"surface"`
}

func (d *Display) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Presented:   d.presented,
		LastFrame:   d.lastFrame,
		Placeholder: d.lastText,
		Presenting:  d.presenting,
		RefreshHz:   d.refreshHz,
		Width:       d.width,
		Height:      d.height,
		Tracking:    d.trackingSeen,
		Surface:     uint64(d.surface),
	}
}
