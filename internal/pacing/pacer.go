// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pacing decides when the next decoded frame may be presented.
package pacing

import "time"

// DefaultSafetyMargin is subtracted from the refresh interval so frames are
// handed to the display slightly ahead of the vsync deadline.
const DefaultSafetyMargin = 5 * time.Millisecond

// Pacer is a stateless frame-pacing policy.
type Pacer struct {
	Margin time.Duration
}

// New returns a pacer using margin; a negative margin is treated as zero.
func New(margin time.Duration) Pacer {
	if margin < 0 {
		margin = 0
	}
	return Pacer{Margin: margin}
}

// Interval is the minimum spacing between two presents at refreshHz.
func (p Pacer) Interval(refreshHz int) time.Duration {
	if refreshHz <= 0 {
		return 0
	}
	iv := time.Second/time.Duration(refreshHz) - p.Margin
	if iv < 0 {
		return 0
	}
	return iv
}

// Remaining returns how long until a present is permitted. Non-positive means now.
func (p Pacer) Remaining(nowNanos, lastPresentedNanos int64, refreshHz int) time.Duration {
	if refreshHz <= 0 {
		return 0
	}
	elapsed := time.Duration(nowNanos - lastPresentedNanos)
	return p.Interval(refreshHz) - elapsed
}

// TimeUntilNextFrame returns the milliseconds to wait before the next render
// attempt, or a value <= 0 meaning "go now". Positive remainders are rounded
// up so a sub-millisecond wait never reads as "go now".
func (p Pacer) TimeUntilNextFrame(nowNanos, lastPresentedNanos int64, refreshHz int) int64 {
	rem := p.Remaining(nowNanos, lastPresentedNanos, refreshHz)
	if rem <= 0 {
		return rem.Milliseconds()
	}
	return int64((rem + time.Millisecond - 1) / time.Millisecond)
}

// TimeUntilNextFrame applies the default safety margin.
func TimeUntilNextFrame(nowNanos, lastPresentedNanos int64, refreshHz int) int64 {
	return New(DefaultSafetyMargin).TimeUntilNextFrame(nowNanos, lastPresentedNanos, refreshHz)
}
