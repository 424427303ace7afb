// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// FrameIndex is the opaque handle of a decoded frame.
type FrameIndex int64

// NoFrame is returned by a claim when nothing is pending.
const NoFrame FrameIndex = -1

// PresentationClock records when the last frame was presented, in loop-relative
// monotonic nanoseconds.
type PresentationClock struct {
	lastNanos int64
	presented bool
}

// MarkPresented records a present at nanos.
func (c *PresentationClock) MarkPresented(nanos int64) {
	c.lastNanos = nanos
	c.presented = true
}

// Reset returns the clock to "never presented".
func (c *PresentationClock) Reset() {
	*c = PresentationClock{}
}

// LastPresented returns the last present time and whether one happened.
func (c PresentationClock) LastPresented() (int64, bool) {
	return c.lastNanos, c.presented
}

// ClaimGuard enforces that presented frame indices never go backwards within a session.
type ClaimGuard struct {
	last FrameIndex
	has  bool
}

// Admit reports whether idx may be presented and records it when it may.
func (g *ClaimGuard) Admit(idx FrameIndex) bool {
	if idx < 0 {
		return false
	}
	if g.has && idx < g.last {
		return false
	}
	g.last = idx
	g.has = true
	return true
}

// Last returns the most recently admitted index, or NoFrame.
func (g ClaimGuard) Last() FrameIndex {
	if !g.has {
		return NoFrame
	}
	return g.last
}

// Reset forgets the admitted history; used when a new session starts.
func (g *ClaimGuard) Reset() {
	*g = ClaimGuard{}
}
