// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resilience guards calls to flaky peers.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/streamrx/internal/metrics"
)

// ErrOpen is returned without calling the peer while the breaker is open.
var ErrOpen = errors.New("resilience: breaker open")

// State is the externally visible breaker position.
type State string

const (
	StateClosed   State = "closed"
	StateHalfOpen State = "half-open"
	StateOpen     State = "open"
)

// Policy tunes when the breaker opens and how long it stays open.
type Policy struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int
	// Cooldown is how long the breaker rejects calls before admitting a probe.
	Cooldown time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.Threshold <= 0 {
		p.Threshold = 3
	}
	if p.Cooldown <= 0 {
		p.Cooldown = 30 * time.Second
	}
	return p
}

// Clock is the time source; loop and test clocks satisfy it.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Option customizes a Breaker.
type Option func(*Breaker)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(b *Breaker) { b.clock = c }
}

// Breaker counts consecutive peer failures. Once Threshold is reached it
// rejects calls for Cooldown, then lets exactly one probe through; the probe's
// outcome closes or re-opens it.
type Breaker struct {
	name   string
	policy Policy
	clock  Clock

	mu        sync.Mutex
	failures  int
	openUntil time.Time // zero while closed
	probing   bool
	published State
}

// NewBreaker returns a closed breaker named name.
func NewBreaker(name string, policy Policy, opts ...Option) *Breaker {
	b := &Breaker{
		name:   name,
		policy: policy.withDefaults(),
		clock:  wallClock{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.publish(StateClosed)
	return b
}

// Do calls fn unless the breaker is open. A cancelled context is not held
// against the peer.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.settle(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case StateOpen:
		return ErrOpen
	case StateHalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		b.publish(StateHalfOpen)
	}
	return nil
}

func (b *Breaker) settle(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasProbe := b.probing
	b.probing = false

	switch {
	case err == nil:
		b.closeLocked()
	case errors.Is(err, context.Canceled):
	case wasProbe:
		metrics.IncBreakerTrip(b.name, metrics.TripProbeFailed)
		b.openLocked()
	default:
		b.failures++
		if b.openUntil.IsZero() && b.failures >= b.policy.Threshold {
			metrics.IncBreakerTrip(b.name, metrics.TripThreshold)
			b.openLocked()
		}
	}
}

// Reset closes the breaker, e.g. after a fresh peer attached.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	b.closeLocked()
}

// State reports the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Breaker) stateLocked() State {
	switch {
	case b.openUntil.IsZero():
		return StateClosed
	case b.probing || !b.clock.Now().Before(b.openUntil):
		return StateHalfOpen
	default:
		return StateOpen
	}
}

func (b *Breaker) openLocked() {
	b.openUntil = b.clock.Now().Add(b.policy.Cooldown)
	b.publish(StateOpen)
}

func (b *Breaker) closeLocked() {
	b.failures = 0
	b.openUntil = time.Time{}
	b.publish(StateClosed)
}

func (b *Breaker) publish(s State) {
	if b.published == s {
		return
	}
	b.published = s
	metrics.SetBreakerState(b.name, string(s))
}
