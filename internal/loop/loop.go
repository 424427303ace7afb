// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package loop implements the single-threaded serialized task queue that owns
// all orchestrator state. Producers on any goroutine post tasks; tasks run one
// at a time, to completion, in FIFO post order.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	rxlog "github.com/ManuGH/streamrx/internal/log"
	"github.com/ManuGH/streamrx/internal/metrics"
	"github.com/rs/zerolog"
)

var (
	// ErrClosed is returned when posting to a loop that is shutting down.
	ErrClosed = errors.New("loop: closed")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("loop: already running")
)

// Clock abstracts time for scheduled tasks. AfterFunc returns a stop function
// reporting whether the timer was still pending.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Slot names a delayed task. At most one task per slot is outstanding.
type Slot string

// Scheduled describes the outstanding task of a slot.
type Scheduled struct {
	Slot Slot
	Name string
	Due  time.Time
}

type task struct {
	name string
	fn   func()
	slot Slot
	gen  uint64
}

type armed struct {
	gen  uint64
	name string
	due  time.Time
	stop func() bool
}

// Loop is a serialized executor. The zero value is not usable; call New.
type Loop struct {
	clock  Clock
	logger zerolog.Logger

	mu      sync.Mutex
	queue   []task
	slots   map[Slot]*armed
	gen     uint64
	closing bool

	wake     chan struct{}
	done     chan struct{}
	doneOnce sync.Once
	running  atomic.Bool

	lastRun atomic.Int64
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock replaces the wall clock, mainly for deterministic tests.
func WithClock(c Clock) Option {
	return func(l *Loop) { l.clock = c }
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// New creates an idle loop. Tasks may be posted before Run is called.
func New(opts ...Option) *Loop {
	l := &Loop{
		clock:  realClock{},
		logger: rxlog.WithComponent("loop"),
		slots:  make(map[Slot]*armed),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the loop clock's current time.
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Post appends fn to the queue. It never blocks the caller.
func (l *Loop) Post(name string, fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closing {
		return ErrClosed
	}
	l.enqueueLocked(task{name: name, fn: fn})
	return nil
}

// Schedule arms slot to run fn after delay. Any task already outstanding for
// the slot is cancelled first and will never run. A non-positive delay queues
// the task immediately, behind tasks already posted.
func (l *Loop) Schedule(slot Slot, delay time.Duration, name string, fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closing {
		return ErrClosed
	}
	l.cancelLocked(slot)

	l.gen++
	gen := l.gen
	a := &armed{gen: gen, name: name, due: l.clock.Now().Add(delay)}
	l.slots[slot] = a

	if delay <= 0 {
		l.enqueueLocked(task{name: name, fn: fn, slot: slot, gen: gen})
		return nil
	}
	a.stop = l.clock.AfterFunc(delay, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.closing {
			return
		}
		if cur, ok := l.slots[slot]; !ok || cur.gen != gen {
			return
		}
		l.enqueueLocked(task{name: name, fn: fn, slot: slot, gen: gen})
	})
	return nil
}

// Cancel drops the outstanding task of slot, if any. Returns true when a task was cancelled.
func (l *Loop) Cancel(slot Slot) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancelLocked(slot)
}

// Pending reports the outstanding task of slot.
func (l *Loop) Pending(slot Slot) (Scheduled, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.slots[slot]
	if !ok {
		return Scheduled{}, false
	}
	return Scheduled{Slot: slot, Name: a.name, Due: a.due}, true
}

// Outstanding returns every armed slot.
func (l *Loop) Outstanding() []Scheduled {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Scheduled, 0, len(l.slots))
	for slot, a := range l.slots {
		out = append(out, Scheduled{Slot: slot, Name: a.name, Due: a.due})
	}
	return out
}

// QueueLen returns the number of tasks waiting to run.
func (l *Loop) QueueLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Shutdown posts the shutdown task. Tasks posted before it still run; posts
// after it fail with ErrClosed. When the shutdown task runs, every armed slot
// is cancelled and Run returns. Safe to call from inside a task.
func (l *Loop) Shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closing {
		return
	}
	l.closing = true
	l.queue = append(l.queue, task{name: "loop.shutdown", fn: l.finish})
	l.signal()
}

// Done is closed once the shutdown task has run.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// LastActivity returns the completion time of the most recent task.
func (l *Loop) LastActivity() time.Time {
	ns := l.lastRun.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Call posts fn and waits for it to complete. It must not be called from a task.
func (l *Loop) Call(ctx context.Context, name string, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(name, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return fmt.Errorf("loop: %s: %w", name, ctx.Err())
	}
}

// Run executes tasks until the shutdown task runs or ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	l.logger.Debug().Str("event", "loop.started").Msg("serialized loop started")
	for {
		for l.runNext() {
			select {
			case <-l.done:
				l.logger.Debug().Str("event", "loop.stopped").Msg("serialized loop stopped")
				return nil
			default:
			}
		}
		select {
		case <-l.done:
			return nil
		case <-ctx.Done():
			l.abandon()
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Drain runs queued tasks on the calling goroutine until the queue is empty.
// Intended for tests driving the loop with a manual clock; it must not be used
// while Run is active.
func (l *Loop) Drain() int {
	n := 0
	for l.runNext() {
		n++
	}
	return n
}

func (l *Loop) runNext() bool {
	l.mu.Lock()
	if len(l.queue) == 0 {
		l.mu.Unlock()
		return false
	}
	t := l.queue[0]
	l.queue[0] = task{}
	l.queue = l.queue[1:]
	metrics.LoopQueueDepth.Set(float64(len(l.queue)))

	if t.slot != "" {
		a, ok := l.slots[t.slot]
		if !ok || a.gen != t.gen {
			l.mu.Unlock()
			return true
		}
		delete(l.slots, t.slot)
	}
	l.mu.Unlock()

	l.execute(t)
	return true
}

func (l *Loop) execute(t task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().
				Str("event", "loop.task_panic").
				Str(rxlog.FieldTask, t.name).
				Interface("panic", r).
				Msg("task panicked, loop continues")
		}
		metrics.LoopTaskDuration.Observe(time.Since(start).Seconds())
		l.lastRun.Store(l.clock.Now().UnixNano())
	}()
	t.fn()
}

func (l *Loop) finish() {
	l.mu.Lock()
	for slot := range l.slots {
		l.cancelLocked(slot)
	}
	dropped := len(l.queue)
	l.queue = nil
	l.mu.Unlock()

	if dropped > 0 {
		l.logger.Warn().Int("dropped", dropped).Msg("tasks queued behind shutdown were dropped")
	}
	l.closeDone()
}

func (l *Loop) abandon() {
	l.mu.Lock()
	l.closing = true
	for slot := range l.slots {
		l.cancelLocked(slot)
	}
	l.queue = nil
	l.mu.Unlock()
	l.closeDone()
}

func (l *Loop) closeDone() {
	l.doneOnce.Do(func() { close(l.done) })
}

func (l *Loop) enqueueLocked(t task) {
	l.queue = append(l.queue, t)
	metrics.LoopQueueDepth.Set(float64(len(l.queue)))
	l.signal()
}

func (l *Loop) cancelLocked(slot Slot) bool {
	a, ok := l.slots[slot]
	if !ok {
		return false
	}
	if a.stop != nil {
		a.stop()
	}
	delete(l.slots, slot)
	metrics.LoopTasksCancelledTotal.Inc()
	return true
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
