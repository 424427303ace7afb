// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"time"
)

// LoopChecker reports unhealthy when the serialized task loop does not run a
// heartbeat task within Bound. Probe must post a no-op task and wait for it.
type LoopChecker struct {
	Probe func(ctx context.Context) error
	Bound time.Duration
}

func NewLoopChecker(probe func(ctx context.Context) error, bound time.Duration) *LoopChecker {
	if bound <= 0 {
		bound = time.Second
	}
	return &LoopChecker{Probe: probe, Bound: bound}
}

func (c *LoopChecker) Name() string { return "render_loop" }

func (c *LoopChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.Bound)
	defer cancel()

	start := time.Now()
	if err := c.Probe(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Error:   err.Error(),
			Message: fmt.Sprintf("heartbeat not processed within %s", c.Bound),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("heartbeat processed in %s", time.Since(start).Round(time.Microsecond)),
	}
}

// SessionView is the part of a session snapshot the checker needs.
type SessionView struct {
	State        string
	ErrorMessage string
}

// SessionChecker reports degraded while the session carries an error message.
type SessionChecker struct {
	snapshot func(ctx context.Context) (SessionView, error)
}

func NewSessionChecker(snapshot func(ctx context.Context) (SessionView, error)) *SessionChecker {
	return &SessionChecker{snapshot: snapshot}
}

func (c *SessionChecker) Name() string { return "session" }

func (c *SessionChecker) Check(ctx context.Context) CheckResult {
	view, err := c.snapshot(ctx)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if view.ErrorMessage != "" {
		return CheckResult{
			Status:  StatusDegraded,
			Error:   view.ErrorMessage,
			Message: "session " + view.State,
		}
	}
	return CheckResult{Status: StatusHealthy, Message: "session " + view.State}
}

// FuncChecker adapts a plain error-returning probe, e.g. a store integrity check.
type FuncChecker struct {
	name string
	fn   func(ctx context.Context) error
}

func NewFuncChecker(name string, fn func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, fn: fn}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) CheckResult {
	if err := c.fn(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}
