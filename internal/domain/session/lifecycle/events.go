// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package lifecycle is the Session connection state machine.
package lifecycle

import "github.com/ManuGH/streamrx/internal/domain/session/model"

// EventKind enumerates the inputs of the state machine.
type EventKind int

const (
	// EvStartRequested: the network worker started and is looking for a server.
	EvStartRequested EventKind = iota
	// EvConnected: the network worker negotiated a stream.
	EvConnected
	// EvDisconnected: the network worker lost or closed the stream.
	EvDisconnected
	// EvTeardown: the worker pair is being stopped.
	EvTeardown
	// EvError: the network worker reports a live error message. Orthogonal to state.
	EvError
)

func (k EventKind) String() string {
	switch k {
	case EvStartRequested:
		return "start_requested"
	case EvConnected:
		return "connected"
	case EvDisconnected:
		return "disconnected"
	case EvTeardown:
		return "teardown"
	case EvError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one input to Apply.
type Event struct {
	Kind    EventKind
	Params  model.StreamParams // EvConnected only
	Message string             // EvError only
}
