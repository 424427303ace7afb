// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

import "github.com/ManuGH/streamrx/internal/domain/session/model"

// Transition is a single allowed edge in the lifecycle state machine.
type Transition struct {
	From  model.ConnState
	To    model.ConnState
	Event EventKind
}

// Decision records whether a transition is allowed and why it is forbidden.
type Decision struct {
	Allowed bool
	To      model.ConnState
	Reason  string
}

var transitionsTable = []Transition{
	// Start path
	{From: model.StateDisconnected, To: model.StateConnecting, Event: EvStartRequested},
	{From: model.StateConnecting, To: model.StateConnected, Event: EvConnected},

	// The network worker keeps listening after a disconnect and may reconnect on its own.
	{From: model.StateDisconnected, To: model.StateConnected, Event: EvConnected},
	// Renegotiation while streaming.
	{From: model.StateConnected, To: model.StateConnected, Event: EvConnected},

	{From: model.StateConnected, To: model.StateDisconnected, Event: EvDisconnected},
	{From: model.StateConnecting, To: model.StateDisconnected, Event: EvDisconnected},
	{From: model.StateDisconnected, To: model.StateDisconnected, Event: EvDisconnected},

	{From: model.StateDisconnected, To: model.StateDisconnected, Event: EvTeardown},
	{From: model.StateConnecting, To: model.StateDisconnected, Event: EvTeardown},
	{From: model.StateConnected, To: model.StateDisconnected, Event: EvTeardown},
}

// TransitionFor returns the allowed transition for a given state+event.
func TransitionFor(from model.ConnState, ev EventKind) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}

// DecisionFor explains whether ev is accepted in state from.
func DecisionFor(from model.ConnState, ev EventKind) Decision {
	if ev == EvError {
		return Decision{Allowed: true, To: from, Reason: "error flag is orthogonal to state"}
	}
	if tr, ok := TransitionFor(from, ev); ok {
		return Decision{Allowed: true, To: tr.To}
	}
	switch {
	case from == model.StateConnecting && ev == EvStartRequested,
		from == model.StateConnected && ev == EvStartRequested:
		return Decision{Reason: "network worker already active"}
	default:
		return Decision{Reason: "no transition for " + string(from) + " + " + ev.String()}
	}
}
