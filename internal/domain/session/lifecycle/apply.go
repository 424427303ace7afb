// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/streamrx/internal/domain/session/model"
)

// ErrIllegalTransition is returned when an event is not accepted in the current state.
var ErrIllegalTransition = errors.New("illegal session transition")

// Result describes the effect of an applied event.
type Result struct {
	From         model.ConnState
	To           model.ConnState
	ErrorCleared bool
	ErrorSet     bool
}

// Changed reports whether the connection state moved.
func (r Result) Changed() bool {
	return r.From != r.To
}

// Apply mutates s according to ev. On an illegal transition s is left untouched.
func Apply(s *model.Session, ev Event, now time.Time) (Result, error) {
	res := Result{From: s.State, To: s.State}

	if ev.Kind == EvError {
		if ev.Message != "" && ev.Message != s.ErrorMessage {
			s.ErrorMessage = ev.Message
			res.ErrorSet = true
		}
		return res, nil
	}

	d := DecisionFor(s.State, ev.Kind)
	if !d.Allowed {
		return res, fmt.Errorf("%w: %s", ErrIllegalTransition, d.Reason)
	}

	s.State = d.To
	res.To = d.To

	switch ev.Kind {
	case EvConnected:
		// Only a fresh successful connection clears the error flag.
		res.ErrorCleared = s.ErrorMessage != ""
		s.ErrorMessage = ""
		s.Params = ev.Params
		s.ConnectedAt = now
	case EvDisconnected, EvTeardown:
		s.Params = model.StreamParams{}
		s.ConnectedAt = time.Time{}
	}
	return res, nil
}
