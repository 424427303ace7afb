// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import "errors"

var (
	// ErrAlreadyActive is returned when Start is called twice.
	ErrAlreadyActive = errors.New("orchestrator: session already active")
	// ErrNotActive is returned by pause when no worker pair is running.
	ErrNotActive = errors.New("orchestrator: no active session")
	// ErrReceiverStart wraps a network worker start failure.
	ErrReceiverStart = errors.New("orchestrator: network worker failed to start")
	// ErrDecoderStart wraps a decode worker start failure.
	ErrDecoderStart = errors.New("orchestrator: decode worker failed to start")
)
