// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model holds the orchestrator-owned records. Values in this package
// are mutated only from the serialized loop.
package model

import (
	"fmt"
	"time"
)

// ConnState is the connection state of a Session.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// Codec identifies the negotiated video codec.
type Codec int

const (
	CodecH264 Codec = iota
	CodecH265
)

func (c Codec) String() string {
	switch c {
	case CodecH264:
		return "h264"
	case CodecH265:
		return "h265"
	default:
		return fmt.Sprintf("codec(%d)", int(c))
	}
}

// StreamParams are the values negotiated by the network worker on connect.
type StreamParams struct {
	Width          int
	Height         int
	Codec          Codec
	FrameQueueSize int
	RefreshHz      int
}

// Resolution formats the frame geometry for logs.
func (p StreamParams) Resolution() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

// Session is one active or pending connection to a streaming source.
type Session struct {
	ID           string
	Generation   uint64
	State        ConnState
	ErrorMessage string
	Params       StreamParams
	ConnectedAt  time.Time
}

// NewSession returns a disconnected session.
func NewSession(id string, generation uint64) Session {
	return Session{ID: id, Generation: generation, State: StateDisconnected}
}

// HasError reports whether a transport error is pending.
func (s Session) HasError() bool {
	return s.ErrorMessage != ""
}

// Streaming reports whether frames may be presented: connected and error-free.
func (s Session) Streaming() bool {
	return s.State == StateConnected && !s.HasError()
}

// DisplayState tracks the two independent readiness inputs of the output path.
type DisplayState struct {
	PresentationActive bool `json:"presentation_active"`
	DecoderPrepared    bool `json:"decoder_prepared"`
}

// SinkPrepared is the effective "ready to stream" condition.
func (d DisplayState) SinkPrepared() bool {
	return d.PresentationActive && d.DecoderPrepared
}
