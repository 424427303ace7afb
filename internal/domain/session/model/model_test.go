// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisplayState_SinkPrepared(t *testing.T) {
	tests := []struct {
		presentation bool
		decoder      bool
		want         bool
	}{
		{false, false, false},
		{true, false, false},
		{false, true, false},
		{true, true, true},
	}
	for _, tt := range tests {
		d := DisplayState{PresentationActive: tt.presentation, DecoderPrepared: tt.decoder}
		require.Equal(t, tt.want, d.SinkPrepared(), "presentation=%v decoder=%v", tt.presentation, tt.decoder)
	}
}

func TestSession_Streaming(t *testing.T) {
	s := NewSession("a", 1)
	require.False(t, s.Streaming())
	s.State = StateConnected
	require.True(t, s.Streaming())
	s.ErrorMessage = "link lost"
	require.False(t, s.Streaming())
	require.True(t, s.HasError())
}

func TestClaimGuard_Monotonic(t *testing.T) {
	var g ClaimGuard
	require.Equal(t, NoFrame, g.Last())
	require.False(t, g.Admit(NoFrame))
	require.True(t, g.Admit(3))
	require.True(t, g.Admit(3))
	require.True(t, g.Admit(7))
	require.False(t, g.Admit(5))
	require.Equal(t, FrameIndex(7), g.Last())

	g.Reset()
	require.True(t, g.Admit(0))
}

func TestPresentationClock(t *testing.T) {
	var c PresentationClock
	_, ok := c.LastPresented()
	require.False(t, ok)
	c.MarkPresented(42)
	last, ok := c.LastPresented()
	require.True(t, ok)
	require.Equal(t, int64(42), last)
	c.Reset()
	_, ok = c.LastPresented()
	require.False(t, ok)
}

func TestCodecString(t *testing.T) {
	require.Equal(t, "h264", CodecH264.String())
	require.Equal(t, "h265", CodecH265.String())
	require.Equal(t, "codec(9)", Codec(9).String())
	require.Equal(t, "1920x1080", StreamParams{Width: 1920, Height: 1080}.Resolution())
}
