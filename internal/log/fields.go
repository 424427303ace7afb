// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Field names shared by every log line the receiver writes.
const (
	FieldService   = "service"
	FieldVersion   = "version"
	FieldComponent = "component"

	FieldSessionID = "session_id"
	FieldTask      = "task"
	FieldRequestID = "request_id"
	FieldEvent     = "event"
	FieldWorker    = "worker"

	FieldCodec      = "codec"
	FieldResolution = "resolution"
	FieldRefreshHz  = "refresh_hz"
	FieldFrameIndex = "frame_index"
	FieldQueueSize  = "frame_queue_size"

	FieldOldState = "old_state"
	FieldNewState = "new_state"

	FieldServerAddr = "server_addr"
	FieldServerPort = "server_port"
)
