// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID   = "session_id"
	FieldChannelID   = "channel_id"
	FieldChannelName = "channel_name"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"
	FieldExitCode  = "exit_code"
	FieldProcess   = "process"

	// Broadcast fields
	FieldTitle    = "title"
	FieldCategory = "category"
	FieldElapsed  = "elapsed"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath      = "path"
	FieldOutputDir = "output_dir"
	FieldBaseURL   = "base_url"
)
