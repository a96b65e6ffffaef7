// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextWithSessionID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		sessionID string
		want      string
	}{
		{name: "nil context", ctx: nil, sessionID: "sess-123", want: "sess-123"},
		{name: "background context", ctx: context.Background(), sessionID: "sess-456", want: "sess-456"},
		{name: "empty session ID", ctx: context.Background(), sessionID: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithSessionID(tt.ctx, tt.sessionID)
			if got := SessionIDFromContext(ctx); got != tt.want {
				t.Errorf("SessionIDFromContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromContextNil(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	if l := FromContext(nil); l == nil {
		t.Fatal("expected base logger for nil context")
	}
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := ContextWithChannelID(context.Background(), "chan-1")
	ctx = ContextWithSessionID(ctx, "sess-1")

	l := WithContext(ctx, base)
	l.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}
	if entry[FieldChannelID] != "chan-1" {
		t.Errorf("channel_id = %v, want chan-1", entry[FieldChannelID])
	}
	if entry[FieldSessionID] != "sess-1" {
		t.Errorf("session_id = %v, want sess-1", entry[FieldSessionID])
	}
}

func TestWithContextWithoutFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	l := WithContext(context.Background(), base)
	l.Info().Msg("plain")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}
	if _, ok := entry[FieldSessionID]; ok {
		t.Error("did not expect session_id field")
	}
}
