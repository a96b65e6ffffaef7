// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ServiceName: "ellier"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if provider.tp != nil {
		t.Error("Expected noop provider (tp == nil)")
	}

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	if span.IsRecording() {
		t.Error("Expected noop tracer span to be non-recording")
	}
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "ellier", ExporterType: "zipkin"})
	if err == nil {
		t.Fatal("Expected error for invalid exporter type")
	}
	if want := "unsupported exporter type: zipkin (supported: grpc, http)"; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased"},
	}
	for _, tt := range tests {
		desc := Sampler(tt.rate).Description()
		if !strings.Contains(desc, tt.want) {
			t.Errorf("Sampler(%g) = %q, want it to contain %q", tt.rate, desc, tt.want)
		}
	}
}

func TestProvider_ShutdownNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := (&Provider{}).Shutdown(ctx); err != nil {
		t.Errorf("Expected no error on noop shutdown, got: %v", err)
	}
	var nilProvider *Provider
	if err := nilProvider.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected nil provider shutdown to be a no-op, got: %v", err)
	}
}

func TestSessionAttributes(t *testing.T) {
	attrs := SessionAttributes("sess-1", "kept", 90*time.Second, 3)
	got := map[attribute.Key]attribute.Value{}
	for _, kv := range attrs {
		got[kv.Key] = kv.Value
	}
	if got[SessionIDKey].AsString() != "sess-1" {
		t.Errorf("session id = %v", got[SessionIDKey])
	}
	if got[SessionOutcomeKey].AsString() != "kept" {
		t.Errorf("outcome = %v", got[SessionOutcomeKey])
	}
	if got[SessionDurationKey].AsFloat64() != 90 {
		t.Errorf("duration = %v", got[SessionDurationKey])
	}
	if got[SessionChapterKey].AsInt64() != 3 {
		t.Errorf("chapters = %v", got[SessionChapterKey])
	}
}
