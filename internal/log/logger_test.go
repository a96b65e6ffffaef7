// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestReconfigureAppliesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "debug", Output: &buf, Service: "ellier-test", Version: "v0.0.0"})
	t.Cleanup(func() { Reconfigure(Config{}) })

	l := WithComponent("supervisor")
	l.Debug().Str(FieldEvent, "test.event").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v (raw=%q)", err, buf.String())
	}
	if entry["service"] != "ellier-test" {
		t.Errorf("service = %v", entry["service"])
	}
	if entry[FieldComponent] != "supervisor" {
		t.Errorf("component = %v", entry[FieldComponent])
	}
	if entry["version"] != "v0.0.0" {
		t.Errorf("version = %v", entry["version"])
	}
}

func TestReconfigureUsesLocationForTimestamps(t *testing.T) {
	var buf bytes.Buffer
	kst := time.FixedZone("+09:00", 9*3600)
	Reconfigure(Config{Output: &buf, Location: kst})
	t.Cleanup(func() { Reconfigure(Config{Location: time.Local}) })

	Base().Info().Msg("tz")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ts, _ := entry["time"].(string)
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t.Fatalf("parse timestamp %q: %v", ts, err)
	}
	if _, offset := parsed.Zone(); offset != 9*3600 {
		t.Errorf("timestamp offset = %d, want %d", offset, 9*3600)
	}
}
