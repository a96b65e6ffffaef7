// SPDX-License-Identifier: MIT

package telemetry

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Broadcast attributes
	ChannelIDKey = "chzzk.channel_id"
	LiveTitleKey = "chzzk.live_title"

	// Session attributes
	SessionIDKey       = "session.id"
	SessionOutcomeKey  = "session.outcome"
	SessionDurationKey = "session.duration_s"
	SessionChapterKey  = "session.chapters"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// BroadcastAttributes identifies the live broadcast a span records.
func BroadcastAttributes(channelID, title string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ChannelIDKey, channelID),
		attribute.String(LiveTitleKey, title),
	}
}

// SessionAttributes describes a finished recording session.
func SessionAttributes(sessionID, outcome string, duration time.Duration, chapters int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SessionIDKey, sessionID),
		attribute.String(SessionOutcomeKey, outcome),
		attribute.Float64(SessionDurationKey, duration.Seconds()),
		attribute.Int(SessionChapterKey, chapters),
	}
}

// ErrorAttributes marks a span as failed in the named step.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
