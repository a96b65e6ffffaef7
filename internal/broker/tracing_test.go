// SPDX-License-Identifier: MIT

package broker

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/ellier/internal/auth"
)

func TestCredentialRequestsAreTraced(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(t.Context())
	})

	h := NewHandler(Config{Credentials: testCreds})
	require.Equal(t, http.StatusOK, get(t, h, "/", nil).Code)
	require.Equal(t, http.StatusOK, get(t, h, auth.BrokerPath, nil).Code)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1, "liveness checks are not traced")
	assert.Equal(t, "HTTP GET /chzzk-auth", spans[0].Name)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind)
}
