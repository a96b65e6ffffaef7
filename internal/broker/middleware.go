// SPDX-License-Identifier: MIT

package broker

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/ellier/internal/log"
	"github.com/ManuGH/ellier/internal/metrics"
)

const serviceName = "ellier-broker"

// rateLimit limits each client IP to limit requests per window.
func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","detail":"Too many requests. Please try again later."}`))
		}),
	)
}

// traced wraps h with server spans and W3C trace context extraction.
func traced(h http.Handler) http.Handler {
	return otelhttp.NewHandler(
		h,
		serviceName,
		otelhttp.WithTracerProvider(otel.GetTracerProvider()),
		otelhttp.WithSpanOptions(trace.WithAttributes(semconv.ServiceNameKey.String(serviceName))),
		otelhttp.WithFilter(shouldTrace),
		otelhttp.WithSpanNameFormatter(spanName),
	)
}

// shouldTrace skips liveness and scrape traffic.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/", "/metrics":
		return false
	}
	return true
}

func spanName(_ string, r *http.Request) string {
	return "HTTP " + r.Method + " " + r.URL.Path
}

// observe counts and logs every request once the route is known.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		metrics.IncBrokerRequest(route, status)

		logger := log.WithComponent("broker")
		logger.Info().
			Str(log.FieldEvent, "broker.request").
			Str("method", r.Method).
			Str("route", route).
			Str("remote", r.RemoteAddr).
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("trace_id", trace.SpanContextFromContext(r.Context()).TraceID().String()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request served")
	})
}
