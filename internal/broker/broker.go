// SPDX-License-Identifier: MIT

// Package broker serves the CHZZK credential bundle to recorders running in
// delegated mode.
package broker

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/ellier/internal/auth"
	"github.com/ManuGH/ellier/internal/chzzk"
)

// DefaultRateLimit is the per-IP request budget per RateWindow.
const (
	DefaultRateLimit = 60
	RateWindow       = time.Minute
)

// Config configures the broker handler.
type Config struct {
	Credentials chzzk.Auth
	// Token, when set, must be presented as a bearer token on the credential route.
	Token string
	// RateLimit is requests per RateWindow per client IP. Zero uses DefaultRateLimit.
	RateLimit int
	// Metrics exposes /metrics on the broker listener.
	Metrics bool
}

// NewHandler builds the broker router.
func NewHandler(cfg Config) http.Handler {
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = DefaultRateLimit
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(observe)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(rateLimit(limit, RateWindow))
		r.Get(auth.BrokerPath, credentialsHandler(cfg.Credentials, cfg.Token))
	})

	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	return traced(r)
}

func credentialsHandler(creds chzzk.Auth, token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token != "" && !auth.AuthorizeRequest(r, token) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(creds)
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
