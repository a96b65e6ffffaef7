// SPDX-License-Identifier: MIT

package broker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/ellier/internal/auth"
	"github.com/ManuGH/ellier/internal/chzzk"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testCreds = chzzk.Auth{NIDAut: "aut", NIDSes: "ses", NIDJkl: "jkl"}

func get(t *testing.T, h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.10:4567"
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLiveness(t *testing.T) {
	rec := get(t, NewHandler(Config{Credentials: testCreds}), "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCredentialsWireFormat(t *testing.T) {
	rec := get(t, NewHandler(Config{Credentials: testCreds}), auth.BrokerPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"nid_ses": "ses", "nid_aut": "aut", "nid_jkl": "jkl"}, body)
}

func TestCredentialsRequireToken(t *testing.T) {
	h := NewHandler(Config{Credentials: testCreds, Token: "s3cret"})

	rec := get(t, h, auth.BrokerPath, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(t, h, auth.BrokerPath, http.Header{"Authorization": {"Bearer wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(t, h, auth.BrokerPath, http.Header{"Authorization": {"Bearer s3cret"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, auth.BrokerPath, http.Header{auth.BrokerTokenHeader: {"s3cret"}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCredentialsRateLimitedPerIP(t *testing.T) {
	h := NewHandler(Config{Credentials: testCreds, RateLimit: 2})

	for i := 0; i < 2; i++ {
		rec := get(t, h, auth.BrokerPath, nil)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
	rec := get(t, h, auth.BrokerPath, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")

	// liveness is not limited
	assert.Equal(t, http.StatusOK, get(t, h, "/", nil).Code)
}

func TestMetricsRoute(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, NewHandler(Config{Credentials: testCreds}), "/metrics", nil).Code)

	h := NewHandler(Config{Credentials: testCreds, Metrics: true})
	_ = get(t, h, auth.BrokerPath, nil)
	rec := get(t, h, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ellier_broker_requests_total")
}

func TestBrokerSourceRoundTrip(t *testing.T) {
	srv := httptest.NewServer(NewHandler(Config{Credentials: testCreds, Token: "tok"}))
	defer srv.Close()

	got, err := auth.NewBroker(srv.URL, "tok", 0).Resolve(t.Context())
	require.NoError(t, err)
	assert.Equal(t, &testCreds, got)

	_, err = auth.NewBroker(srv.URL, "bad", 0).Resolve(t.Context())
	assert.ErrorIs(t, err, auth.ErrBroker)
}
