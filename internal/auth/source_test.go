// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/ellier/internal/chzzk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticResolve(t *testing.T) {
	got, err := Static{}.Resolve(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got, "empty static source means unauthenticated")

	src := Static{Auth: &chzzk.Auth{NIDAut: "a", NIDSes: "s"}}
	got, err = src.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", got.NIDAut)

	got.NIDAut = "mutated"
	again, _ := src.Resolve(context.Background())
	assert.Equal(t, "a", again.NIDAut, "callers receive a copy")
}

func TestBrokerResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != BrokerPath {
			http.NotFound(w, r)
			return
		}
		if !AuthorizeRequest(r, "secret") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"nid_ses":"ses","nid_aut":"aut","nid_jkl":"jkl"}`))
	}))
	defer srv.Close()

	got, err := NewBroker(srv.URL+"/", "secret", time.Second).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &chzzk.Auth{NIDAut: "aut", NIDSes: "ses", NIDJkl: "jkl"}, got)

	_, err = NewBroker(srv.URL, "wrong", time.Second).Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBroker))
	assert.Contains(t, err.Error(), "401")
}

func TestBrokerResolveEmptyBundle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"nid_ses":"","nid_aut":"","nid_jkl":""}`))
	}))
	defer srv.Close()

	got, err := NewBroker(srv.URL, "", time.Second).Resolve(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBrokerResolveUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewBroker(url, "", 200*time.Millisecond).Resolve(context.Background())
	assert.True(t, errors.Is(err, ErrBroker), "got %v", err)
}

func TestBrokerResolveMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewBroker(srv.URL, "", time.Second).Resolve(context.Background())
	assert.True(t, errors.Is(err, ErrBroker), "got %v", err)
}
