// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package auth resolves the CHZZK credential bundle, either from local
// configuration or from a remote credential broker.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/ellier/internal/chzzk"
	"github.com/ManuGH/ellier/internal/platform/httpx"
)

// BrokerPath is the credential endpoint served by the broker.
const BrokerPath = "/chzzk-auth"

// ErrBroker classifies failures talking to the credential broker.
var ErrBroker = errors.New("credential broker")

// Source yields the credentials to use for one supervisor tick.
// A nil *chzzk.Auth means unauthenticated requests.
type Source interface {
	Resolve(ctx context.Context) (*chzzk.Auth, error)
}

// Static always returns the same credentials.
type Static struct {
	Auth *chzzk.Auth
}

// Resolve implements Source.
func (s Static) Resolve(context.Context) (*chzzk.Auth, error) {
	if s.Auth.Empty() {
		return nil, nil
	}
	a := *s.Auth
	return &a, nil
}

// Broker fetches credentials from a remote broker on every call.
type Broker struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewBroker returns a broker-backed Source for baseURL, e.g. http://master:3000.
func NewBroker(baseURL, token string, timeout time.Duration) *Broker {
	return &Broker{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   token,
		client:  httpx.NewClient(timeout),
	}
}

// Resolve implements Source.
func (b *Broker) Resolve(ctx context.Context) (*chzzk.Auth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+BrokerPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrBroker, err)
	}
	req.Header.Set("Accept", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBroker, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: unexpected status %d", ErrBroker, resp.StatusCode)
	}

	var a chzzk.Auth
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrBroker, err)
	}
	if a.Empty() {
		return nil, nil
	}
	return &a, nil
}
