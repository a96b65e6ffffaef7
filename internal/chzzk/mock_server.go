// SPDX-License-Identifier: MIT
package chzzk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockServer is a configurable CHZZK API stand-in for tests.
type MockServer struct {
	*httptest.Server
	mu       sync.RWMutex
	status   map[string]map[string]any
	detail   map[string]map[string]any
	failures map[string]int // remaining 503 responses per route kind
	requests map[string]int
	cookies  []string
}

// NewMockServer starts a mock server with no channels configured.
func NewMockServer() *MockServer {
	m := &MockServer{
		status:   make(map[string]map[string]any),
		detail:   make(map[string]map[string]any),
		failures: make(map[string]int),
		requests: make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// SetLive configures channelID as broadcasting. An empty hlsPath sets no playback document.
func (m *MockServer) SetLive(channelID, channelName, title, category string, adult bool, hlsPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status[channelID] = map[string]any{
		"liveTitle":         title,
		"status":            string(StatusOpen),
		"adult":             adult,
		"categoryType":      "GAME",
		"liveCategory":      category,
		"liveCategoryValue": strings.ReplaceAll(category, "_", " "),
	}
	detail := map[string]any{
		"liveId":            1,
		"liveTitle":         title,
		"status":            string(StatusOpen),
		"adult":             adult,
		"categoryType":      "GAME",
		"liveCategory":      category,
		"liveCategoryValue": strings.ReplaceAll(category, "_", " "),
		"livePlaybackJson":  nil,
		"channel": map[string]any{
			"channelId":   channelID,
			"channelName": channelName,
		},
	}
	if hlsPath != "" {
		pb, _ := json.Marshal(Playback{Media: []Media{
			{MediaID: "LLHLS", Protocol: "HLS", Path: hlsPath + "?ll"},
			{MediaID: "HLS", Protocol: "HLS", Path: hlsPath},
		}})
		detail["livePlaybackJson"] = string(pb)
	}
	m.detail[channelID] = detail
}

// SetClosed configures channelID as offline.
func (m *MockServer) SetClosed(channelID, channelName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[channelID] = map[string]any{"liveTitle": "", "status": string(StatusClose), "adult": false}
	m.detail[channelID] = map[string]any{
		"liveTitle": "",
		"status":    string(StatusClose),
		"channel":   map[string]any{"channelId": channelID, "channelName": channelName},
	}
}

// FailNext makes the next n requests of kind ("live-status" or "live-detail") return 503.
func (m *MockServer) FailNext(kind string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[kind] = n
}

// Requests returns how many requests of kind were received.
func (m *MockServer) Requests(kind string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[kind]
}

// LastCookies returns the cookie names seen on the most recent request.
func (m *MockServer) LastCookies() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.cookies...)
}

func (m *MockServer) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// polling|service / v2 / channels / {id} / live-status|live-detail
	if len(parts) != 5 || parts[2] != "channels" {
		http.NotFound(w, r)
		return
	}
	id, kind := parts[3], parts[4]

	m.mu.Lock()
	m.requests[kind]++
	m.cookies = m.cookies[:0]
	for _, c := range r.Cookies() {
		m.cookies = append(m.cookies, c.Name)
	}
	if m.failures[kind] > 0 {
		m.failures[kind]--
		m.mu.Unlock()
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	var content map[string]any
	switch kind {
	case "live-status":
		content = m.status[id]
	case "live-detail":
		content = m.detail[id]
	default:
		m.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if content == nil {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 200, "message": nil, "content": nil})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"code": 200, "message": nil, "content": content})
}
