// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"bytes"
	"sync"

	"github.com/rs/zerolog"
)

// LineRing keeps the last N lines written to it and optionally forwards each
// complete line to a logger. Partial lines are buffered until their newline.
type LineRing struct {
	mu      sync.Mutex
	lines   []string
	head    int
	count   int
	partial []byte
	logger  *zerolog.Logger
}

// NewLineRing creates a LineRing with the given capacity.
func NewLineRing(capacity int, logger *zerolog.Logger) *LineRing {
	if capacity < 1 {
		capacity = 50
	}
	return &LineRing{lines: make([]string, capacity), logger: logger}
}

// Write implements io.Writer.
func (r *LineRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := append(r.partial, p...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		r.push(string(bytes.TrimRight(data[:i], "\r")))
		data = data[i+1:]
	}
	r.partial = append(r.partial[:0], data...)
	return len(p), nil
}

// Flush records a trailing line that never got its newline.
func (r *LineRing) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.partial) > 0 {
		r.push(string(r.partial))
		r.partial = r.partial[:0]
	}
}

func (r *LineRing) push(line string) {
	if line == "" {
		return
	}
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.count < len(r.lines) {
		r.count++
	}
	if r.logger != nil {
		r.logger.Info().Msg(line)
	}
}

// LastN returns up to n of the most recent lines, oldest first.
func (r *LineRing) LastN(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.count {
		n = r.count
	}
	out := make([]string, 0, n)
	size := len(r.lines)
	start := (r.head - r.count + size) % size
	for i := r.count - n; i < r.count; i++ {
		out = append(out, r.lines[(start+i)%size])
	}
	return out
}
