// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Worker is a long-running task owned by the manager. Run must return once
// ctx is cancelled; a nil return before that ends the daemon normally.
type Worker struct {
	Name string
	Run  func(ctx context.Context) error
}

// Server is an HTTP listener owned by the manager.
type Server struct {
	Name    string
	Addr    string
	Handler http.Handler
}

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	Workers []Worker
	Servers []Server

	// ShutdownTimeout bounds server shutdown plus shutdown hooks.
	ShutdownTimeout time.Duration
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	servers := 0
	for _, s := range d.Servers {
		if s.Addr != "" && s.Handler != nil {
			servers++
		}
	}
	if len(d.Workers) == 0 && servers == 0 {
		return ErrNothingToRun
	}
	return nil
}
