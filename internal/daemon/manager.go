// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon runs the recorder's long-lived workers and HTTP listeners
// under one lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 30 * time.Second

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// Manager manages the daemon lifecycle.
type Manager interface {
	// Start runs all workers and servers and blocks until ctx is cancelled,
	// a worker returns or a component fails. Shutdown hooks run before it returns.
	Start(ctx context.Context) error

	// RegisterShutdownHook registers a function to be called during shutdown
	RegisterShutdownHook(name string, hook ShutdownHook)

	// Addr returns the bound address of the named server once it listens.
	Addr(name string) string
}

type manager struct {
	deps Deps

	shutdownHooks []namedHook
	addrs         map[string]string

	started bool
	mu      sync.Mutex

	logger zerolog.Logger
}

type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager creates a new daemon manager.
func NewManager(deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if deps.ShutdownTimeout <= 0 {
		deps.ShutdownTimeout = defaultShutdownTimeout
	}
	return &manager{
		deps:   deps,
		addrs:  make(map[string]string),
		logger: deps.Logger.With().Str("component", "manager").Logger(),
	}, nil
}

func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("start context is nil")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrManagerStarted
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Int("workers", len(m.deps.Workers)).
		Int("servers", len(m.deps.Servers)).
		Msg("Starting daemon manager")

	type listener struct {
		name string
		ln   net.Listener
		srv  *http.Server
	}
	var listeners []listener
	for _, s := range m.deps.Servers {
		if s.Addr == "" || s.Handler == nil {
			continue
		}
		ln, err := net.Listen("tcp", s.Addr)
		if err != nil {
			for _, l := range listeners {
				_ = l.ln.Close()
			}
			_ = m.runHooks(ctx)
			return fmt.Errorf("%s server: listen %s: %w", s.Name, s.Addr, err)
		}
		listeners = append(listeners, listener{
			name: s.Name,
			ln:   ln,
			srv: &http.Server{
				Handler:           s.Handler,
				ReadHeaderTimeout: 5 * time.Second,
			},
		})
		m.setAddr(s.Name, ln.Addr().String())
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range listeners {
		g.Go(func() error {
			m.logger.Info().Str("server", l.name).Str("addr", l.ln.Addr().String()).Msg("Server listening")
			if err := l.srv.Serve(l.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				m.logger.Error().Err(err).Str("event", l.name+".server.failed").Msg("Server failed")
				return fmt.Errorf("%s server: %w", l.name, err)
			}
			return nil
		})
	}

	// Workers ending for any reason stop the daemon.
	workerCtx, stopAll := context.WithCancel(gctx)
	defer stopAll()
	for _, w := range m.deps.Workers {
		g.Go(func() error {
			defer stopAll()
			m.logger.Debug().Str("worker", w.Name).Msg("Worker started")
			if err := w.Run(workerCtx); err != nil {
				m.logger.Error().Err(err).Str("worker", w.Name).Msg("Worker failed")
				return fmt.Errorf("%s: %w", w.Name, err)
			}
			m.logger.Debug().Str("worker", w.Name).Msg("Worker stopped")
			return nil
		})
	}

	g.Go(func() error {
		<-workerCtx.Done()
		m.logger.Info().Msg("Shutting down daemon manager")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.deps.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, l := range listeners {
			if err := l.srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	runErr := g.Wait()
	hookErr := m.runHooks(ctx)
	if err := errors.Join(runErr, hookErr); err != nil {
		m.logger.Error().Err(err).Msg("Daemon stopped with errors")
		return err
	}
	m.logger.Info().Msg("Daemon manager stopped cleanly")
	return nil
}

func (m *manager) runHooks(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.deps.ShutdownTimeout)
	defer cancel()

	m.mu.Lock()
	hooks := append([]namedHook(nil), m.shutdownHooks...)
	m.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		hookStart := time.Now()
		if err := hook.hook(shutdownCtx); err != nil {
			m.logger.Error().
				Err(err).
				Str("hook", hook.name).
				Dur("duration", time.Since(hookStart)).
				Msg("Shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
			continue
		}
		m.logger.Debug().
			Str("hook", hook.name).
			Dur("duration", time.Since(hookStart)).
			Msg("Shutdown hook completed")
	}
	return errors.Join(errs...)
}

// RegisterShutdownHook registers a cleanup function to be called during shutdown.
func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
	m.logger.Debug().Str("hook", name).Msg("Registered shutdown hook")
}

func (m *manager) setAddr(name, addr string) {
	m.mu.Lock()
	m.addrs[name] = addr
	m.mu.Unlock()
}

func (m *manager) Addr(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addrs[name]
}
