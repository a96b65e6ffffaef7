// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/ellier/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func blockingWorker(name string, started chan<- struct{}) Worker {
	return Worker{Name: name, Run: func(ctx context.Context) error {
		if started != nil {
			close(started)
		}
		<-ctx.Done()
		return nil
	}}
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(Deps{Logger: zerolog.Nop(), Workers: []Worker{blockingWorker("w", nil)}})
	assert.ErrorIs(t, err, ErrMissingLogger)

	_, err = NewManager(Deps{Logger: log.WithComponent("test")})
	assert.ErrorIs(t, err, ErrNothingToRun)

	_, err = NewManager(Deps{Logger: log.WithComponent("test"), Workers: []Worker{blockingWorker("w", nil)}})
	assert.NoError(t, err)
}

func TestManager_CancelRunsHooksLIFO(t *testing.T) {
	started := make(chan struct{})
	mgr, err := NewManager(Deps{
		Logger:          log.WithComponent("test"),
		Workers:         []Worker{blockingWorker("supervisor", started)},
		ShutdownTimeout: 2 * time.Second,
	})
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"ledger", "telemetry"} {
		mgr.RegisterShutdownHook(name, func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Start(ctx) }()

	<-started
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after cancellation")
	}
	assert.Equal(t, []string{"telemetry", "ledger"}, order)

	assert.ErrorIs(t, mgr.Start(context.Background()), ErrManagerStarted)
}

func TestManager_WorkerErrorStopsServers(t *testing.T) {
	boom := errors.New("boom")
	ready := make(chan struct{})
	mgr, err := NewManager(Deps{
		Logger: log.WithComponent("test"),
		Workers: []Worker{{Name: "failing", Run: func(ctx context.Context) error {
			<-ready
			return boom
		}}},
		Servers: []Server{{Name: "metrics", Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}},
	})
	require.NoError(t, err)

	hookErr := errors.New("hook failed")
	mgr.RegisterShutdownHook("bad", func(context.Context) error { return hookErr })

	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Start(context.Background()) }()

	require.Eventually(t, func() bool { return mgr.Addr("metrics") != "" }, 2*time.Second, 5*time.Millisecond)
	close(ready)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, hookErr)
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after worker failure")
	}
}

func TestManager_ServesHandler(t *testing.T) {
	mgr, err := NewManager(Deps{
		Logger: log.WithComponent("test"),
		Servers: []Server{{Name: "metrics", Addr: "127.0.0.1:0", Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok")
		})}},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Start(ctx) }()

	require.Eventually(t, func() bool { return mgr.Addr("metrics") != "" }, 2*time.Second, 5*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + mgr.Addr("metrics") + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	require.NoError(t, <-errCh)
}

func TestManager_ListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	mgr, err := NewManager(Deps{
		Logger:  log.WithComponent("test"),
		Servers: []Server{{Name: "broker", Addr: ln.Addr().String(), Handler: http.NotFoundHandler()}},
	})
	require.NoError(t, err)

	err = mgr.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker server")
}
