// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func procWaitCount(t *testing.T, result string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "ellier_proc_wait_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "result" && lp.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func startGroup(t *testing.T, script string) (*exec.Cmd, <-chan error) {
	t.Helper()
	cmd := exec.Command("sh", "-c", script)
	Set(cmd)
	require.NoError(t, cmd.Start())

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()
	return cmd, waitCh
}

func TestKillReachesWholeGroup(t *testing.T) {
	cmd, waitCh := startGroup(t, "sleep 10 & sleep 10")
	pid := cmd.Process.Pid

	// Give the shell a moment to fork its children.
	time.Sleep(100 * time.Millisecond)

	pgid, err := syscall.Getpgid(pid)
	require.NoError(t, err)
	assert.Equal(t, pid, pgid, "child should lead its own group")

	require.NoError(t, Kill(cmd, syscall.SIGKILL))

	err = <-waitCh
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "expected exit error, got %v", err)
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		assert.True(t, ws.Signaled())
		assert.Equal(t, syscall.SIGKILL, ws.Signal())
	}

	time.Sleep(50 * time.Millisecond)
	err = syscall.Kill(-pgid, syscall.Signal(0))
	if !assert.ErrorIs(t, err, syscall.ESRCH, "process group should be gone") {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	}
}

func TestKillNilAndExited(t *testing.T) {
	require.NoError(t, Kill(nil, syscall.SIGKILL))
	require.NoError(t, Kill(&exec.Cmd{}, syscall.SIGKILL))

	cmd, waitCh := startGroup(t, "exit 0")
	require.NoError(t, <-waitCh)
	assert.NoError(t, Kill(cmd, syscall.SIGTERM))
}

func TestTerminateGraceful(t *testing.T) {
	before := procWaitCount(t, "exit_nonzero")

	cmd, waitCh := startGroup(t, "sleep 10")
	err := Terminate(cmd, waitCh, 2*time.Second)
	require.Error(t, err, "SIGTERM should end sleep with a signal status")

	assert.Equal(t, before+1, procWaitCount(t, "exit_nonzero"))
}

func TestTerminateEscalatesToKill(t *testing.T) {
	before := procWaitCount(t, "forced_error")

	cmd, waitCh := startGroup(t, "trap '' TERM; while :; do sleep 0.05; done")
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	err := Terminate(cmd, waitCh, 200*time.Millisecond)
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, before+1, procWaitCount(t, "forced_error"))
}

func TestTerminateNil(t *testing.T) {
	assert.NoError(t, Terminate(nil, nil, time.Millisecond))
}
