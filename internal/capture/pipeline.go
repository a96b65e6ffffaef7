// Package capture runs the fetcher and optional transcoder processes that
// record a live stream to disk.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/ellier/internal/log"
	"github.com/ManuGH/ellier/internal/metrics"
	"github.com/ManuGH/ellier/internal/procgroup"
)

// ErrSpawn wraps failures to start a pipeline process.
var ErrSpawn = errors.New("spawn capture process")

const (
	logRingSize = 64
	// waitDelay bounds how long Wait keeps copying output after exit.
	waitDelay = 5 * time.Second
)

// ExitKind classifies the fetcher state.
type ExitKind int

const (
	Running ExitKind = iota
	Exited
	Errored
)

func (k ExitKind) String() string {
	switch k {
	case Exited:
		return "exited"
	case Errored:
		return "errored"
	default:
		return "running"
	}
}

// ExitState is the fetcher state reported by PollExit.
type ExitState struct {
	Kind ExitKind
	// Code is the exit status for Exited; -1 when killed by a signal.
	Code int
	// Err is the wait failure for Errored.
	Err error
}

// Done reports whether the fetcher is gone.
func (s ExitState) Done() bool { return s.Kind != Running }

// child is one spawned process with its reaper.
type child struct {
	name string
	cmd  *exec.Cmd
	ring *LineRing
	done chan struct{}
	err  error
}

func newChild(name, bin string, args []string, logger zerolog.Logger) *child {
	// Lifetime is managed by Terminate rather than a context so the
	// transcoder can drain after a stop signal.
	// #nosec G204 - binaries come from configuration
	cmd := exec.Command(bin, args...)
	cmd.WaitDelay = waitDelay
	procgroup.Set(cmd)
	l := logger.With().Str(xglog.FieldProcess, name).Logger()
	return &child{
		name: name,
		cmd:  cmd,
		ring: NewLineRing(logRingSize, &l),
		done: make(chan struct{}),
	}
}

func (c *child) start() error {
	if err := c.cmd.Start(); err != nil {
		close(c.done)
		return fmt.Errorf("%w: %s: %w", ErrSpawn, c.name, err)
	}
	go c.reap()
	return nil
}

func (c *child) reap() {
	c.err = c.cmd.Wait()
	c.ring.Flush()
	close(c.done)
}

func (c *child) exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *child) state() ExitState {
	if !c.exited() {
		return ExitState{Kind: Running}
	}
	var exitErr *exec.ExitError
	switch {
	case c.err == nil:
		return ExitState{Kind: Exited, Code: 0}
	case errors.As(c.err, &exitErr):
		return ExitState{Kind: Exited, Code: exitErr.ExitCode()}
	default:
		return ExitState{Kind: Errored, Err: c.err}
	}
}

// waitCh adapts the reaper for procgroup.Terminate.
func (c *child) waitCh() <-chan error {
	ch := make(chan error, 1)
	go func() {
		<-c.done
		ch <- c.err
	}()
	return ch
}

func (c *child) kill() {
	if err := procgroup.Kill(c.cmd, syscall.SIGKILL); err != nil {
		metrics.IncProcTerminate("SIGKILL", "error")
	} else {
		metrics.IncProcTerminate("SIGKILL", "sent")
	}
	<-c.done
}

// Pipeline owns the processes of one capture. Methods are safe for
// concurrent use; the supervisor calls them from one goroutine.
type Pipeline struct {
	spec       Spec
	logger     zerolog.Logger
	fetcher    *child
	transcoder *child

	mu         sync.Mutex
	reported   bool
	terminated bool
}

// Start spawns the pipeline. On failure nothing is left running.
func Start(ctx context.Context, spec Spec) (*Pipeline, error) {
	logger := xglog.WithComponentFromContext(ctx, "capture")

	fetcherBin := spec.FetcherBin
	if fetcherBin == "" {
		fetcherBin = "streamlink"
	}
	p := &Pipeline{
		spec:    spec,
		logger:  logger,
		fetcher: newChild("streamlink", fetcherBin, FetcherArgs(spec), logger),
	}
	p.fetcher.cmd.Stderr = p.fetcher.ring

	if !spec.PostProcess {
		p.fetcher.cmd.Stdout = p.fetcher.ring
		if err := p.fetcher.start(); err != nil {
			metrics.IncPipelineExit("spawn_failed")
			return nil, err
		}
		p.logStarted()
		return p, nil
	}

	p.transcoder = newChild("ffmpeg", spec.transcoderBin(), TranscoderArgs(spec), logger)

	pr, pw, err := os.Pipe()
	if err != nil {
		metrics.IncPipelineExit("spawn_failed")
		return nil, fmt.Errorf("%w: pipe: %w", ErrSpawn, err)
	}
	p.fetcher.cmd.Stdout = pw
	p.transcoder.cmd.Stdin = pr
	p.transcoder.cmd.Stdout = p.transcoder.ring
	p.transcoder.cmd.Stderr = p.transcoder.ring

	closePipe := func() {
		_ = pr.Close()
		_ = pw.Close()
	}

	if err := p.fetcher.start(); err != nil {
		closePipe()
		metrics.IncPipelineExit("spawn_failed")
		return nil, err
	}
	if err := p.transcoder.start(); err != nil {
		closePipe()
		p.fetcher.kill()
		metrics.IncPipelineExit("spawn_failed")
		return nil, err
	}
	// The children hold their own copies.
	closePipe()

	p.logStarted()
	return p, nil
}

func (p *Pipeline) logStarted() {
	ev := p.logger.Info().
		Str(xglog.FieldEvent, "pipeline.started").
		Str(xglog.FieldPath, p.spec.OutputPath()).
		Int("fetcher_pid", p.fetcher.cmd.Process.Pid)
	if p.transcoder != nil {
		ev = ev.Int("transcoder_pid", p.transcoder.cmd.Process.Pid)
	}
	ev.Msg("capture pipeline started")
}

// OutputPath is the recording file.
func (p *Pipeline) OutputPath() string { return p.spec.OutputPath() }

// HasTranscoder reports whether a transcoder runs behind the fetcher.
func (p *Pipeline) HasTranscoder() bool { return p.transcoder != nil }

// PollExit reports the fetcher state without blocking. The transcoder is
// checked too, but only logged.
func (p *Pipeline) PollExit() ExitState {
	st := p.fetcher.state()
	if p.transcoder != nil && p.transcoder.exited() {
		p.logger.Debug().Str(xglog.FieldProcess, "ffmpeg").Msg("transcoder has exited")
	}
	if !st.Done() {
		return st
	}

	p.mu.Lock()
	first := !p.reported && !p.terminated
	p.reported = true
	p.mu.Unlock()

	if first {
		metrics.IncPipelineExit(st.Kind.String())
		ev := p.logger.Error()
		if st.Kind == Exited && st.Code == 0 {
			ev = p.logger.Info()
		}
		ev = ev.Str(xglog.FieldEvent, "pipeline.exit").
			Strs("stderr_tail", p.fetcher.ring.LastN(5))
		if st.Kind == Errored {
			ev.Err(st.Err).Msg("fetcher wait failed")
		} else {
			ev.Int(xglog.FieldExitCode, st.Code).Msg("fetcher exited")
		}
	}
	return st
}

// Terminate kills the fetcher's process group and blocks until it is reaped.
// The transcoder is polled once and otherwise left to drain its input.
// Repeated calls are no-ops.
func (p *Pipeline) Terminate() {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return
	}
	p.terminated = true
	p.mu.Unlock()

	if !p.fetcher.exited() {
		p.fetcher.kill()
		metrics.IncPipelineExit("terminated")
	}
	p.logger.Info().
		Str(xglog.FieldEvent, "pipeline.terminated").
		Bool("transcoder_exited", p.transcoder == nil || p.transcoder.exited()).
		Msg("fetcher terminated")
}

// WaitTranscoder blocks until the transcoder exits or ctx ends. Without a
// transcoder it returns nil immediately.
func (p *Pipeline) WaitTranscoder(ctx context.Context) error {
	if p.transcoder == nil {
		return nil
	}
	select {
	case <-p.transcoder.done:
		if p.transcoder.err != nil {
			p.logger.Warn().Err(p.transcoder.err).
				Strs("stderr_tail", p.transcoder.ring.LastN(5)).
				Msg("transcoder exited with error")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StopTranscoder asks the transcoder to finish, escalating to SIGKILL after
// grace, and waits for it.
func (p *Pipeline) StopTranscoder(grace time.Duration) error {
	if p.transcoder == nil || p.transcoder.exited() {
		return nil
	}
	return procgroup.Terminate(p.transcoder.cmd, p.transcoder.waitCh(), grace)
}
