// Package session runs the recording state machine: it watches one channel,
// starts a capture when the channel goes live, tracks chapter changes while
// recording and finalizes the recording when it ends.
package session

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/ellier/internal/capture"
	"github.com/ManuGH/ellier/internal/chapter"
	"github.com/ManuGH/ellier/internal/chzzk"
	"github.com/ManuGH/ellier/internal/ledger"
	"github.com/ManuGH/ellier/internal/media"
	"github.com/ManuGH/ellier/internal/status"
)

// DirLayout is the session directory name, derived from the start time.
const DirLayout = "2006-01-02_15-04-05"

// State of the supervisor.
type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Poller queries the channel state.
type Poller interface {
	Poll(ctx context.Context, channelID string, auth *chzzk.Auth) (status.Result, error)
	Status(ctx context.Context, channelID string, auth *chzzk.Auth) (status.Result, error)
}

// Pipeline is a running capture.
type Pipeline interface {
	PollExit() capture.ExitState
	Terminate()
	HasTranscoder() bool
	WaitTranscoder(ctx context.Context) error
	StopTranscoder(grace time.Duration) error
	OutputPath() string
}

// Launcher starts captures.
type Launcher interface {
	Launch(ctx context.Context, spec capture.Spec) (Pipeline, error)
}

// LaunchFunc adapts a function to Launcher.
type LaunchFunc func(ctx context.Context, spec capture.Spec) (Pipeline, error)

// Launch implements Launcher.
func (f LaunchFunc) Launch(ctx context.Context, spec capture.Spec) (Pipeline, error) {
	return f(ctx, spec)
}

// CaptureLauncher starts real capture pipelines.
var CaptureLauncher LaunchFunc = func(ctx context.Context, spec capture.Spec) (Pipeline, error) {
	p, err := capture.Start(ctx, spec)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Finalizer embeds chapters into a finished recording.
type Finalizer interface {
	Finalize(ctx context.Context, dir string, chapters []chapter.Candidate) error
}

// Prober summarizes a finished recording.
type Prober interface {
	Probe(ctx context.Context, path string) (*media.Summary, error)
}

// Recorder keeps the session history.
type Recorder interface {
	Record(ctx context.Context, e ledger.Entry) error
}

// Session is one recording, from the first live poll to the end of capture.
type Session struct {
	ID        string
	Dir       string
	StartedAt time.Time

	start    time.Time
	ctx      context.Context
	span     trace.Span
	pipeline Pipeline
	tracker  *chapter.Tracker
	last     status.Snapshot
}

// Elapsed is the recording time at now.
func (s *Session) Elapsed(now time.Time) time.Duration {
	d := now.Sub(s.start)
	if d < 0 {
		return 0
	}
	return d
}

// Chapters returns the chapter candidates collected so far.
func (s *Session) Chapters() []chapter.Candidate {
	return s.tracker.Chapters()
}
