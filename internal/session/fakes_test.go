package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/ellier/internal/capture"
	"github.com/ManuGH/ellier/internal/chapter"
	"github.com/ManuGH/ellier/internal/chzzk"
	"github.com/ManuGH/ellier/internal/ledger"
	"github.com/ManuGH/ellier/internal/status"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: epoch} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func ptr(s string) *string { return &s }

func snapshot(title, category string) status.Snapshot {
	return status.Snapshot{
		Title:    title,
		Category: status.Category{ID: ptr(category), Value: category},
		Open:     true,
	}
}

// fakePoller reports the channel live for the first `live` Poll calls and
// replays statuses while recording.
type fakePoller struct {
	mu          sync.Mutex
	live        int
	first       status.Snapshot
	statuses    []status.Snapshot
	pollErr     error
	polls       int
	statusCalls int
}

func (p *fakePoller) Poll(_ context.Context, channelID string, _ *chzzk.Auth) (status.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	if p.pollErr != nil {
		return status.Result{}, p.pollErr
	}
	if p.polls > p.live {
		return status.Result{Snapshot: status.Snapshot{}}, nil
	}
	snap := p.first
	return status.Result{
		Snapshot: snap,
		Detail: &chzzk.LiveDetail{
			LiveTitle:         snap.Title,
			Status:            chzzk.StatusOpen,
			LiveCategory:      snap.Category.ID,
			LiveCategoryValue: snap.Category.Value,
			Channel:           chzzk.ChannelInfo{ChannelID: channelID, ChannelName: "streamer"},
			Raw:               []byte(`{"liveTitle":"` + snap.Title + `"}`),
		},
		StreamURL: "https://example.invalid/hls/playlist.m3u8",
	}, nil
}

func (p *fakePoller) Status(context.Context, string, *chzzk.Auth) (status.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.statuses) == 0 {
		return status.Result{Snapshot: p.first, Status: &chzzk.LiveStatus{LiveTitle: p.first.Title}}, nil
	}
	i := min(p.statusCalls, len(p.statuses)-1)
	p.statusCalls++
	snap := p.statuses[i]
	return status.Result{
		Snapshot: snap,
		Status: &chzzk.LiveStatus{
			LiveTitle:         snap.Title,
			Status:            chzzk.StatusOpen,
			LiveCategory:      snap.Category.ID,
			LiveCategoryValue: snap.Category.Value,
		},
	}, nil
}

// fakePipeline reports Running for runFor polls, advancing the clock by step
// on every poll, then exits.
type fakePipeline struct {
	mu     sync.Mutex
	clock  *clock
	step   time.Duration
	runFor int
	exit   capture.ExitState

	transcoder   bool
	blockDrain   bool
	polls        int
	terminated   bool
	drained      bool
	stopped      int
	outputPath   string
	terminatedCh chan struct{}
}

func (p *fakePipeline) PollExit() capture.ExitState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminated {
		return capture.ExitState{Kind: capture.Exited, Code: -1}
	}
	p.polls++
	p.clock.Advance(p.step)
	if p.polls > p.runFor {
		return p.exit
	}
	return capture.ExitState{Kind: capture.Running}
}

func (p *fakePipeline) Terminate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminated = true
	if p.terminatedCh != nil {
		close(p.terminatedCh)
		p.terminatedCh = nil
	}
}

func (p *fakePipeline) HasTranscoder() bool { return p.transcoder }

func (p *fakePipeline) WaitTranscoder(ctx context.Context) error {
	if p.blockDrain {
		<-ctx.Done()
		return ctx.Err()
	}
	p.mu.Lock()
	p.drained = true
	p.mu.Unlock()
	return nil
}

func (p *fakePipeline) StopTranscoder(time.Duration) error {
	p.mu.Lock()
	p.stopped++
	p.mu.Unlock()
	return nil
}

func (p *fakePipeline) OutputPath() string { return p.outputPath }

type fakeLauncher struct {
	mu       sync.Mutex
	pipeline *fakePipeline
	err      error
	specs    []capture.Spec
	launched chan struct{}
	onLaunch func(capture.Spec)
}

func (l *fakeLauncher) Launch(_ context.Context, spec capture.Spec) (Pipeline, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.specs = append(l.specs, spec)
	if l.onLaunch != nil {
		l.onLaunch(spec)
	}
	if l.launched != nil {
		select {
		case l.launched <- struct{}{}:
		default:
		}
	}
	if l.err != nil {
		return nil, l.err
	}
	l.pipeline.outputPath = spec.OutputPath()
	return l.pipeline, nil
}

type finalizeCall struct {
	dir      string
	chapters []chapter.Candidate
}

type fakeFinalizer struct {
	mu    sync.Mutex
	err   error
	calls []finalizeCall
}

func (f *fakeFinalizer) Finalize(_ context.Context, dir string, chapters []chapter.Candidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, finalizeCall{dir: dir, chapters: chapters})
	return f.err
}

type fakeLedger struct {
	entries chan ledger.Entry
}

func newFakeLedger() *fakeLedger { return &fakeLedger{entries: make(chan ledger.Entry, 8)} }

func (l *fakeLedger) Record(_ context.Context, e ledger.Entry) error {
	l.entries <- e
	return nil
}

var errSpawn = errors.New("exec: streamlink: not found")
