package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/ellier/internal/auth"
	"github.com/ManuGH/ellier/internal/capture"
	"github.com/ManuGH/ellier/internal/chapter"
	"github.com/ManuGH/ellier/internal/chzzk"
	"github.com/ManuGH/ellier/internal/fsutil"
	"github.com/ManuGH/ellier/internal/ledger"
	xglog "github.com/ManuGH/ellier/internal/log"
	"github.com/ManuGH/ellier/internal/metrics"
	"github.com/ManuGH/ellier/internal/status"
	"github.com/ManuGH/ellier/internal/telemetry"
	"github.com/ManuGH/ellier/internal/timecode"
)

const (
	defaultTickInterval = 5 * time.Second
	defaultMinDuration  = 15 * time.Second
	defaultDrainTimeout = 30 * time.Second

	stopTranscoderGrace = 5 * time.Second
	finalizeTimeout     = 2 * time.Minute
)

// Config holds the supervisor settings.
type Config struct {
	ChannelID   string
	ChannelName string
	OutputDir   string
	Location    *time.Location

	TickInterval time.Duration
	MinDuration  time.Duration
	MergeWindow  time.Duration
	DrainTimeout time.Duration

	PostProcess   bool
	VideoCodec    string
	AudioCodec    string
	FetcherBin    string
	TranscoderBin string
}

// Deps are the collaborators of the supervisor. Poller, Launcher and
// Finalizer are required.
type Deps struct {
	Poller    Poller
	Launcher  Launcher
	Finalizer Finalizer
	Auth      auth.Source
	Ledger    Recorder
	Prober    Prober
	Now       func() time.Time
}

// Supervisor drives the recording state machine from a single goroutine.
type Supervisor struct {
	cfg       Config
	poller    Poller
	launcher  Launcher
	finalizer Finalizer
	auth      auth.Source
	ledger    Recorder
	prober    Prober
	now       func() time.Time
	tracer    trace.Tracer
	base      zerolog.Logger // no correlation fields
	logger    zerolog.Logger

	active         *Session
	notAdultWarned bool
}

// New validates deps and applies defaults to cfg.
func New(cfg Config, deps Deps) (*Supervisor, error) {
	switch {
	case deps.Poller == nil:
		return nil, errors.New("session: poller is required")
	case deps.Launcher == nil:
		return nil, errors.New("session: launcher is required")
	case deps.Finalizer == nil:
		return nil, errors.New("session: finalizer is required")
	case cfg.ChannelID == "":
		return nil, errors.New("session: channel id is required")
	}

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = defaultMinDuration
	}
	if cfg.MergeWindow <= 0 {
		cfg.MergeWindow = chapter.DefaultWindow
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.ChannelName == "" {
		cfg.ChannelName = cfg.ChannelID
	}
	if deps.Auth == nil {
		deps.Auth = auth.Static{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	base := xglog.WithComponent("session").With().
		Str(xglog.FieldChannelName, cfg.ChannelName).
		Logger()

	return &Supervisor{
		cfg:       cfg,
		poller:    deps.Poller,
		launcher:  deps.Launcher,
		finalizer: deps.Finalizer,
		auth:      deps.Auth,
		ledger:    deps.Ledger,
		prober:    deps.Prober,
		now:       deps.Now,
		tracer:    telemetry.Tracer("ellier/session"),
		base:      base,
		logger:    xglog.WithContext(xglog.ContextWithChannelID(context.Background(), cfg.ChannelID), base),
	}, nil
}

// State reports whether a recording is active.
func (s *Supervisor) State() State {
	if s.active != nil {
		return Recording
	}
	return Idle
}

// Run loops until ctx is cancelled. On cancellation an active recording is
// stopped and finalized before Run returns.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info().
		Str(xglog.FieldEvent, "supervisor.started").
		Dur("tick_interval", s.cfg.TickInterval).
		Msg("watching channel")

	for {
		wait := s.tick(ctx)
		if ctx.Err() != nil {
			s.shutdown()
			return nil
		}
		if !wait {
			continue
		}

		timer := time.NewTimer(s.cfg.TickInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.shutdown()
			return nil
		case <-timer.C:
		}
	}
}

// tick runs one step of the state machine and reports whether the standard
// delay should follow.
func (s *Supervisor) tick(ctx context.Context) bool {
	creds := s.resolveAuth(ctx)
	if s.active == nil {
		s.tickIdle(ctx, creds)
		return true
	}
	return s.tickRecording(ctx, creds)
}

func (s *Supervisor) resolveAuth(ctx context.Context) *chzzk.Auth {
	creds, err := s.auth.Resolve(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn().Err(err).Str(xglog.FieldEvent, "auth.resolve_failed").Msg("continuing without credentials")
		}
		return nil
	}
	return creds
}

func (s *Supervisor) tickIdle(ctx context.Context, creds *chzzk.Auth) {
	res, err := s.poller.Poll(ctx, s.cfg.ChannelID, creds)
	switch {
	case errors.Is(err, status.ErrNotAdult):
		if !s.notAdultWarned {
			s.notAdultWarned = true
			s.logger.Warn().Str(xglog.FieldEvent, "session.skipped_adult").Msg("broadcast requires adult verified credentials, skipping")
		}
		return
	case err != nil:
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Str(xglog.FieldEvent, "status.poll_failed").Msg("status poll failed")
		}
		return
	}

	if !res.Snapshot.Open {
		s.notAdultWarned = false
	}
	if !res.Live() {
		s.logger.Debug().Bool("open", res.Snapshot.Open).Msg("channel not streamable")
		return
	}
	s.startSession(ctx, res, creds)
}

func (s *Supervisor) startSession(ctx context.Context, res status.Result, creds *chzzk.Auth) {
	start := s.now()
	id := uuid.NewString()
	dir := filepath.Join(s.cfg.OutputDir, fsutil.SafeName(s.cfg.ChannelName), start.In(s.cfg.Location).Format(DirLayout))

	// Session work outlives the shutdown signal, so only values are inherited.
	sctx := xglog.ContextWithChannelID(context.WithoutCancel(ctx), s.cfg.ChannelID)
	sctx = xglog.ContextWithSessionID(sctx, id)
	logger := xglog.WithContext(sctx, s.base)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		logger.Error().Err(err).Str(xglog.FieldOutputDir, dir).Msg("create session directory")
		return
	}

	snap := res.Snapshot
	if res.Detail != nil {
		snap = status.FromLiveDetail(res.Detail)
	}

	p, err := s.launcher.Launch(sctx, capture.Spec{
		StreamURL:     res.StreamURL,
		OutputDir:     dir,
		PostProcess:   s.cfg.PostProcess,
		VideoCodec:    s.cfg.VideoCodec,
		AudioCodec:    s.cfg.AudioCodec,
		FetcherBin:    s.cfg.FetcherBin,
		TranscoderBin: s.cfg.TranscoderBin,
		Cookies:       creds.CookiePairs(),
		Title:         snap.Title,
		Artist:        s.cfg.ChannelName,
	})
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "pipeline.spawn_failed").Msg("could not start capture")
		if err := os.Remove(dir); err != nil {
			logger.Debug().Err(err).
				Str(xglog.FieldEvent, "session.cleanup_failed").
				Str(xglog.FieldOutputDir, dir).
				Msg("remove session directory")
		}
		return
	}

	sctx, span := s.tracer.Start(sctx, "session.record", trace.WithAttributes(
		telemetry.SessionAttributes(id, "recording", 0, 0)...,
	), trace.WithAttributes(
		telemetry.BroadcastAttributes(s.cfg.ChannelID, snap.Title)...,
	))

	sess := &Session{
		ID:        id,
		Dir:       dir,
		StartedAt: start.In(s.cfg.Location),
		start:     start,
		ctx:       sctx,
		span:      span,
		pipeline:  p,
		tracker:   chapter.NewTracker(s.cfg.MergeWindow),
	}
	sess.tracker.Observe(0, snap)
	if err := s.writeSidecar(sess, 0, res.Detail); err != nil {
		logger.Warn().Err(err).Msg("write live detail sidecar")
	}
	sess.last = snap
	s.active = sess

	metrics.IncSessionStarted()
	logger.Info().
		Str(xglog.FieldEvent, "session.started").
		Str(xglog.FieldOldState, Idle.String()).
		Str(xglog.FieldNewState, Recording.String()).
		Str(xglog.FieldOutputDir, dir).
		Str(xglog.FieldTitle, snap.Title).
		Str(xglog.FieldCategory, snap.Category.Label()).
		Msgf("%s - %q Playing %s", timecode.Readable(0, ":"), snap.Title, labelOrUnknown(snap))
}

func (s *Supervisor) tickRecording(ctx context.Context, creds *chzzk.Auth) bool {
	sess := s.active
	if st := sess.pipeline.PollExit(); st.Done() {
		s.endSession(st)
		return false
	}

	res, err := s.poller.Status(ctx, s.cfg.ChannelID, creds)
	if err != nil {
		if ctx.Err() == nil {
			s.sessionLogger(sess).Warn().Err(err).Str(xglog.FieldEvent, "status.poll_failed").Msg("status poll failed while recording")
		}
		return true
	}

	elapsed := sess.Elapsed(s.now())
	snap := res.Snapshot
	logger := s.sessionLogger(sess)

	if r := sess.tracker.ObserveResult(elapsed, snap); r != chapter.Unchanged {
		logger.Info().
			Str(xglog.FieldEvent, "chapter.changed").
			Str("kind", r.String()).
			Str(xglog.FieldElapsed, timecode.Readable(elapsed, ":")).
			Int("chapters", sess.tracker.Len()).
			Msg("chapter list updated")
	}

	changes := status.Changes(sess.last, snap)
	if !changes.Any() {
		return true
	}
	if err := s.writeSidecar(sess, elapsed, res.Status); err != nil {
		logger.Warn().Err(err).Msg("write status sidecar")
		return true
	}
	sess.last = snap
	logger.Info().
		Str(xglog.FieldEvent, "status.changed").
		Strs("changed", changes.Kinds()).
		Str(xglog.FieldTitle, snap.Title).
		Str(xglog.FieldCategory, snap.Category.Label()).
		Msgf("%s - %q Playing %s", timecode.Readable(elapsed, ":"), snap.Title, labelOrUnknown(snap))
	return true
}

// endSession handles a fetcher that exited on its own.
func (s *Supervisor) endSession(st capture.ExitState) {
	sess := s.active
	s.active = nil
	elapsed := sess.Elapsed(s.now())
	logger := s.sessionLogger(sess)

	logger.Info().
		Str(xglog.FieldEvent, "session.closed").
		Str(xglog.FieldOldState, Recording.String()).
		Str(xglog.FieldNewState, Idle.String()).
		Str("exit", st.Kind.String()).
		Str(xglog.FieldElapsed, timecode.Readable(elapsed, ":")).
		Msg("live stream closed")

	if elapsed < s.cfg.MinDuration {
		if err := sess.pipeline.StopTranscoder(stopTranscoderGrace); err != nil {
			logger.Debug().Err(err).Msg("transcoder stopped")
		}
		if err := os.RemoveAll(sess.Dir); err != nil {
			logger.Error().Err(err).Str(xglog.FieldOutputDir, sess.Dir).Msg("remove short session")
		} else {
			logger.Info().
				Str(xglog.FieldEvent, "session.discarded").
				Dur("min_duration", s.cfg.MinDuration).
				Msg("removed recording shorter than minimum duration")
		}
		s.finish(sess, ledger.OutcomeDiscarded, elapsed, nil)
		return
	}

	s.drainTranscoder(sess)
	err := s.finalize(sess)
	s.probe(sess)
	s.finish(sess, ledger.OutcomeKept, elapsed, err)
}

// shutdown stops an active recording after the stop signal.
func (s *Supervisor) shutdown() {
	sess := s.active
	if sess == nil {
		s.logger.Info().Str(xglog.FieldEvent, "supervisor.stopped").Msg("received stop signal")
		return
	}
	s.active = nil
	elapsed := sess.Elapsed(s.now())
	logger := s.sessionLogger(sess)
	logger.Info().
		Str(xglog.FieldEvent, "supervisor.stopped").
		Str(xglog.FieldElapsed, timecode.Readable(elapsed, ":")).
		Msg("received stop signal, stopping recording")

	sess.pipeline.Terminate()
	// Chapters go only into a drained transcoder output.
	var err error
	if sess.pipeline.HasTranscoder() {
		s.drainTranscoder(sess)
		err = s.finalize(sess)
	}
	s.finish(sess, ledger.OutcomeInterrupted, elapsed, err)
}

func (s *Supervisor) drainTranscoder(sess *Session) {
	if !sess.pipeline.HasTranscoder() {
		return
	}
	ctx, cancel := context.WithTimeout(sess.ctx, s.cfg.DrainTimeout)
	defer cancel()
	if err := sess.pipeline.WaitTranscoder(ctx); err != nil {
		s.sessionLogger(sess).Warn().Err(err).
			Dur("drain_timeout", s.cfg.DrainTimeout).
			Msg("transcoder did not finish in time, stopping it")
		_ = sess.pipeline.StopTranscoder(stopTranscoderGrace)
	}
}

func (s *Supervisor) finalize(sess *Session) error {
	ctx, cancel := context.WithTimeout(sess.ctx, finalizeTimeout)
	defer cancel()

	chapters := sess.tracker.Chapters()
	if err := s.finalizer.Finalize(ctx, sess.Dir, chapters); err != nil {
		s.sessionLogger(sess).Error().Err(err).
			Str(xglog.FieldEvent, "chapter.finalize_failed").
			Msg("could not write chapters into recording")
		return err
	}
	return nil
}

func (s *Supervisor) probe(sess *Session) {
	if s.prober == nil {
		return
	}
	summary, err := s.prober.Probe(sess.ctx, sess.pipeline.OutputPath())
	if err != nil {
		s.sessionLogger(sess).Warn().Err(err).Msg("probe recording")
		return
	}
	summary.Log(s.sessionLogger(sess))
}

func (s *Supervisor) finish(sess *Session, outcome ledger.Outcome, elapsed time.Duration, finalizeErr error) {
	chapters := sess.tracker.Len()
	metrics.ObserveSessionEnded(string(outcome), elapsed)

	sess.span.SetAttributes(telemetry.SessionAttributes(sess.ID, string(outcome), elapsed, chapters)...)
	if finalizeErr != nil {
		sess.span.SetAttributes(telemetry.ErrorAttributes("finalize")...)
		sess.span.RecordError(finalizeErr)
		sess.span.SetStatus(codes.Error, "finalize failed")
	}
	sess.span.End()

	if s.ledger != nil {
		entry := ledger.Entry{
			ID:          sess.ID,
			ChannelID:   s.cfg.ChannelID,
			ChannelName: s.cfg.ChannelName,
			OutputDir:   sess.Dir,
			StartedAt:   sess.StartedAt,
			Duration:    elapsed,
			Outcome:     outcome,
			Chapters:    chapters,
		}
		if finalizeErr != nil {
			entry.FinalizeError = finalizeErr.Error()
		}
		if err := s.ledger.Record(sess.ctx, entry); err != nil {
			s.sessionLogger(sess).Warn().Err(err).Msg("record session in ledger")
		}
	}

	s.sessionLogger(sess).Info().
		Str(xglog.FieldEvent, "session.ended").
		Str("outcome", string(outcome)).
		Int("chapters", chapters).
		Dur("duration", elapsed).
		Msg("session ended")
}

func (s *Supervisor) writeSidecar(sess *Session, elapsed time.Duration, payload any) error {
	data, err := sidecarJSON(payload)
	if err != nil {
		return err
	}
	path := filepath.Join(sess.Dir, timecode.SidecarName(elapsed))
	if err := fsutil.WriteFileAtomic(sess.ctx, path, data); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}

// sidecarJSON prefers the payload exactly as the API returned it.
func sidecarJSON(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case *chzzk.LiveDetail:
		if v != nil && len(v.Raw) > 0 {
			return v.Raw, nil
		}
	case *chzzk.LiveStatus:
		if v != nil && len(v.Raw) > 0 {
			return v.Raw, nil
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode sidecar: %w", err)
	}
	return data, nil
}

func (s *Supervisor) sessionLogger(sess *Session) *zerolog.Logger {
	l := xglog.WithContext(sess.ctx, s.base)
	return &l
}

func labelOrUnknown(snap status.Snapshot) string {
	if l := snap.Category.Label(); l != "" {
		return l
	}
	return "unknown"
}
