// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/ManuGH/ellier/internal/auth"
	"github.com/ManuGH/ellier/internal/chapter"
	"github.com/ManuGH/ellier/internal/chzzk"
	"github.com/ManuGH/ellier/internal/config"
	"github.com/ManuGH/ellier/internal/daemon"
	"github.com/ManuGH/ellier/internal/ledger"
	xglog "github.com/ManuGH/ellier/internal/log"
	"github.com/ManuGH/ellier/internal/media"
	"github.com/ManuGH/ellier/internal/session"
	"github.com/ManuGH/ellier/internal/status"
	"github.com/ManuGH/ellier/internal/telemetry"
)

type recordOptions struct {
	index int
	name  string
}

func (r *recordOptions) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&r.index, "index", -1, "index of the configured channel to record")
	cmd.Flags().StringVar(&r.name, "name", "", "name or id of the configured channel to record")
	cmd.MarkFlagsMutuallyExclusive("index", "name")
}

func newRecordCmd(opts *rootOptions) *cobra.Command {
	rec := &recordOptions{index: -1}
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Watch the selected channel and record every broadcast",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecord(cmd, opts, rec)
		},
	}
	rec.bind(cmd)
	return cmd
}

func newAPIClient(cfg config.APIConfig) *chzzk.Client {
	return chzzk.NewClient(cfg.BaseURL, chzzk.Options{
		Timeout:        cfg.Timeout,
		MaxRetries:     cfg.Retries,
		Backoff:        cfg.Backoff,
		RateLimit:      rate.Limit(cfg.RateLimit),
		RateLimitBurst: cfg.Burst,
	})
}

// binaries are the resolved external tools.
type binaries struct {
	streamlink  string
	ffmpeg      string
	mkvpropedit string
	ffprobe     string
}

func resolveBinaries(cfg config.AppConfig, logger *zerolog.Logger) (binaries, error) {
	var (
		b   binaries
		err error
	)
	if b.streamlink, err = config.ResolveBinary(cfg.Streamlink.Bin); err != nil {
		return b, fmt.Errorf("streamlink: %w", err)
	}
	if b.mkvpropedit, err = config.ResolveBinary(cfg.MKVPropEdit.Bin); err != nil {
		return b, fmt.Errorf("mkvpropedit: %w", err)
	}
	// streamlink is handed ffmpeg even when nothing is transcoded.
	if b.ffmpeg, err = config.ResolveBinary(cfg.FFmpeg.Bin); err != nil {
		if cfg.FFmpeg.Enable {
			return b, fmt.Errorf("ffmpeg: %w", err)
		}
		b.ffmpeg = cfg.FFmpeg.Bin
	}
	if cfg.FFmpeg.Probe {
		if b.ffprobe, err = config.ResolveBinary(cfg.FFmpeg.FFprobeBin); err != nil {
			logger.Warn().
				Err(err).
				Str(xglog.FieldEvent, "startup.ffprobe_missing").
				Msg("ffprobe not found, recording summaries disabled")
			b.ffprobe = ""
		}
	}
	return b, nil
}

// credentialSource picks static or delegated credentials. Delegated
// credentials are fetched once here so a dead broker aborts startup.
func credentialSource(ctx context.Context, cfg config.AppConfig) (auth.Source, error) {
	if !cfg.DelegatedMode {
		return auth.Static{Auth: &chzzk.Auth{
			NIDAut: cfg.Auth.NIDAut,
			NIDSes: cfg.Auth.NIDSes,
			NIDJkl: cfg.Auth.NIDJkl,
		}}, nil
	}
	b := auth.NewBroker(cfg.MasterURL, cfg.Broker.Token, cfg.Broker.Timeout)
	if _, err := b.Resolve(ctx); err != nil {
		return nil, fmt.Errorf("resolve delegated credentials: %w", err)
	}
	return b, nil
}

// channelName returns the display name the API reports for channelID.
func channelName(ctx context.Context, api status.API, channelID string, src auth.Source) (string, error) {
	creds, err := src.Resolve(ctx)
	if err != nil {
		return "", err
	}
	detail, err := api.GetLiveDetail(ctx, channelID, creds)
	if err != nil {
		return "", fmt.Errorf("resolve channel name: %w", err)
	}
	name := strings.TrimSpace(detail.Channel.ChannelName)
	if name == "" {
		return "", errors.New("resolve channel name: empty channel name")
	}
	return name, nil
}

func runRecord(cmd *cobra.Command, opts *rootOptions, rec *recordOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), stopSignals...)
	defer stop()

	cfg, err := opts.loader().Load()
	if err != nil {
		return err
	}
	configureLogging(cfg)
	logger := xglog.WithComponent("record")

	ch, err := cfg.SelectChannel(rec.index, rec.name)
	if err != nil {
		return err
	}
	bins, err := resolveBinaries(cfg, &logger)
	if err != nil {
		return err
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "ellier",
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	client := newAPIClient(cfg.API)

	src, err := credentialSource(ctx, cfg)
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return err
	}
	name, err := channelName(ctx, client, ch.ID, src)
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return err
	}

	store, err := ledger.Open(ctx, cfg.Ledger.Path)
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return err
	}

	deps := session.Deps{
		Poller:    status.NewPoller(client),
		Launcher:  session.CaptureLauncher,
		Finalizer: chapter.NewWriter(bins.mkvpropedit, cfg.MKVPropEdit.AudioLanguage),
		Auth:      src,
		Ledger:    store,
	}
	if bins.ffprobe != "" {
		deps.Prober = media.NewProber(bins.ffprobe)
	}
	sup, err := session.New(session.Config{
		ChannelID:     ch.ID,
		ChannelName:   name,
		OutputDir:     cfg.OutputDir,
		Location:      cfg.Location(),
		TickInterval:  cfg.Session.TickInterval,
		MinDuration:   cfg.Session.MinDuration,
		MergeWindow:   cfg.Session.MergeWindow,
		DrainTimeout:  cfg.Session.TranscoderDrainTimeout,
		PostProcess:   cfg.FFmpeg.Enable,
		VideoCodec:    cfg.FFmpeg.VideoCodec,
		AudioCodec:    cfg.FFmpeg.AudioCodec,
		FetcherBin:    bins.streamlink,
		TranscoderBin: bins.ffmpeg,
	}, deps)
	if err != nil {
		_ = store.Close()
		_ = tp.Shutdown(context.Background())
		return err
	}

	mgr, err := daemon.NewManager(daemon.Deps{
		Logger:  logger,
		Workers: []daemon.Worker{{Name: "supervisor", Run: sup.Run}},
		Servers: []daemon.Server{metricsServer(cfg.Metrics.Listen)},
	})
	if err != nil {
		_ = store.Close()
		_ = tp.Shutdown(context.Background())
		return err
	}
	// Hooks run LIFO: the ledger closes before telemetry flushes.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("ledger", func(context.Context) error { return store.Close() })

	logger.Info().
		Str(xglog.FieldEvent, "record.starting").
		Str(xglog.FieldChannelID, ch.ID).
		Str(xglog.FieldChannelName, name).
		Str(xglog.FieldOutputDir, cfg.OutputDir).
		Bool("post_process", cfg.FFmpeg.Enable).
		Bool("delegated_mode", cfg.DelegatedMode).
		Msg("recorder starting")

	return mgr.Start(ctx)
}

// metricsServer exposes Prometheus metrics. An empty addr leaves it disabled.
func metricsServer(addr string) daemon.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return daemon.Server{Name: "metrics", Addr: addr, Handler: r}
}
