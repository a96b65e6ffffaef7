package main

import (
	"context"
	"fmt"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ManuGH/ellier/internal/broker"
	"github.com/ManuGH/ellier/internal/chzzk"
	"github.com/ManuGH/ellier/internal/config"
	"github.com/ManuGH/ellier/internal/daemon"
	xglog "github.com/ManuGH/ellier/internal/log"
	"github.com/ManuGH/ellier/internal/telemetry"
)

func newBrokerCmd(opts *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "broker",
		Short: "Serve the CHZZK credentials to recorders in delegated mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loader().LoadBroker()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Broker.Listen = listen
			}
			return runBroker(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides broker.listen")
	return cmd
}

func runBroker(ctx context.Context, cfg config.AppConfig) error {
	ctx, stop := signal.NotifyContext(ctx, stopSignals...)
	defer stop()

	configureLogging(cfg)
	logger := xglog.WithComponent("broker")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "ellier-broker",
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	handler := broker.NewHandler(broker.Config{
		Credentials: chzzk.Auth{
			NIDAut: cfg.Auth.NIDAut,
			NIDSes: cfg.Auth.NIDSes,
			NIDJkl: cfg.Auth.NIDJkl,
		},
		Token:     cfg.Broker.Token,
		RateLimit: cfg.Broker.RateLimit,
		Metrics:   cfg.Metrics.Listen == "",
	})

	mgr, err := daemon.NewManager(daemon.Deps{
		Logger: logger,
		Servers: []daemon.Server{
			{Name: "broker", Addr: cfg.Broker.Listen, Handler: handler},
			metricsServer(cfg.Metrics.Listen),
		},
	})
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return err
	}
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)

	logger.Info().
		Str(xglog.FieldEvent, "broker.starting").
		Str("listen", cfg.Broker.Listen).
		Bool("token_required", cfg.Broker.Token != "").
		Int("rate_limit", cfg.Broker.RateLimit).
		Msg("credential broker starting")

	return mgr.Start(ctx)
}
