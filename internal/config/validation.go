// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"time"

	"github.com/ManuGH/ellier/internal/validate"
)

// Validate checks the resolved configuration and returns every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Directory("output_dir", cfg.OutputDir, false)
	v.Custom("timezone", cfg.Timezone, func(any) error {
		_, err := ParseOffset(cfg.Timezone)
		return err
	})

	if len(cfg.Channels) == 0 {
		v.AddError("channels", "at least one channel is required", nil)
	}
	for i, ch := range cfg.Channels {
		v.NotEmpty(fmt.Sprintf("channels[%d].id", i), ch.ID)
	}

	if cfg.DelegatedMode {
		v.URL("master_url", cfg.MasterURL, []string{"http", "https"})
	}

	v.NotEmpty("streamlink.bin", cfg.Streamlink.Bin)
	v.NotEmpty("mkvpropedit.bin", cfg.MKVPropEdit.Bin)
	if cfg.FFmpeg.Enable {
		v.NotEmpty("ffmpeg.bin", cfg.FFmpeg.Bin)
		v.NotEmpty("ffmpeg.video_codec", cfg.FFmpeg.VideoCodec)
		v.NotEmpty("ffmpeg.audio_codec", cfg.FFmpeg.AudioCodec)
	}

	v.MinDuration("session.tick_interval", cfg.Session.TickInterval, 100*time.Millisecond)
	v.MinDuration("session.min_duration", cfg.Session.MinDuration, 0)
	v.MinDuration("session.merge_window", cfg.Session.MergeWindow, 0)
	v.MinDuration("session.transcoder_drain_timeout", cfg.Session.TranscoderDrainTimeout, time.Second)

	v.URL("api.base_url", cfg.API.BaseURL, []string{"http", "https"})
	v.MinDuration("api.timeout", cfg.API.Timeout, 100*time.Millisecond)
	// A failed poll is retried on the next tick, never inside one.
	v.Range("api.retries", cfg.API.Retries, 0, 0)
	v.MinDuration("api.backoff", cfg.API.Backoff, 0)
	if cfg.API.RateLimit <= 0 {
		v.AddError("api.rate_limit", "rate limit must be positive", cfg.API.RateLimit)
	}
	v.Positive("api.burst", cfg.API.Burst)

	v.ListenAddr("broker.listen", cfg.Broker.Listen)
	v.Positive("broker.rate_limit", cfg.Broker.RateLimit)
	v.MinDuration("broker.timeout", cfg.Broker.Timeout, 100*time.Millisecond)

	if cfg.Metrics.Listen != "" {
		v.ListenAddr("metrics.listen", cfg.Metrics.Listen)
	}
	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.sampling_rate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	v.OneOf("log.level", cfg.Log.Level, []string{"trace", "debug", "info", "warn", "error"})

	return v.Err()
}

// ValidateBroker checks the subset of the configuration used by the broker.
func ValidateBroker(cfg AppConfig) error {
	v := validate.New()
	v.ListenAddr("broker.listen", cfg.Broker.Listen)
	v.Positive("broker.rate_limit", cfg.Broker.RateLimit)
	v.NotEmpty("auth.nid_ses", cfg.Auth.NIDSes)
	v.NotEmpty("auth.nid_aut", cfg.Auth.NIDAut)
	v.NotEmpty("auth.nid_jkl", cfg.Auth.NIDJkl)
	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
	}
	v.OneOf("log.level", cfg.Log.Level, []string{"trace", "debug", "info", "warn", "error"})
	return v.Err()
}
