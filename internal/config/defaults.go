// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Default values applied before the config file and environment.
const (
	DefaultOutputDir     = "./recordings"
	DefaultTimezone      = "+09:00"
	DefaultAPIBaseURL    = "https://api.chzzk.naver.com"
	DefaultBrokerListen  = ":3000"
	DefaultAudioLanguage = "kor"

	DefaultTickInterval           = 5 * time.Second
	DefaultMinSessionDuration     = 15 * time.Second
	DefaultMergeWindow            = 60 * time.Second
	DefaultTranscoderDrainTimeout = 30 * time.Second
)

// Defaults returns an AppConfig populated with built-in defaults only.
func Defaults() AppConfig {
	return AppConfig{
		OutputDir: DefaultOutputDir,
		Timezone:  DefaultTimezone,
		Broker: BrokerConfig{
			Listen:    DefaultBrokerListen,
			RateLimit: 60,
			Timeout:   3 * time.Second,
		},
		FFmpeg: FFmpegConfig{
			Bin:        "ffmpeg",
			VideoCodec: "copy",
			AudioCodec: "copy",
		},
		Streamlink: StreamlinkConfig{Bin: "streamlink"},
		MKVPropEdit: MKVPropEditConfig{
			Bin:           "mkvpropedit",
			AudioLanguage: DefaultAudioLanguage,
		},
		Session: SessionConfig{
			TickInterval:           DefaultTickInterval,
			MinDuration:            DefaultMinSessionDuration,
			MergeWindow:            DefaultMergeWindow,
			TranscoderDrainTimeout: DefaultTranscoderDrainTimeout,
		},
		API: APIConfig{
			BaseURL:   DefaultAPIBaseURL,
			Timeout:   10 * time.Second,
			Retries:   0,
			Backoff:   500 * time.Millisecond,
			RateLimit: 2,
			Burst:     4,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
		Log: LogConfig{Level: "info"},
	}
}
