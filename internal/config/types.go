// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the fully resolved recorder configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	OutputDir string    `yaml:"output_dir"`
	Timezone  string    `yaml:"timezone"`
	Channels  []Channel `yaml:"channels"`

	Auth          AuthConfig `yaml:"auth"`
	DelegatedMode bool       `yaml:"delegated_mode"`
	MasterURL     string     `yaml:"master_url"`

	Broker      BrokerConfig      `yaml:"broker"`
	FFmpeg      FFmpegConfig      `yaml:"ffmpeg"`
	Streamlink  StreamlinkConfig  `yaml:"streamlink"`
	MKVPropEdit MKVPropEditConfig `yaml:"mkvpropedit"`
	Session     SessionConfig     `yaml:"session"`
	API         APIConfig         `yaml:"api"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Log         LogConfig         `yaml:"log"`
}

// Channel identifies one watchable CHZZK channel.
type Channel struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// AuthConfig holds the NAVER session cookies used against the CHZZK API.
type AuthConfig struct {
	NIDAut string `yaml:"nid_aut"`
	NIDSes string `yaml:"nid_ses"`
	NIDJkl string `yaml:"nid_jkl"`
}

// Empty reports whether no credential is set.
func (a AuthConfig) Empty() bool {
	return a.NIDAut == "" && a.NIDSes == "" && a.NIDJkl == ""
}

// BrokerConfig configures the credential broker, both serving and consuming side.
type BrokerConfig struct {
	Listen    string        `yaml:"listen"`
	Token     string        `yaml:"token"`
	RateLimit int           `yaml:"rate_limit"` // requests per minute per client IP
	Timeout   time.Duration `yaml:"timeout"`
}

// FFmpegConfig configures the optional transcoder stage.
type FFmpegConfig struct {
	Enable     bool   `yaml:"enable"`
	Bin        string `yaml:"bin"`
	VideoCodec string `yaml:"video_codec"`
	AudioCodec string `yaml:"audio_codec"`
	Probe      bool   `yaml:"probe"`
	FFprobeBin string `yaml:"ffprobe_bin"`
}

// StreamlinkConfig configures the fetcher stage.
type StreamlinkConfig struct {
	Bin string `yaml:"bin"`
}

// MKVPropEditConfig configures the chapter writer.
type MKVPropEditConfig struct {
	Bin           string `yaml:"bin"`
	AudioLanguage string `yaml:"audio_language"`
}

// SessionConfig tunes the supervisor loop.
type SessionConfig struct {
	TickInterval           time.Duration `yaml:"tick_interval"`
	MinDuration            time.Duration `yaml:"min_duration"`
	MergeWindow            time.Duration `yaml:"merge_window"`
	TranscoderDrainTimeout time.Duration `yaml:"transcoder_drain_timeout"`
}

// APIConfig tunes the CHZZK HTTP client.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	Retries   int           `yaml:"retries"`
	Backoff   time.Duration `yaml:"backoff"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second
	Burst     int           `yaml:"burst"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// LedgerConfig configures the session history database.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level string `yaml:"level"`
}
