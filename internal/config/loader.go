// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	envFiles        []string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. envFiles are .env style files
// loaded before environment overrides; missing files are ignored.
func NewLoader(configPath, version string, envFiles ...string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		envFiles:        envFiles,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	return l.load(Validate)
}

// LoadBroker loads the configuration for the credential broker, which needs
// neither channels nor recording binaries.
func (l *Loader) LoadBroker() (AppConfig, error) {
	return l.load(ValidateBroker)
}

func (l *Loader) load(validateFn func(AppConfig) error) (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := LoadDotEnv(l.envFiles...); err != nil {
		return cfg, fmt.Errorf("load env file: %w", err)
	}
	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.OutputDir); err == nil {
		cfg.OutputDir = abs
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = filepath.Join(cfg.OutputDir, "ledger.db")
	}
	cfg.FFmpeg.FFprobeBin = ResolveFFprobeBin(cfg.FFmpeg.FFprobeBin, cfg.FFmpeg.Bin)
	cfg.Version = l.version

	if err := validateFn(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// loadFile decodes a YAML file over cfg with STRICT parsing.
// Unknown fields cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.OutputDir = l.envString("ELLIER_OUTPUT_DIR", cfg.OutputDir)
	cfg.Timezone = l.envString("ELLIER_TIMEZONE", cfg.Timezone)

	// A channel given through the environment replaces the configured list.
	if id := l.envString("ELLIER_CHANNEL_ID", ""); id != "" {
		cfg.Channels = []Channel{{ID: id, Name: l.envString("ELLIER_CHANNEL_NAME", "")}}
	}

	cfg.Auth.NIDAut = l.envString("NID_AUT", cfg.Auth.NIDAut)
	cfg.Auth.NIDSes = l.envString("NID_SES", cfg.Auth.NIDSes)
	cfg.Auth.NIDJkl = l.envString("NID_JKL", cfg.Auth.NIDJkl)
	cfg.DelegatedMode = l.envBool("ELLIER_DELEGATED_MODE", cfg.DelegatedMode)
	cfg.MasterURL = l.envString("ELLIER_MASTER_URL", cfg.MasterURL)

	cfg.Broker.Listen = l.envString("ELLIER_BROKER_LISTEN", cfg.Broker.Listen)
	cfg.Broker.Token = l.envString("ELLIER_BROKER_TOKEN", cfg.Broker.Token)
	cfg.Broker.RateLimit = l.envInt("ELLIER_BROKER_RATE_LIMIT", cfg.Broker.RateLimit)
	cfg.Broker.Timeout = l.envDuration("ELLIER_BROKER_TIMEOUT", cfg.Broker.Timeout)

	cfg.FFmpeg.Enable = l.envBool("ELLIER_FFMPEG_ENABLE", cfg.FFmpeg.Enable)
	cfg.FFmpeg.Bin = l.envString("ELLIER_FFMPEG_BIN", cfg.FFmpeg.Bin)
	cfg.FFmpeg.VideoCodec = l.envString("ELLIER_FFMPEG_VIDEO_CODEC", cfg.FFmpeg.VideoCodec)
	cfg.FFmpeg.AudioCodec = l.envString("ELLIER_FFMPEG_AUDIO_CODEC", cfg.FFmpeg.AudioCodec)
	cfg.FFmpeg.Probe = l.envBool("ELLIER_FFMPEG_PROBE", cfg.FFmpeg.Probe)
	cfg.FFmpeg.FFprobeBin = l.envString("ELLIER_FFPROBE_BIN", cfg.FFmpeg.FFprobeBin)
	cfg.Streamlink.Bin = l.envString("ELLIER_STREAMLINK_BIN", cfg.Streamlink.Bin)
	cfg.MKVPropEdit.Bin = l.envString("ELLIER_MKVPROPEDIT_BIN", cfg.MKVPropEdit.Bin)
	cfg.MKVPropEdit.AudioLanguage = l.envString("ELLIER_AUDIO_LANGUAGE", cfg.MKVPropEdit.AudioLanguage)

	cfg.Session.TickInterval = l.envDuration("ELLIER_TICK_INTERVAL", cfg.Session.TickInterval)
	cfg.Session.MinDuration = l.envDuration("ELLIER_MIN_SESSION_DURATION", cfg.Session.MinDuration)
	cfg.Session.MergeWindow = l.envDuration("ELLIER_MERGE_WINDOW", cfg.Session.MergeWindow)
	cfg.Session.TranscoderDrainTimeout = l.envDuration("ELLIER_TRANSCODER_DRAIN_TIMEOUT", cfg.Session.TranscoderDrainTimeout)

	cfg.API.BaseURL = l.envString("ELLIER_API_BASE_URL", cfg.API.BaseURL)
	cfg.API.Timeout = l.envDuration("ELLIER_API_TIMEOUT", cfg.API.Timeout)
	cfg.API.Retries = l.envInt("ELLIER_API_RETRIES", cfg.API.Retries)
	cfg.API.Backoff = l.envDuration("ELLIER_API_BACKOFF", cfg.API.Backoff)
	cfg.API.RateLimit = l.envFloat("ELLIER_API_RATE_LIMIT", cfg.API.RateLimit)
	cfg.API.Burst = l.envInt("ELLIER_API_BURST", cfg.API.Burst)

	cfg.Metrics.Listen = l.envString("ELLIER_METRICS_LISTEN", cfg.Metrics.Listen)

	cfg.Telemetry.Enabled = l.envBool("ELLIER_TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("ELLIER_TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("ELLIER_TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("ELLIER_TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	cfg.Ledger.Path = l.envString("ELLIER_LEDGER_PATH", cfg.Ledger.Path)
	cfg.Log.Level = l.envString("ELLIER_LOG_LEVEL", cfg.Log.Level)
}
