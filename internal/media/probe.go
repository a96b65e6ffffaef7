// Package media inspects finished recordings.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/ellier/internal/log"
)

// ErrNoStreams means ffprobe answered but found nothing playable.
var ErrNoStreams = errors.New("ffprobe found no playable streams")

// Summary describes a recording.
type Summary struct {
	Path       string
	Size       int64
	Container  string
	VideoCodec string
	AudioCodec string
	Width      int
	Height     int
	FPS        float64
	Duration   time.Duration
}

// Prober runs ffprobe.
type Prober struct {
	Bin string
}

// NewProber returns a prober using bin, "ffprobe" when empty.
func NewProber(bin string) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{Bin: bin}
}

// Probe inspects path.
func (p *Prober) Probe(ctx context.Context, path string) (*Summary, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat recording: %w", err)
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	// #nosec G204 - binary comes from configuration; path is opaque
	cmd := exec.CommandContext(ctx, p.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, runErr := cmd.Output()
	s, parseErr := parse(out)
	if parseErr != nil {
		if runErr != nil {
			return nil, fmt.Errorf("ffprobe failed: %w (stderr: %s)", runErr, truncate(stderr.String(), 4096))
		}
		return nil, parseErr
	}
	if runErr != nil {
		// Partial files often exit non-zero but still describe their streams.
		xglog.FromContext(ctx).Warn().Err(runErr).
			Str(xglog.FieldPath, path).
			Str("stderr", truncate(stderr.String(), 4096)).
			Msg("ffprobe non-zero exit but JSON accepted")
	}

	s.Path = path
	s.Size = fi.Size()
	return s, nil
}

type probeData struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width,omitempty"`
		Height       int    `json:"height,omitempty"`
		AvgFrameRate string `json:"avg_frame_rate,omitempty"`
		Duration     string `json:"duration,omitempty"`
	} `json:"streams"`
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

func parse(out []byte) (*Summary, error) {
	var data probeData
	if err := json.Unmarshal(out, &data); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}

	s := &Summary{}
	playable := false
	for _, st := range data.Streams {
		if st.CodecName == "" {
			continue
		}
		switch st.CodecType {
		case "video":
			if s.VideoCodec != "" {
				continue
			}
			playable = true
			s.VideoCodec = st.CodecName
			s.Width = st.Width
			s.Height = st.Height
			s.FPS = parseRate(st.AvgFrameRate)
			s.Duration = parseSeconds(st.Duration)
		case "audio":
			if s.AudioCodec == "" {
				playable = true
				s.AudioCodec = st.CodecName
			}
		}
	}
	if !playable {
		return nil, ErrNoStreams
	}
	if d := parseSeconds(data.Format.Duration); d > 0 {
		s.Duration = d
	}
	s.Container, _, _ = strings.Cut(data.Format.FormatName, ",")
	return s, nil
}

func parseRate(v string) float64 {
	num, den, ok := strings.Cut(v, "/")
	if !ok {
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseSeconds(v string) time.Duration {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

// Log writes s as a single structured event.
func (s *Summary) Log(logger *zerolog.Logger) {
	logger.Info().
		Str(xglog.FieldEvent, "recording.probed").
		Str(xglog.FieldPath, s.Path).
		Int64("size_bytes", s.Size).
		Str("container", s.Container).
		Str("video_codec", s.VideoCodec).
		Str("audio_codec", s.AudioCodec).
		Str("resolution", fmt.Sprintf("%dx%d", s.Width, s.Height)).
		Float64("fps", s.FPS).
		Dur("duration", s.Duration).
		Msg("recording summary")
}
