package media

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probeJSON = `{
  "streams": [
    {"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "avg_frame_rate": "60000/1001"},
    {"codec_type": "audio", "codec_name": "aac"},
    {"codec_type": "data", "codec_name": ""}
  ],
  "format": {"duration": "3600.500000", "format_name": "matroska,webm"}
}`

func TestParse(t *testing.T) {
	s, err := parse([]byte(probeJSON))
	require.NoError(t, err)

	assert.Equal(t, "h264", s.VideoCodec)
	assert.Equal(t, "aac", s.AudioCodec)
	assert.Equal(t, 1920, s.Width)
	assert.Equal(t, 1080, s.Height)
	assert.InDelta(t, 59.94, s.FPS, 0.01)
	assert.Equal(t, 3600*time.Second+500*time.Millisecond, s.Duration)
	assert.Equal(t, "matroska", s.Container)
}

func TestParseRejectsEmpty(t *testing.T) {
	_, err := parse([]byte(`{"streams": [], "format": {}}`))
	assert.ErrorIs(t, err, ErrNoStreams)

	_, err = parse([]byte("not json"))
	assert.Error(t, err)
}

func TestParseRate(t *testing.T) {
	assert.Equal(t, 30.0, parseRate("30/1"))
	assert.Equal(t, 0.0, parseRate("0/0"))
	assert.Equal(t, 25.0, parseRate("25"))
	assert.Equal(t, 0.0, parseRate(""))
}

func TestProbeWithFakeBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake binary")
	}
	dir := t.TempDir()
	rec := filepath.Join(dir, "index.mkv")
	require.NoError(t, os.WriteFile(rec, []byte("0123456789"), 0o644))

	fixture := filepath.Join(dir, "probe.json")
	require.NoError(t, os.WriteFile(fixture, []byte(probeJSON), 0o644))
	bin := filepath.Join(dir, "ffprobe")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\ncat '"+fixture+"'\n"), 0o755))

	s, err := NewProber(bin).Probe(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, int64(10), s.Size)
	assert.Equal(t, rec, s.Path)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	s.Log(&logger)
	assert.Contains(t, buf.String(), `"resolution":"1920x1080"`)
	assert.Contains(t, buf.String(), `"event":"recording.probed"`)
}

func TestProbeMissingFile(t *testing.T) {
	_, err := NewProber("").Probe(context.Background(), filepath.Join(t.TempDir(), "nope.mkv"))
	assert.Error(t, err)
}
