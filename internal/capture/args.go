package capture

import (
	"path/filepath"
	"strings"
)

// OutputName is the recording written into the session directory.
const OutputName = "index.mkv"

// Spec describes one capture.
type Spec struct {
	StreamURL   string
	OutputDir   string
	PostProcess bool
	VideoCodec  string
	AudioCodec  string

	FetcherBin    string
	TranscoderBin string

	// Cookies are NAME=VALUE pairs forwarded to the fetcher.
	Cookies []string

	Title  string
	Artist string
}

// OutputPath is the recording file for s.
func (s Spec) OutputPath() string {
	return filepath.Join(s.OutputDir, OutputName)
}

func (s Spec) transcoderBin() string {
	if s.TranscoderBin == "" {
		return "ffmpeg"
	}
	return s.TranscoderBin
}

// FetcherArgs builds the streamlink command line. Streamlink muxes with the
// same ffmpeg the transcoder uses, keeping source timestamps.
func FetcherArgs(s Spec) []string {
	args := []string{
		s.StreamURL, "best",
		"--loglevel", "info",
		"--ffmpeg-ffmpeg", s.transcoderBin(),
		"--ffmpeg-copyts",
		"--ffmpeg-fout", "matroska",
	}
	for _, c := range s.Cookies {
		args = append(args, "--http-cookie", c)
	}
	if s.PostProcess {
		return append(args, "--stdout")
	}
	return append(args, "-o", s.OutputPath())
}

// TranscoderArgs builds the ffmpeg command line reading from stdin.
func TranscoderArgs(s Spec) []string {
	args := []string{
		"-loglevel", "info",
		"-i", "pipe:",
		"-c:v", s.VideoCodec,
		"-c:a", s.AudioCodec,
	}
	if s.Title != "" {
		args = append(args, "-metadata", "title="+EscapeMetadata(s.Title))
	}
	if s.Artist != "" {
		args = append(args, "-metadata", "artist="+EscapeMetadata(s.Artist))
	}
	return append(args, s.OutputPath())
}

var metadataEscaper = strings.NewReplacer(
	`\`, `\\`,
	`=`, `\=`,
	`;`, `\;`,
	`#`, `\#`,
	"\r\n", " ",
	"\n", " ",
)

// EscapeMetadata escapes a value for an ffmpeg -metadata key=value argument.
func EscapeMetadata(v string) string {
	return metadataEscaper.Replace(v)
}
