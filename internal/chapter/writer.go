package chapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	xglog "github.com/ManuGH/ellier/internal/log"
	"github.com/ManuGH/ellier/internal/metrics"
)

// ErrFinalize marks a failure to embed chapters into a recording. It is
// recoverable: the recording itself stays on disk.
var ErrFinalize = errors.New("chapter finalization failed")

// RecordingName is the file the capture pipeline writes.
const RecordingName = "index.mkv"

// DefaultAudioLanguage is the language tag set on the first audio track.
const DefaultAudioLanguage = "kor"

// Runner executes bin with args in dir and returns combined output.
type Runner func(ctx context.Context, dir, bin string, args ...string) ([]byte, error)

// Writer embeds a chapter list into a finished recording with mkvpropedit.
type Writer struct {
	Bin           string
	AudioLanguage string
	run           Runner
}

// NewWriter returns a Writer invoking bin.
func NewWriter(bin, audioLanguage string) *Writer {
	if bin == "" {
		bin = "mkvpropedit"
	}
	if audioLanguage == "" {
		audioLanguage = DefaultAudioLanguage
	}
	return &Writer{Bin: bin, AudioLanguage: audioLanguage, run: execRunner}
}

// WithRunner replaces the process runner. Intended for tests.
func (w *Writer) WithRunner(r Runner) *Writer {
	w.run = r
	return w
}

// Args returns the mkvpropedit arguments for a session directory.
func (w *Writer) Args() []string {
	return []string{
		RecordingName,
		"--edit", "track:a1",
		"--set", "language=" + w.AudioLanguage,
		"--chapters", FileName,
	}
}

// Finalize writes chapters.xml into dir and runs mkvpropedit against the
// recording there. Every failure wraps ErrFinalize.
func (w *Writer) Finalize(ctx context.Context, dir string, chapters []Candidate) error {
	logger := xglog.WithComponentFromContext(ctx, "chapter")

	if err := WriteFile(ctx, filepath.Join(dir, FileName), chapters); err != nil {
		metrics.IncFinalize("failure")
		return fmt.Errorf("%w: %w", ErrFinalize, err)
	}

	out, err := w.run(ctx, dir, w.Bin, w.Args()...)
	if err != nil {
		metrics.IncFinalize("failure")
		return fmt.Errorf("%w: %s: %w (output: %s)", ErrFinalize, w.Bin, err, truncate(out, 4096))
	}

	metrics.IncFinalize("success")
	logger.Info().
		Str(xglog.FieldEvent, "chapter.finalized").
		Str(xglog.FieldOutputDir, dir).
		Int("chapters", len(chapters)).
		Msg("chapters written into recording")
	return nil
}

func execRunner(ctx context.Context, dir, bin string, args ...string) ([]byte, error) {
	// #nosec G204 - binary comes from configuration; args are fixed
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
