package fsutil

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "00-00-00.json")
	require.NoError(t, WriteFileAtomic(context.Background(), path, []byte(`{"a":1}`)))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	require.NoError(t, WriteFileAtomic(context.Background(), path, []byte(`{"a":2}`)))
	got, _ = os.ReadFile(path)
	assert.Equal(t, `{"a":2}`, string(got))
}

func TestWriteAtomicFailureLeavesOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chapters.xml")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	boom := errors.New("boom")
	err := WriteAtomic(context.Background(), path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, _ := os.ReadFile(path)
	assert.Equal(t, "old", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "pending temp file must be cleaned up")
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"streamer":       "streamer",
		"a/b":            "a_b",
		`c:\d`:           "c__d",
		"..":             "_",
		"":               "_",
		"  한국어 채널  ":      "한국어 채널",
		"line\nbreak":    "line_break",
		"what?<>|*\"now": "what______now",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeName(in), "SafeName(%q)", in)
	}
}
