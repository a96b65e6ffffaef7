// SPDX-License-Identifier: MIT

// Package fsutil holds small filesystem helpers shared by the recorder.
package fsutil

import (
	"context"
	"fmt"
	"io"

	xglog "github.com/ManuGH/ellier/internal/log"
	"github.com/google/renameio/v2"
)

// WriteAtomic writes path through a pending file that is fsynced and renamed
// into place only when write succeeds. Readers never observe a partial file.
func WriteAtomic(ctx context.Context, path string, write func(io.Writer) error) error {
	logger := xglog.FromContext(ctx)

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		// No-op once committed.
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Str(xglog.FieldPath, path).Msg("cleanup pending file")
		}
	}()

	if err := write(pendingFile); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}

// WriteFileAtomic is WriteAtomic for an in-memory payload.
func WriteFileAtomic(ctx context.Context, path string, data []byte) error {
	return WriteAtomic(ctx, path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
