// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command ellier records a CHZZK channel and embeds chapter markers into
// each finished recording.
package main

import (
	"os"

	xglog "github.com/ManuGH/ellier/internal/log"
	"github.com/ManuGH/ellier/internal/version"
)

func main() {
	// Safe defaults until a command loads its configuration.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "ellier",
		Version: version.Version,
	})

	if err := newRootCmd().Execute(); err != nil {
		logger := xglog.WithComponent("cli")
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "cli.failed").
			Msg("command failed")
		os.Exit(1)
	}
}
