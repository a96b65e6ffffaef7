package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ResolveBinary returns an executable path for bin. Values containing a path
// separator must point at an existing regular file; bare names go through PATH.
func ResolveBinary(bin string) (string, error) {
	bin = strings.TrimSpace(bin)
	if bin == "" {
		return "", fmt.Errorf("binary name is empty")
	}
	if strings.ContainsRune(bin, filepath.Separator) || strings.ContainsRune(bin, '/') {
		fi, err := os.Stat(bin)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", bin, err)
		}
		if fi.IsDir() {
			return "", fmt.Errorf("%s is a directory", bin)
		}
		return bin, nil
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", bin, err)
	}
	return path, nil
}

// ResolveFFprobeBin returns an effective ffprobe binary path based on configured values.
//
// Resolution order:
// 1) Explicit ffprobeBin (e.g. ELLIER_FFPROBE_BIN)
// 2) Derive from ffmpegBin (.../ffmpeg -> .../ffprobe) if the derived binary exists
// 3) "ffprobe" for PATH resolution
func ResolveFFprobeBin(ffprobeBin, ffmpegBin string) string {
	return resolveFFprobeBinWithStat(ffprobeBin, ffmpegBin, os.Stat)
}

func resolveFFprobeBinWithStat(ffprobeBin, ffmpegBin string, stat func(string) (os.FileInfo, error)) string {
	if ffprobeBin = strings.TrimSpace(ffprobeBin); ffprobeBin != "" {
		return ffprobeBin
	}

	ffmpegBin = strings.TrimSpace(ffmpegBin)
	if !strings.ContainsRune(ffmpegBin, '/') || filepath.Base(ffmpegBin) != "ffmpeg" {
		return "ffprobe"
	}

	candidate := filepath.Join(filepath.Dir(ffmpegBin), "ffprobe")
	if fi, err := stat(candidate); err == nil && fi != nil && !fi.IsDir() {
		return candidate
	}
	return "ffprobe"
}
