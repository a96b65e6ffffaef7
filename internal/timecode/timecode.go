// Package timecode formats elapsed recording time for file names and chapter markers.
package timecode

import (
	"fmt"
	"strings"
	"time"
)

// Split breaks d into whole hours, minutes and seconds. Negative durations count as zero.
func Split(d time.Duration) (h, m, s int64) {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return secs / 3600, secs % 3600 / 60, secs % 60
}

// Readable renders d as HH<sep>MM<sep>SS with each part zero padded to two digits.
// Hours are not capped, so 100h renders as "100".
func Readable(d time.Duration, sep string) string {
	h, m, s := Split(d)
	return fmt.Sprintf("%02d%s%02d%s%02d", h, sep, m, sep, s)
}

// Unknown is the placeholder used when no elapsed time is available.
func Unknown(sep string) string {
	return strings.Join([]string{"??", "??", "??"}, sep)
}

// Chapter renders d as a Matroska chapter timestamp, HH:MM:SS.000.
func Chapter(d time.Duration) string {
	return Readable(d, ":") + ".000"
}

// SidecarName is the file name for a metadata snapshot taken at elapsed d.
func SidecarName(d time.Duration) string {
	return Readable(d, "-") + ".json"
}
