// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseOffset parses a fixed UTC offset such as "+09:00", "-0530" or "Z".
func ParseOffset(raw string) (*time.Location, error) {
	s := strings.TrimSpace(raw)
	switch strings.ToUpper(s) {
	case "Z", "UTC", "+00:00", "-00:00":
		return time.FixedZone("+00:00", 0), nil
	}
	if len(s) < 3 || (s[0] != '+' && s[0] != '-') {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOffset, raw)
	}

	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	body := strings.ReplaceAll(s[1:], ":", "")

	var hh, mm int
	var err error
	switch len(body) {
	case 2:
		hh, err = strconv.Atoi(body)
	case 4:
		hh, err = strconv.Atoi(body[:2])
		if err == nil {
			mm, err = strconv.Atoi(body[2:])
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidOffset, raw)
	}
	if err != nil || hh > 14 || mm > 59 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOffset, raw)
	}

	secs := sign * (hh*3600 + mm*60)
	name := fmt.Sprintf("%c%02d:%02d", s[0], hh, mm)
	return time.FixedZone(name, secs), nil
}

// Location returns the configured fixed offset zone. Callers run after
// validation, so a parse failure falls back to UTC.
func (c AppConfig) Location() *time.Location {
	loc, err := ParseOffset(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
