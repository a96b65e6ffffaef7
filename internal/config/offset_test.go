// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"testing"
	"time"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		name    string
		wantErr bool
	}{
		{in: "+09:00", want: 9 * 3600, name: "+09:00"},
		{in: "-05:30", want: -(5*3600 + 30*60), name: "-05:30"},
		{in: "+0530", want: 5*3600 + 30*60, name: "+05:30"},
		{in: "+02", want: 2 * 3600, name: "+02:00"},
		{in: "Z", want: 0, name: "+00:00"},
		{in: "UTC", want: 0, name: "+00:00"},
		{in: "Asia/Seoul", wantErr: true},
		{in: "+25:00", wantErr: true},
		{in: "+09:75", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			loc, err := ParseOffset(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOffset) {
					t.Fatalf("ParseOffset(%q) err = %v, want ErrInvalidOffset", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOffset(%q): %v", tt.in, err)
			}
			name, offset := timeZone(loc)
			if offset != tt.want || name != tt.name {
				t.Errorf("ParseOffset(%q) = %s/%d, want %s/%d", tt.in, name, offset, tt.name, tt.want)
			}
		})
	}
}

func timeZone(loc *time.Location) (string, int) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
}
