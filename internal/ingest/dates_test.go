package ingest

import (
	"testing"
)

func TestParseDateRobust(t *testing.T) {
	tests := []struct {
		in   string
		want string // "2006-01-02", "" = expect error
	}{
		{"2026-09-19", "2026-09-19"},
		{"2026-09-19T10:00:00Z", "2026-09-19"},
		{"09/19/2026", "2026-09-19"},
		{"9/1/2026", "2026-09-01"},
		{"September 19, 2026", "2026-09-19"},
		{"Sep 19, 2026", "2026-09-19"},
		{"19 September 2026", "2026-09-19"},
		{"Start date: 2026-09-19", "2026-09-19"},
		{"DATE: 2026-09-19", "2026-09-19"},
		// Runes whose lowercase form is longer in bytes must not break
		// label stripping.
		{"ȺȺȺȺȺdate: 2026-09-19", "2026-09-19"},
		{"ȺȺȺȺȺdate:", ""},
		{"event runs 9/19/2026 rain or shine", "2026-09-19"},
		{"join us September 19, 2026 at noon", "2026-09-19"},
		{"", ""},
		{"sometime next fall", ""},
		{"19/9/2026", ""}, // day-first is not a corpus format
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDateRobust(tt.in)
			if tt.want == "" {
				if err == nil {
					t.Errorf("parseDateRobust(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDateRobust(%q) error: %v", tt.in, err)
			}
			if got.Format("2006-01-02") != tt.want {
				t.Errorf("parseDateRobust(%q) = %s, want %s", tt.in, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"9am", "09:00"},
		{"9AM", "09:00"},
		{"9:30 AM", "09:30"},
		{"2:15PM", "14:15"},
		{"14:00", "14:00"},
		{"14:00:30", "14:00"},
		{"9 p.m.", "21:00"},
		{"noon-ish", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseClockTime(tt.in); got != tt.want {
				t.Errorf("parseClockTime(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
