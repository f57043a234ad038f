// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"
	"time"

	"github.com/pixelwarden/pixelwarden/lib/config"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 1, hour, minute, 0, 0, time.UTC)
}

func TestNightPause(t *testing.T) {
	tests := []struct {
		name       string
		now        time.Time
		start, end int
		want       time.Duration
	}{
		{"inside window", at(1, 30), 0, 6, 4*time.Hour + 30*time.Minute},
		{"window start", at(2, 0), 2, 7, 5 * time.Hour},
		{"window end", at(6, 0), 0, 6, 0},
		{"before window", at(23, 10), 0, 6, 0},
		{"empty window", at(3, 0), 3, 3, 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := nightPause(test.now, test.start, test.end); got != test.want {
				t.Errorf("nightPause(%s, %d, %d) = %v, want %v",
					test.now.Format("15:04"), test.start, test.end, got, test.want)
			}
		})
	}
}

func TestNightSleep(t *testing.T) {
	night := config.NightConfig{
		Enabled:    true,
		StartHours: [2]int{0, 0},
		EndHours:   [2]int{6, 6},
		Extra:      config.Range{Min: time.Minute, Max: time.Minute},
	}
	if got := nightSleep(at(3, 0), night); got != 3*time.Hour+time.Minute {
		t.Errorf("nightSleep at 03:00 = %v, want 3h1m", got)
	}
	if got := nightSleep(at(12, 0), night); got != 0 {
		t.Errorf("nightSleep at noon = %v, want 0", got)
	}
	night.Enabled = false
	if got := nightSleep(at(3, 0), night); got != 0 {
		t.Errorf("disabled nightSleep = %v, want 0", got)
	}
}

func TestRandomDurationStaysInRange(t *testing.T) {
	r := config.Range{Min: 10 * time.Second, Max: 20 * time.Second}
	for range 200 {
		if got := randomDuration(r); got < r.Min || got > r.Max {
			t.Fatalf("randomDuration = %v, outside [%v, %v]", got, r.Min, r.Max)
		}
	}
	if got := randomDuration(config.Range{Min: time.Minute, Max: time.Minute}); got != time.Minute {
		t.Errorf("degenerate range = %v, want 1m", got)
	}
}

func TestRandomHourStaysInWindow(t *testing.T) {
	seen := make(map[int]bool)
	for range 200 {
		hour := randomHour([2]int{6, 8})
		if hour < 6 || hour > 8 {
			t.Fatalf("randomHour = %d, outside [6, 8]", hour)
		}
		seen[hour] = true
	}
	if len(seen) != 3 {
		t.Errorf("randomHour over 200 draws produced %v, want all of 6, 7 and 8", seen)
	}
}
