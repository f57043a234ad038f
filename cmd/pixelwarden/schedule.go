// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"math/rand/v2"
	"time"

	"github.com/pixelwarden/pixelwarden/lib/config"
)

// randomDuration picks a uniformly random duration in [r.Min, r.Max].
func randomDuration(r config.Range) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rand.N(r.Max-r.Min+1)
}

// randomHour picks an hour in the inclusive window [hours[0], hours[1]].
func randomHour(hours [2]int) int {
	if hours[1] <= hours[0] {
		return hours[0]
	}
	return hours[0] + rand.IntN(hours[1]-hours[0]+1)
}

// nightPause returns how long to sleep when now falls in the quiet
// window [startHour, endHour) of its local day, or zero outside it.
// The pause ends on the hour, at endHour.
func nightPause(now time.Time, startHour, endHour int) time.Duration {
	hour := now.Hour()
	if hour < startHour || hour >= endHour {
		return 0
	}
	year, month, day := now.Date()
	wake := time.Date(year, month, day, endHour, 0, 0, 0, now.Location())
	return wake.Sub(now)
}

// nightSleep draws tonight's quiet window from night and returns the
// pause for now, including a random extra. Zero means play on.
func nightSleep(now time.Time, night config.NightConfig) time.Duration {
	if !night.Enabled {
		return 0
	}
	pause := nightPause(now, randomHour(night.StartHours), randomHour(night.EndHours))
	if pause == 0 {
		return 0
	}
	return pause + randomDuration(night.Extra)
}
