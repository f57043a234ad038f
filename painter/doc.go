// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package painter spends an account's charges making the canvas match
// a target template.
//
// A scan walks the template row by row, compares each opaque template
// pixel with the local canvas mirror, and repaints mismatches until
// the charges run out. Each repaint is written into the mirror
// immediately as a prediction; the authoritative channel update that
// follows overwrites it. Scans are retried from the top a bounded
// number of times, switching templates when the template itself is
// the problem.
package painter
