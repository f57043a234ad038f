// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

// Event is a paint update received from the channel. The concrete
// types are SquareEvent and PixelEvent.
type Event interface {
	isEvent()
}

// Square is one stamp placement.
type Square struct {
	// Position is the pixel id the stencil is centred on.
	Position int
	Stamp    Stamp
}

// SquareEvent stamps one or more stencils.
type SquareEvent struct {
	Squares []Square
}

// PixelEvent paints individual pixels grouped by color. Keys are
// "#RRGGBB" strings; values are pixel ids.
type PixelEvent struct {
	Colors map[string][]int
}

func (SquareEvent) isEvent() {}
func (PixelEvent) isEvent()  {}
