// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"image/color"

	"github.com/pixelwarden/pixelwarden/lib/pixel"
)

// View is a read-only RGBA snapshot of the canvas, row-major.
type View []byte

// At returns the pixel at column x, row y. Coordinates outside the
// canvas return the zero color.
func (v View) At(x, y int) color.NRGBA {
	if x < 0 || y < 0 || x >= pixel.Width || y >= pixel.Width {
		return color.NRGBA{}
	}
	return v.Pixel(pixel.XYToID(x, y))
}

// Pixel returns the pixel with the given id, or the zero color when
// the id is out of range.
func (v View) Pixel(id int) color.NRGBA {
	if !pixel.InRange(id) || len(v) < id*BytesPerPixel {
		return color.NRGBA{}
	}
	offset := (id - 1) * BytesPerPixel
	return color.NRGBA{R: v[offset], G: v[offset+1], B: v[offset+2], A: v[offset+3]}
}
