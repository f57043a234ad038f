// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// SolidPNG returns a width×height PNG filled with fill.
func SolidPNG(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, width, height int, fill color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for offset := 0; offset < len(img.Pix); offset += 4 {
		img.Pix[offset] = fill.R
		img.Pix[offset+1] = fill.G
		img.Pix[offset+2] = fill.B
		img.Pix[offset+3] = fill.A
	}
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buffer.Bytes()
}

// EncodePNG encodes an arbitrary image, for tests that need more than
// one color.
func EncodePNG(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, img image.Image) []byte {
	t.Helper()
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buffer.Bytes()
}
