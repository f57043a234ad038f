// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sort"
	"sync"

	"github.com/zeebo/blake3"
	_ "golang.org/x/image/webp"

	"github.com/pixelwarden/pixelwarden/lib/pixel"
)

// BytesPerPixel is the RGBA stride of one pixel.
const BytesPerPixel = 4

// Size is the length in bytes of a full canvas buffer.
const Size = pixel.Count * BytesPerPixel

// Background is the canvas's eraser color. Pixel events in this color
// are never painted.
const Background = "#171F2A"

var background = func() pixel.RGB {
	parsed, err := pixel.HexToRGB(Background)
	if err != nil {
		panic(err)
	}
	return parsed
}()

// DecodeError reports a base image that could not be turned into a
// canvas buffer.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "canvas: decoding base image: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Raster is the mutable mirror of the remote canvas. The zero value is
// not usable; call New.
type Raster struct {
	mu     sync.Mutex
	pixels []byte
}

// New returns a raster with every byte zero.
func New() *Raster {
	return &Raster{pixels: make([]byte, Size)}
}

// Replace decodes an encoded image (PNG, JPEG, GIF or WebP), converts
// it to non-premultiplied RGBA, and swaps it in as the whole canvas.
// The image must be exactly Width×Width. Decoding happens before the
// guard is taken; only the swap is serialized.
func (r *Raster) Replace(encoded []byte) error {
	decoded, _, err := image.Decode(bytes.NewReader(encoded))
	if err != nil {
		return &DecodeError{Err: err}
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != pixel.Width || bounds.Dy() != pixel.Width {
		return &DecodeError{Err: fmt.Errorf("image is %dx%d, want %dx%d",
			bounds.Dx(), bounds.Dy(), pixel.Width, pixel.Width)}
	}

	flat := image.NewNRGBA(image.Rect(0, 0, pixel.Width, pixel.Width))
	draw.Draw(flat, flat.Bounds(), decoded, bounds.Min, draw.Src)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pixels = flat.Pix
	return nil
}

// Restore replaces the whole canvas with raw RGBA bytes, as produced
// by Snapshot. The slice is copied.
func (r *Raster) Restore(raw []byte) error {
	if len(raw) != Size {
		return fmt.Errorf("canvas: restore buffer is %d bytes, want %d", len(raw), Size)
	}
	replacement := make([]byte, Size)
	copy(replacement, raw)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pixels = replacement
	return nil
}

// Apply applies one paint event. Unknown event types and stamps are
// ignored.
func (r *Raster) Apply(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch typed := event.(type) {
	case SquareEvent:
		for _, square := range typed.Squares {
			r.stampLocked(square)
		}
	case *SquareEvent:
		for _, square := range typed.Squares {
			r.stampLocked(square)
		}
	case PixelEvent:
		r.paintLocked(typed.Colors)
	case *PixelEvent:
		r.paintLocked(typed.Colors)
	}
}

// stampLocked paints one stencil. Cell offsets are applied to the
// linear id, so the stencil wraps onto the neighbouring row at the
// canvas's left and right edges.
func (r *Raster) stampLocked(square Square) {
	spec, ok := square.Stamp.Spec()
	if !ok {
		return
	}
	half := spec.Size / 2
	for dy, row := range spec.Pattern {
		for dx, fill := range row {
			target := square.Position + (dy-half)*pixel.Width + (dx - half)
			r.writeLocked(target, fill)
		}
	}
}

func (r *Raster) paintLocked(groups map[string][]int) {
	hexes := make([]string, 0, len(groups))
	for hex := range groups {
		hexes = append(hexes, hex)
	}
	// Map order is random; a pixel listed under two colors should not
	// flip between runs.
	sort.Strings(hexes)

	for _, hex := range hexes {
		parsed, err := pixel.HexToRGB(hex)
		if err != nil || parsed == background {
			continue
		}
		fill := parsed.NRGBA()
		for _, id := range groups[hex] {
			r.writeLocked(id, fill)
		}
	}
}

// SetPixel writes one opaque pixel. Out-of-range ids are a no-op.
// A malformed color returns an error wrapping pixel.ErrFormat and
// leaves the canvas unchanged.
func (r *Raster) SetPixel(id int, hex string) error {
	fill, err := pixel.ParseNRGBA(hex)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeLocked(id, fill)
	return nil
}

func (r *Raster) writeLocked(id int, fill color.NRGBA) {
	if !pixel.InRange(id) {
		return
	}
	offset := (id - 1) * BytesPerPixel
	r.pixels[offset] = fill.R
	r.pixels[offset+1] = fill.G
	r.pixels[offset+2] = fill.B
	r.pixels[offset+3] = fill.A
}

// Pixel reads one pixel atomically.
func (r *Raster) Pixel(id int) (color.NRGBA, bool) {
	if !pixel.InRange(id) {
		return color.NRGBA{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	offset := (id - 1) * BytesPerPixel
	return color.NRGBA{
		R: r.pixels[offset],
		G: r.pixels[offset+1],
		B: r.pixels[offset+2],
		A: r.pixels[offset+3],
	}, true
}

// Snapshot returns a copy of the whole buffer.
func (r *Raster) Snapshot() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make([]byte, len(r.pixels))
	copy(copied, r.pixels)
	return View(copied)
}

// Digest returns the BLAKE3 hash of the current buffer. Two mirrors
// with equal digests hold identical canvases.
func (r *Raster) Digest() [32]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return blake3.Sum256(r.pixels)
}
