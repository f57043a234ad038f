// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package painter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/pixelwarden/pixelwarden/lib/pixel"
)

// ErrTemplate marks failures caused by the template itself: a missing
// or undecodable bitmap, or a placement outside the canvas. The painter
// asks its Selector for a different template after one.
var ErrTemplate = errors.New("painter: unusable template")

// Template is a target bitmap placed on the canvas. The bitmap covers
// Size×Size pixels with its top-left corner at (X, Y).
type Template struct {
	ID   int64
	URL  string
	X    int
	Y    int
	Size int
}

// Validate checks that the template lies entirely on the canvas.
func (t Template) Validate() error {
	if t.Size <= 0 {
		return fmt.Errorf("%w: template %d has size %d", ErrTemplate, t.ID, t.Size)
	}
	if t.X < 0 || t.Y < 0 || t.X+t.Size > pixel.Width || t.Y+t.Size > pixel.Width {
		return fmt.Errorf("%w: template %d at (%d, %d) size %d does not fit the canvas",
			ErrTemplate, t.ID, t.X, t.Y, t.Size)
	}
	if t.URL == "" {
		return fmt.Errorf("%w: template %d has no image URL", ErrTemplate, t.ID)
	}
	return nil
}

// loadBitmap downloads and decodes the template image as
// non-premultiplied RGBA of exactly Size×Size, resampling with
// Catmull-Rom when the image has other dimensions.
func (p *Painter) loadBitmap(ctx context.Context, template Template) (*image.NRGBA, error) {
	encoded, err := p.client.TemplateImage(ctx, template.URL)
	if err != nil {
		return nil, err
	}
	return decodeBitmap(encoded, template.Size)
}

func decodeBitmap(encoded []byte, size int) (*image.NRGBA, error) {
	decoded, _, err := image.Decode(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding template image: %v", ErrTemplate, err)
	}

	bitmap := image.NewNRGBA(image.Rect(0, 0, size, size))
	bounds := decoded.Bounds()
	if bounds.Dx() == size && bounds.Dy() == size {
		draw.Draw(bitmap, bitmap.Bounds(), decoded, bounds.Min, draw.Src)
		return bitmap, nil
	}
	draw.CatmullRom.Scale(bitmap, bitmap.Bounds(), decoded, bounds, draw.Src, nil)
	return bitmap, nil
}
