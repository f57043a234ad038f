// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package pixel

import (
	"errors"
	"fmt"
	"image/color"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Width is the side length of the square canvas in pixels.
const Width = 1000

// Count is the number of addressable pixels. Valid ids are 1..Count.
const Count = Width * Width

// ErrFormat is wrapped by every color parsing failure.
var ErrFormat = errors.New("pixel: malformed color")

// RGB is an opaque color as three bytes.
type RGB struct {
	R, G, B uint8
}

// NRGBA returns the color with full alpha.
func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
}

// IDToXY maps a pixel id to its column and row. The result is only
// meaningful when InRange(id).
func IDToXY(id int) (x, y int) {
	return (id - 1) % Width, (id - 1) / Width
}

// XYToID maps a column and row to a pixel id.
func XYToID(x, y int) int {
	return y*Width + x + 1
}

// InRange reports whether id addresses a pixel on the canvas.
func InRange(id int) bool {
	return id >= 1 && id <= Count
}

const cacheSize = 4096

var (
	parseCache  *lru.Cache[string, RGB]
	formatCache *lru.Cache[RGB, string]
)

func init() {
	var err error
	parseCache, err = lru.New[string, RGB](cacheSize)
	if err != nil {
		panic("pixel: creating parse cache: " + err.Error())
	}
	formatCache, err = lru.New[RGB, string](cacheSize)
	if err != nil {
		panic("pixel: creating format cache: " + err.Error())
	}
}

// HexToRGB parses a "#RRGGBB" string. Either letter case is accepted.
// Anything other than '#' followed by exactly six hex digits fails
// with an error wrapping ErrFormat.
func HexToRGB(hex string) (RGB, error) {
	if cached, ok := parseCache.Get(hex); ok {
		return cached, nil
	}
	if len(hex) != 7 || hex[0] != '#' {
		return RGB{}, fmt.Errorf("%w: %q is not #RRGGBB", ErrFormat, hex)
	}
	var channels [3]uint8
	for i := range channels {
		high, okHigh := nibble(hex[1+2*i])
		low, okLow := nibble(hex[2+2*i])
		if !okHigh || !okLow {
			return RGB{}, fmt.Errorf("%w: %q contains a non-hex digit", ErrFormat, hex)
		}
		channels[i] = high<<4 | low
	}
	parsed := RGB{R: channels[0], G: channels[1], B: channels[2]}
	parseCache.Add(hex, parsed)
	return parsed, nil
}

// ParseNRGBA parses a "#RRGGBB" string into a fully opaque color.
func ParseNRGBA(hex string) (color.NRGBA, error) {
	parsed, err := HexToRGB(hex)
	if err != nil {
		return color.NRGBA{}, err
	}
	return parsed.NRGBA(), nil
}

// RGBAToHex formats a color as uppercase "#RRGGBB". Alpha is dropped.
func RGBAToHex(c color.NRGBA) string {
	key := RGB{R: c.R, G: c.G, B: c.B}
	if cached, ok := formatCache.Get(key); ok {
		return cached
	}
	formatted := fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	formatCache.Add(key, formatted)
	return formatted
}

func nibble(digit byte) (uint8, bool) {
	switch {
	case digit >= '0' && digit <= '9':
		return digit - '0', true
	case digit >= 'a' && digit <= 'f':
		return digit - 'a' + 10, true
	case digit >= 'A' && digit <= 'F':
		return digit - 'A' + 10, true
	}
	return 0, false
}
