// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/pixelwarden/pixelwarden/lib/pixel"
)

// Stamp identifies a stencil decal.
type Stamp int

const (
	Pumpkin Stamp = iota + 1
	Dynamite
)

// String returns the wire name of the stamp.
func (stamp Stamp) String() string {
	switch stamp {
	case Pumpkin:
		return "pumpkin"
	case Dynamite:
		return "dynamite"
	default:
		return fmt.Sprintf("stamp(%d)", int(stamp))
	}
}

// ParseStamp parses a stamp name case-insensitively.
func ParseStamp(name string) (Stamp, error) {
	switch strings.ToLower(name) {
	case "pumpkin":
		return Pumpkin, nil
	case "dynamite":
		return Dynamite, nil
	default:
		return 0, fmt.Errorf("canvas: unknown stamp %q", name)
	}
}

// StampSpec is the stencil painted for a stamp: Size×Size colors in
// row-major order.
type StampSpec struct {
	Size    int
	Pattern [][]color.NRGBA
}

// Spec returns the stencil for a stamp. Unknown stamps report false.
func (stamp Stamp) Spec() (StampSpec, bool) {
	spec, ok := stamps[stamp]
	return spec, ok
}

var stamps = map[Stamp]StampSpec{
	Pumpkin: mustStencil(map[byte]string{
		'O': "#FF9600",
		'D': "#BF4300",
		'G': "#00A368",
		'K': "#000000",
	},
		"OOOGOOO",
		"OODGDOO",
		"OKOOOKO",
		"OOOKOOO",
		"OKOOOKO",
		"OOKKKOO",
		"DOOOOOD",
	),
	Dynamite: mustStencil(map[byte]string{
		'R': "#BE0039",
		'Y': "#FFD635",
		'K': "#000000",
	},
		"KKYKK",
		"RRKRR",
		"RRRRR",
		"RRRRR",
		"KRRRK",
	),
}

// mustStencil builds a StampSpec from rows of palette letters. It
// panics on inconsistent tables; the tables are package constants.
func mustStencil(palette map[byte]string, rows ...string) StampSpec {
	spec := StampSpec{Size: len(rows)}
	for _, row := range rows {
		if len(row) != len(rows) {
			panic("canvas: stencil is not square")
		}
		line := make([]color.NRGBA, len(row))
		for i := range len(row) {
			parsed, err := pixel.ParseNRGBA(palette[row[i]])
			if err != nil {
				panic("canvas: stencil palette: " + err.Error())
			}
			line[i] = parsed
		}
		spec.Pattern = append(spec.Pattern, line)
	}
	return spec
}
