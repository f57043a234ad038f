// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package pixel converts between the game's addressing and color
// notations.
//
// The canvas is a Width×Width grid addressed by a 1-based, row-major
// pixel id:
//
//	id = y*Width + x + 1
//
// Colors travel over the wire and through the HTTP API as "#RRGGBB"
// strings. HexToRGB and RGBAToHex convert between those strings and
// byte tuples. Both are memoized with bounded LRU caches because the
// same handful of palette colors is parsed for every pixel event; the
// caches never change results.
package pixel
