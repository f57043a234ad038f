// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package canvas holds the local mirror of the shared game canvas.
//
// A [Raster] is a Width×Width RGBA byte buffer guarded by one mutex.
// Four operations mutate it and all of them take that mutex, so each is
// atomic with respect to every other raster operation:
//
//   - Replace seeds the whole buffer from an encoded base image.
//   - Restore seeds the whole buffer from raw RGBA (checkpoints).
//   - Apply applies one paint [Event] from the update stream.
//   - SetPixel writes one predicted pixel after a paint request.
//
// Out-of-range pixel ids are dropped silently everywhere; nothing in
// this package can index outside the buffer.
//
// Readers call Snapshot for a point-in-time copy. A snapshot is stale
// the moment it is returned because the update stream keeps writing;
// code that compares many pixels should take one snapshot and reuse it.
//
// # Stamps
//
// A [SquareEvent] stamps a fixed stencil ([StampSpec]) centred on a
// pixel id. Offsets are computed on the linear id, not on (x, y), so a
// stencil near the right edge continues on the next row. This matches
// what the game client renders and is kept deliberately.
package canvas
