// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package checkpoint persists the canvas mirror between runs.
//
// A checkpoint file is a CBOR sequence of two items: a header (format
// version, canvas width, compression, raw size, BLAKE3 digest, save
// time) and the payload byte string. The payload is the raw RGBA
// buffer compressed with zstd or LZ4, or stored as-is when it does not
// compress. The digest is a keyed BLAKE3 hash of the uncompressed
// bytes and is verified on every read, so a truncated or corrupted
// file is rejected rather than restored.
//
// Files are written atomically (temporary file, fsync, rename). [Load]
// ignores a checkpoint older than its maximum age, the same way a
// watchdog file goes stale: a mirror that old is not worth warming
// from.
//
// [Saver] writes checkpoints on an interval for as long as its context
// lives, skipping writes when the mirror has not changed since the
// last one.
package checkpoint
