// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds sensitive bytes (age identities, decrypted
// account files) outside the Go heap.
//
// [Buffer] memory comes from mmap(MAP_ANONYMOUS), is locked into RAM
// with mlock so it never reaches swap, and is excluded from core dumps
// with madvise(MADV_DONTDUMP). Close zeroes, unlocks, and unmaps it.
// The garbage collector never sees the region, so it cannot leave
// copies behind.
//
//   - [New] allocates a zero-filled buffer
//   - [NewFromBytes] copies into protected memory and zeroes the source
//   - [ReadFile] reads a file straight into a buffer
//
// After Close, reading a buffer panics. Close is idempotent.
//
// Depends on golang.org/x/sys/unix. No other pixelwarden dependencies.
package secret
