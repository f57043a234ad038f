// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Pixelwarden
// packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the
// select-with-timeout pattern so individual tests do not call
// time.After directly. [Eventually] polls a condition for state that
// has no channel to wait on. These helpers are the only place tests
// use real wall-clock timeouts; everything else runs on a
// clock.FakeClock.
//
// [SolidPNG] encodes a single-color image, the usual stand-in for a
// canvas or template download. [UniqueID] generates distinguishable
// identifiers for sessions and accounts. [DiscardLogger] silences
// components whose logs a test does not inspect.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
