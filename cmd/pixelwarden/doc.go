// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Pixelwarden keeps a local mirror of the shared pixel canvas in sync
// and paints templates with a pool of game accounts.
//
// Commands:
//
//	pixelwarden run      play every account in the accounts file
//	pixelwarden check    validate the configuration and accounts file
//	pixelwarden seal     encrypt an accounts file with age
//	pixelwarden keygen   generate an age identity for sealed accounts
//	pixelwarden version  print build information
//
// Configuration comes from --config or PIXELWARDEN_CONFIG; without
// either the built-in defaults are used. All accounts share one canvas
// mirror and one update channel. Each account runs its own loop:
// status, template, channel session, paint, sleep.
package main
