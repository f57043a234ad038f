// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package channel keeps the local canvas mirror connected to the game's
// push channel through a pool of account sessions.
//
// One [Manager] exists per process. Sessions are added as accounts come
// online; the first becomes active and opens the channel. Exactly one
// session is active at a time. Its connection goroutine runs the whole
// lifecycle:
//
//	Idle → Connecting → Authenticated → Streaming
//	                ↘ Reconnecting ↗       ↘ Switching → (next session)
//	                                       ↘ Stopped
//
// Connecting fetches a channel token if the manager has none, seeds the
// mirror from the full canvas image, dials, and sends the connect
// command. Streaming applies every inbound update to the mirror in
// arrival order and echoes keep-alive pings.
//
// A failed connection is re-dialed a bounded number of times, then the
// manager fails over to the next session. Failovers that cycle through
// the whole pool without one successful connection exhaust the pool:
// the manager stops and [Manager.Err] reports [ErrNoAvailableSessions].
// Restarting is the caller's decision; see [Manager.Restart].
//
// A background loop checks the token's expiry claim every refresh
// interval and rotates to the next session before the token lapses.
//
// Activation cancels the previous session's connection goroutine
// through its context, which closes the old WebSocket and unblocks its
// reader. The manager's mutex guards sessions, token and state only,
// and is never held across network I/O.
package channel
