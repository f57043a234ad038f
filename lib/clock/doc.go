// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by the channel
// manager, the painter, and the per-account loops.
//
// Every retry delay, refresh tick, and jitter sleep in Pixelwarden goes
// through a Clock so that tests can drive token expiry and reconnect
// timing without waiting on the wall clock. Production code passes
// Real(); tests pass Fake() and move time with Advance.
//
// Sleeps are context-aware: [Sleep] returns early with the context's
// error when the caller is cancelled, which is how a stopped manager
// unwinds goroutines parked in a reconnect delay.
//
// # FakeClock Synchronization
//
// A goroutine that calls After, NewTicker, or Sleep on a FakeClock
// registers a pending waiter. Tests call WaitForTimers before Advance so
// the waiter is guaranteed to exist when time moves:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go manager.refreshLoop(ctx)
//	fake.WaitForTimers(1)
//	fake.Advance(time.Minute)
package clock
