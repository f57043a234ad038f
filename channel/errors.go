// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAvailableSessions reports an empty pool, a pool with no other
	// session to switch to, or a pool whose every session failed.
	ErrNoAvailableSessions = errors.New("channel: no available sessions")

	// ErrNoActiveSession is returned when an operation needs an active
	// session and none has been added yet.
	ErrNoActiveSession = errors.New("channel: no active session")

	// ErrStopped is returned by WaitSynced when the manager stops
	// without error before the mirror was seeded.
	ErrStopped = errors.New("channel: manager stopped")
)

// TokenError reports that fetching a channel token exhausted its
// retries. The manager fails over to the next session.
type TokenError struct {
	Session string
	Err     error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("channel: session %s: fetching token: %v", e.Session, e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }

// ConnectionError reports a channel-level failure: the dial failed, the
// server closed the connection or sent an error, or a read or write
// failed. Op names the step.
type ConnectionError struct {
	Session string
	Op      string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("channel: session %s: %s: %v", e.Session, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
