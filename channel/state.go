// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import "fmt"

// State is the manager's connection state.
type State int

const (
	// StateIdle: no session has been activated yet.
	StateIdle State = iota
	// StateConnecting: fetching the token and canvas, or dialing.
	StateConnecting
	// StateAuthenticated: the connect command was sent; waiting for the
	// first reply.
	StateAuthenticated
	// StateStreaming: replies are flowing into the mirror.
	StateStreaming
	// StateReconnecting: waiting to re-dial the same session.
	StateReconnecting
	// StateSwitching: failing over to another session.
	StateSwitching
	// StateStopped: the manager is stopped until Restart.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateStreaming:
		return "streaming"
	case StateReconnecting:
		return "reconnecting"
	case StateSwitching:
		return "switching"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
