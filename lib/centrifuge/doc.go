// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package centrifuge implements the binary push protocol spoken on the
// canvas channel: protobuf-encoded replies and commands, each prefixed
// with its uvarint length, several of which may share one WebSocket
// frame.
//
// The package is organized around the data flow:
//
//   - frame.go: length-prefixed framing and the protobuf field walker
//   - decode.go: inbound replies → canvas paint events
//   - command.go: outbound commands (connect/auth)
//   - push.go: reply builders, used by replay tooling and test servers
//
// Only the subset of the protocol the canvas channel uses is modelled.
// Unknown fields are skipped, unknown channels decode to no event.
package centrifuge
