// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package centrifuge

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Subprotocol is the WebSocket subprotocol name that selects the
// binary encoding on the server.
const Subprotocol = "centrifuge-protobuf"

// maxMessageLength bounds a single length-prefixed message. A full
// pixel publication is well under a megabyte.
const maxMessageLength = 16 * 1024 * 1024

// ErrMalformedFrame reports an inbound frame that could not be parsed.
var ErrMalformedFrame = errors.New("centrifuge: malformed frame")

// Ping is the keep-alive frame. The client must answer with the same
// bytes.
var Ping = []byte{0}

// IsPing reports whether frame is the single-byte keep-alive.
func IsPing(frame []byte) bool {
	return len(frame) == 1 && frame[0] == 0
}

// splitMessages cuts a frame into its length-prefixed messages. Empty
// messages are returned as empty slices.
func splitMessages(frame []byte) ([][]byte, error) {
	var messages [][]byte
	for len(frame) > 0 {
		length, n := protowire.ConsumeVarint(frame)
		if n < 0 {
			return nil, fmt.Errorf("%w: message length: %v", ErrMalformedFrame, protowire.ParseError(n))
		}
		frame = frame[n:]
		if length > maxMessageLength {
			return nil, fmt.Errorf("%w: message length %d exceeds maximum %d", ErrMalformedFrame, length, maxMessageLength)
		}
		if length > uint64(len(frame)) {
			return nil, fmt.Errorf("%w: message length %d exceeds remaining %d bytes", ErrMalformedFrame, length, len(frame))
		}
		messages = append(messages, frame[:length])
		frame = frame[length:]
	}
	return messages, nil
}

// appendMessage appends one length-prefixed message.
func appendMessage(frame, message []byte) []byte {
	return protowire.AppendBytes(frame, message)
}

// field is one decoded protobuf field. Varint fields fill number,
// length-delimited fields fill bytes; other wire types are skipped by
// parseFields.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	number uint64
	bytes  []byte
}

func parseFields(message []byte) ([]field, error) {
	var fields []field
	for len(message) > 0 {
		num, typ, n := protowire.ConsumeTag(message)
		if n < 0 {
			return nil, fmt.Errorf("%w: field tag: %v", ErrMalformedFrame, protowire.ParseError(n))
		}
		message = message[n:]

		parsed := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			parsed.number, n = protowire.ConsumeVarint(message)
		case protowire.BytesType:
			parsed.bytes, n = protowire.ConsumeBytes(message)
		default:
			n = protowire.ConsumeFieldValue(num, typ, message)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedFrame, num, protowire.ParseError(n))
		}
		message = message[n:]
		fields = append(fields, parsed)
	}
	return fields, nil
}
