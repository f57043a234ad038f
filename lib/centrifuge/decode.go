// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package centrifuge

import (
	"encoding/json"
	"fmt"

	"github.com/pixelwarden/pixelwarden/lib/canvas"
)

// Channel names carrying canvas updates.
const (
	SquareChannel = "event:message"
	PixelChannel  = "pixel:message"
)

// Reply, Push, Publication, Error and Disconnect field numbers.
const (
	replyID    = 1
	replyError = 2
	replyPush  = 4

	pushChannel    = 2
	pushPub        = 4
	pushDisconnect = 11

	publicationData = 4

	errorCode    = 1
	errorMessage = 2
)

// ServerError is an error reply to a command, or a disconnect push.
// Both end the connection.
type ServerError struct {
	Code       uint32
	Message    string
	Disconnect bool
}

func (e *ServerError) Error() string {
	if e.Disconnect {
		return fmt.Sprintf("centrifuge: server disconnect %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("centrifuge: server error %d: %s", e.Code, e.Message)
}

// DecodeFrame decodes every reply in an inbound frame and returns the
// canvas events they carry, in order. Empty replies, command results
// and pushes on other channels produce no event. An error reply or a
// disconnect push returns *ServerError together with any events that
// preceded it.
func DecodeFrame(frame []byte) ([]canvas.Event, error) {
	messages, err := splitMessages(frame)
	if err != nil {
		return nil, err
	}
	var events []canvas.Event
	for _, message := range messages {
		event, err := decodeReply(message)
		if err != nil {
			return events, err
		}
		if event != nil {
			events = append(events, event)
		}
	}
	return events, nil
}

// Decode returns the first event in frame, or nil for control frames,
// unrecognized channels and anything that fails to parse.
func Decode(frame []byte) canvas.Event {
	events, _ := DecodeFrame(frame)
	if len(events) == 0 {
		return nil
	}
	return events[0]
}

func decodeReply(message []byte) (canvas.Event, error) {
	fields, err := parseFields(message)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		switch f.num {
		case replyError:
			serverErr, err := decodeError(f.bytes, false)
			if err != nil {
				return nil, err
			}
			return nil, serverErr
		case replyPush:
			return decodePush(f.bytes)
		}
	}
	return nil, nil
}

func decodePush(message []byte) (canvas.Event, error) {
	fields, err := parseFields(message)
	if err != nil {
		return nil, err
	}
	var channel string
	var data []byte
	var hasPublication bool
	for _, f := range fields {
		switch f.num {
		case pushChannel:
			channel = string(f.bytes)
		case pushPub:
			hasPublication = true
			data, err = publicationPayload(f.bytes)
			if err != nil {
				return nil, err
			}
		case pushDisconnect:
			serverErr, err := decodeError(f.bytes, true)
			if err != nil {
				return nil, err
			}
			return nil, serverErr
		}
	}
	if !hasPublication {
		return nil, nil
	}

	switch channel {
	case SquareChannel:
		return decodeSquares(data)
	case PixelChannel:
		return decodePixels(data)
	default:
		return nil, nil
	}
}

func publicationPayload(message []byte) ([]byte, error) {
	fields, err := parseFields(message)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.num == publicationData {
			return f.bytes, nil
		}
	}
	return nil, nil
}

// decodeError reads an Error or Disconnect message. Both carry the
// code in field 1 and a human-readable string in field 2.
func decodeError(message []byte, disconnect bool) (*ServerError, error) {
	fields, err := parseFields(message)
	if err != nil {
		return nil, err
	}
	serverErr := &ServerError{Disconnect: disconnect}
	for _, f := range fields {
		switch f.num {
		case errorCode:
			serverErr.Code = uint32(f.number)
		case errorMessage:
			serverErr.Message = string(f.bytes)
		}
	}
	return serverErr, nil
}

// squarePayload is one entry of an event:message publication.
type squarePayload struct {
	PixelID int    `json:"pixelId"`
	Type    string `json:"type"`
}

func decodeSquares(data []byte) (canvas.Event, error) {
	var payload []squarePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrMalformedFrame, SquareChannel, err)
	}
	squares := make([]canvas.Square, 0, len(payload))
	for _, entry := range payload {
		stamp, err := canvas.ParseStamp(entry.Type)
		if err != nil {
			continue
		}
		squares = append(squares, canvas.Square{Position: entry.PixelID, Stamp: stamp})
	}
	if len(squares) == 0 {
		return nil, nil
	}
	return canvas.SquareEvent{Squares: squares}, nil
}

func decodePixels(data []byte) (canvas.Event, error) {
	var colors map[string][]int
	if err := json.Unmarshal(data, &colors); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrMalformedFrame, PixelChannel, err)
	}
	if len(colors) == 0 {
		return nil, nil
	}
	return canvas.PixelEvent{Colors: colors}, nil
}
