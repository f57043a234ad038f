// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package centrifuge

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Command and ConnectRequest field numbers.
const (
	commandID      = 1
	commandConnect = 4

	connectToken   = 1
	connectName    = 4
	connectVersion = 5
)

// ClientName identifies this client in connect commands.
const ClientName = "js"

// Command is one outbound protocol command. Only connect is modelled.
type Command struct {
	// ID correlates the command with its reply. Must be non-zero.
	ID      uint32
	Connect *ConnectRequest
}

// ConnectRequest authenticates the connection.
type ConnectRequest struct {
	Token   string
	Name    string
	Version string
}

// ConnectCommand builds the connect command sent right after the
// channel opens.
func ConnectCommand(id uint32, token string) Command {
	return Command{ID: id, Connect: &ConnectRequest{Token: token, Name: ClientName}}
}

// EncodeCommands serializes commands into one outbound frame.
func EncodeCommands(commands []Command) ([]byte, error) {
	if len(commands) == 0 {
		return nil, errors.New("centrifuge: no commands to encode")
	}
	var frame []byte
	for index, command := range commands {
		if command.ID == 0 {
			return nil, fmt.Errorf("centrifuge: command %d has no id", index)
		}
		var message []byte
		message = protowire.AppendTag(message, commandID, protowire.VarintType)
		message = protowire.AppendVarint(message, uint64(command.ID))
		if command.Connect != nil {
			message = protowire.AppendTag(message, commandConnect, protowire.BytesType)
			message = protowire.AppendBytes(message, encodeConnect(command.Connect))
		}
		frame = appendMessage(frame, message)
	}
	return frame, nil
}

func encodeConnect(request *ConnectRequest) []byte {
	var message []byte
	message = appendString(message, connectToken, request.Token)
	message = appendString(message, connectName, request.Name)
	message = appendString(message, connectVersion, request.Version)
	return message
}

// appendString appends a string field, omitting the empty string as
// proto3 does.
func appendString(message []byte, num protowire.Number, value string) []byte {
	if value == "" {
		return message
	}
	message = protowire.AppendTag(message, num, protowire.BytesType)
	return protowire.AppendString(message, value)
}

// DecodeCommands parses an outbound frame back into commands. The
// server side of test channels uses it to read the connect command.
func DecodeCommands(frame []byte) ([]Command, error) {
	messages, err := splitMessages(frame)
	if err != nil {
		return nil, err
	}
	commands := make([]Command, 0, len(messages))
	for _, message := range messages {
		fields, err := parseFields(message)
		if err != nil {
			return nil, err
		}
		var command Command
		for _, f := range fields {
			switch f.num {
			case commandID:
				command.ID = uint32(f.number)
			case commandConnect:
				request, err := decodeConnect(f.bytes)
				if err != nil {
					return nil, err
				}
				command.Connect = request
			}
		}
		commands = append(commands, command)
	}
	return commands, nil
}

func decodeConnect(message []byte) (*ConnectRequest, error) {
	fields, err := parseFields(message)
	if err != nil {
		return nil, err
	}
	request := &ConnectRequest{}
	for _, f := range fields {
		switch f.num {
		case connectToken:
			request.Token = string(f.bytes)
		case connectName:
			request.Name = string(f.bytes)
		case connectVersion:
			request.Version = string(f.bytes)
		}
	}
	return request, nil
}
