// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package centrifuge

import "google.golang.org/protobuf/encoding/protowire"

const (
	replyConnect  = 5
	connectClient = 1
)

// AppendPublication appends a reply carrying a publication push on
// channel with the given payload.
func AppendPublication(frame []byte, channel string, data []byte) []byte {
	var publication []byte
	publication = protowire.AppendTag(publication, publicationData, protowire.BytesType)
	publication = protowire.AppendBytes(publication, data)

	var push []byte
	push = appendString(push, pushChannel, channel)
	push = protowire.AppendTag(push, pushPub, protowire.BytesType)
	push = protowire.AppendBytes(push, publication)

	return appendMessage(frame, wrapPush(push))
}

// AppendDisconnect appends a reply carrying a disconnect push.
func AppendDisconnect(frame []byte, code uint32, reason string) []byte {
	var disconnect []byte
	disconnect = protowire.AppendTag(disconnect, errorCode, protowire.VarintType)
	disconnect = protowire.AppendVarint(disconnect, uint64(code))
	disconnect = appendString(disconnect, errorMessage, reason)

	var push []byte
	push = protowire.AppendTag(push, pushDisconnect, protowire.BytesType)
	push = protowire.AppendBytes(push, disconnect)

	return appendMessage(frame, wrapPush(push))
}

// AppendConnectResult appends the successful reply to a connect
// command.
func AppendConnectResult(frame []byte, id uint32, client string) []byte {
	var result []byte
	result = appendString(result, connectClient, client)

	var reply []byte
	reply = protowire.AppendTag(reply, replyID, protowire.VarintType)
	reply = protowire.AppendVarint(reply, uint64(id))
	reply = protowire.AppendTag(reply, replyConnect, protowire.BytesType)
	reply = protowire.AppendBytes(reply, result)
	return appendMessage(frame, reply)
}

// AppendErrorReply appends an error reply to command id.
func AppendErrorReply(frame []byte, id uint32, code uint32, message string) []byte {
	var replyErr []byte
	replyErr = protowire.AppendTag(replyErr, errorCode, protowire.VarintType)
	replyErr = protowire.AppendVarint(replyErr, uint64(code))
	replyErr = appendString(replyErr, errorMessage, message)

	var reply []byte
	reply = protowire.AppendTag(reply, replyID, protowire.VarintType)
	reply = protowire.AppendVarint(reply, uint64(id))
	reply = protowire.AppendTag(reply, replyError, protowire.BytesType)
	reply = protowire.AppendBytes(reply, replyErr)
	return appendMessage(frame, reply)
}

func wrapPush(push []byte) []byte {
	var reply []byte
	reply = protowire.AppendTag(reply, replyPush, protowire.BytesType)
	return protowire.AppendBytes(reply, push)
}
