// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides network and HTTP I/O utilities for
// Pixelwarden.
//
// HTTP response helpers (ReadResponse, DecodeResponse, ErrorBody) bound
// every body read so a misbehaving server cannot exhaust memory. JSON
// API responses use MaxResponseSize; canvas and template downloads use
// MaxImageSize.
//
// IsExpectedCloseError classifies errors seen during normal teardown of
// the canvas channel, and ParseProxy normalizes per-account proxy
// strings for both the HTTP transport and the WebSocket dialer.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize bounds JSON API response reads: 16 MB. The largest
// legitimate response (a template list) is a few kilobytes.
const MaxResponseSize int64 = 16 << 20

// MaxImageSize bounds image downloads: 64 MB. A 1000×1000 canvas PNG
// is typically under 2 MB.
const MaxImageSize int64 = 64 << 20

// ReadResponse reads a JSON API response body up to MaxResponseSize
// bytes. Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return ReadLimited(body, MaxResponseSize)
}

// ReadLimited reads body up to limit bytes and fails when the body is
// longer, rather than silently truncating.
func ReadLimited(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return data, nil
}

// DecodeResponse reads a JSON API response body (up to MaxResponseSize
// bytes) and JSON-decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// maxErrorBody bounds the error body kept for diagnostics.
const maxErrorBody = 1024

// ErrorBody reads an HTTP error response body and returns at most
// maxErrorBody bytes of it for error messages. Read errors are
// ignored; a partial or empty body is still useful in an error
// message.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return string(data)
}
