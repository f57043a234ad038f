// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"net/http"
	"net/url"
)

// Backend is the per-account HTTP surface a session needs. notpx.Client
// implements it with the account's headers and proxy.
type Backend interface {
	// WebsocketToken fetches a fresh channel token.
	WebsocketToken(ctx context.Context) (string, error)
	// CanvasImage downloads the full canvas image.
	CanvasImage(ctx context.Context) ([]byte, error)
}

// Credentials describe one account's connection identity.
type Credentials struct {
	// Name identifies the account. Adding a second session with the
	// same name is a no-op. Empty names are replaced with a random ID.
	Name string

	Backend Backend

	// ChannelHeader is sent with the WebSocket handshake (user agent,
	// origin).
	ChannelHeader http.Header

	// Proxy routes the WebSocket connection. Nil dials directly.
	Proxy *url.URL

	// Token is a channel token already known for the account, used
	// instead of fetching one while it is still valid.
	Token string
}

// Session is one account in the pool. Its fields are fixed at creation
// except the cached token, which the manager updates under its lock.
type Session struct {
	// ID is a random identifier, unique per process.
	ID   string
	Name string

	backend       Backend
	channelHeader http.Header
	proxy         *url.URL
	token         string
	active        bool
}

// Backend returns the session's HTTP surface.
func (s *Session) Backend() Backend { return s.backend }
