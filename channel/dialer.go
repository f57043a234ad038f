// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pixelwarden/pixelwarden/lib/centrifuge"
)

// Conn is the subset of *websocket.Conn the manager uses. Close may be
// called concurrently with ReadMessage.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens channel connections.
type Dialer interface {
	Dial(ctx context.Context, channelURL string, header http.Header, proxy *url.URL) (Conn, error)
}

// WebsocketDialer dials with gorilla/websocket, negotiating the binary
// push subprotocol.
type WebsocketDialer struct {
	// HandshakeTimeout bounds the opening handshake. Zero means 30s.
	HandshakeTimeout time.Duration
}

// Dial implements Dialer. A nil proxy falls back to the environment's
// proxy settings.
func (d WebsocketDialer) Dial(ctx context.Context, channelURL string, header http.Header, proxy *url.URL) (Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
		Subprotocols:     []string{centrifuge.Subprotocol},
	}
	if proxy != nil {
		dialer.Proxy = http.ProxyURL(proxy)
	}

	conn, response, err := dialer.DialContext(ctx, channelURL, header)
	if err != nil {
		if response != nil {
			return nil, fmt.Errorf("dialing %s: %w (HTTP %d)", channelURL, err, response.StatusCode)
		}
		return nil, fmt.Errorf("dialing %s: %w", channelURL, err)
	}
	if conn.Subprotocol() != centrifuge.Subprotocol {
		conn.Close()
		return nil, fmt.Errorf("dialing %s: server selected subprotocol %q, want %q",
			channelURL, conn.Subprotocol(), centrifuge.Subprotocol)
	}
	return conn, nil
}
