// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/pixelwarden/pixelwarden/lib/canvas"
	"github.com/pixelwarden/pixelwarden/lib/centrifuge"
	"github.com/pixelwarden/pixelwarden/lib/clock"
	"github.com/pixelwarden/pixelwarden/lib/netutil"
	"github.com/pixelwarden/pixelwarden/lib/retry"
)

// connectCommandID is the command id of the connect command; the
// server echoes it in the reply.
const connectCommandID = 1

// run is the connection goroutine for one activation. It connects,
// streams, and re-dials until the re-dial budget is spent, then fails
// over. It returns as soon as ctx is cancelled.
func (m *Manager) run(ctx context.Context, gen uint64, session *Session) {
	logger := m.logger.With("session", session.Name)
	failures := 0
	for {
		established, err := m.connect(ctx, gen, session)
		if ctx.Err() != nil {
			return
		}

		var tokenErr *TokenError
		var decodeErr *canvas.DecodeError
		switch {
		case errors.As(err, &tokenErr):
			m.failover(gen, session, err)
			return
		case errors.As(err, &decodeErr):
			m.stopFrom(gen, err)
			return
		}

		if established {
			failures = 0
		}
		failures++
		if failures > m.reconnectAttempts {
			m.failover(gen, session, fmt.Errorf("connection failed after %d attempts: %w", failures, err))
			return
		}

		if netutil.IsExpectedCloseError(err) {
			logger.Info("channel closed, reconnecting", "attempt", failures, "error", err)
		} else {
			logger.Warn("channel failed, reconnecting",
				"attempt", failures,
				"attempts", m.reconnectAttempts,
				"delay", m.reconnectDelay,
				"error", err,
			)
		}
		m.setState(gen, StateReconnecting)
		if err := clock.Sleep(ctx, m.clock, m.reconnectDelay); err != nil {
			return
		}
		m.setState(gen, StateConnecting)
	}
}

// connect makes one full connection attempt: token, canvas seed, dial,
// connect command, then the receive loop. established reports whether
// the connection reached streaming before it ended.
func (m *Manager) connect(ctx context.Context, gen uint64, session *Session) (established bool, err error) {
	token, err := m.ensureToken(ctx, gen, session)
	if err != nil {
		return false, err
	}
	if err := m.seedCanvas(ctx, session); err != nil {
		return false, err
	}

	conn, err := m.dialer.Dial(ctx, m.url, session.channelHeader, session.proxy)
	if err != nil {
		return false, &ConnectionError{Session: session.Name, Op: "dial", Err: err}
	}
	defer conn.Close()

	// Closing the connection is what unblocks ReadMessage when the
	// session is switched away or the manager stops.
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-finished:
		}
	}()

	frame, err := centrifuge.EncodeCommands([]centrifuge.Command{
		centrifuge.ConnectCommand(connectCommandID, token),
	})
	if err != nil {
		return false, &ConnectionError{Session: session.Name, Op: "encode connect", Err: err}
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return false, &ConnectionError{Session: session.Name, Op: "send connect", Err: err}
	}
	m.setState(gen, StateAuthenticated)

	return m.receive(ctx, gen, session, conn)
}

// receive applies inbound frames to the mirror until the connection
// fails. Pings are echoed and never reach the decoder.
func (m *Manager) receive(ctx context.Context, gen uint64, session *Session, conn Conn) (established bool, err error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return established, &ConnectionError{Session: session.Name, Op: "read", Err: err}
		}

		if centrifuge.IsPing(data) {
			if err := conn.WriteMessage(websocket.BinaryMessage, centrifuge.Ping); err != nil {
				return established, &ConnectionError{Session: session.Name, Op: "echo ping", Err: err}
			}
			continue
		}

		events, err := centrifuge.DecodeFrame(data)
		for _, event := range events {
			m.raster.Apply(event)
		}
		if err != nil {
			var serverErr *centrifuge.ServerError
			if errors.As(err, &serverErr) {
				return established, &ConnectionError{Session: session.Name, Op: "server", Err: err}
			}
			m.logger.Debug("ignoring undecodable frame",
				"session", session.Name,
				"bytes", len(data),
				"error", err,
			)
			continue
		}

		if !established && ctx.Err() == nil {
			established = true
			m.markStreaming(gen, session)
		}
	}
}

// ensureToken returns the manager's token if it is still valid, and
// otherwise fetches one from the session with bounded retries.
func (m *Manager) ensureToken(ctx context.Context, gen uint64, session *Session) (string, error) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()
	if !TokenExpired(token, m.clock.Now(), m.expiryMargin) {
		return token, nil
	}

	token, err := retry.Do(ctx, m.retryPolicy(m.tokenAttempts), "fetch channel token", session.backend.WebsocketToken)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TokenError{Session: session.Name, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	session.token = token
	if m.currentLocked(gen) {
		m.token = token
	}
	return token, nil
}

// seedCanvas replaces the mirror with a fresh canvas image. Fetch
// failures are connection failures; a bad image is a *canvas.DecodeError.
func (m *Manager) seedCanvas(ctx context.Context, session *Session) error {
	encoded, err := retry.Do(ctx, m.retryPolicy(m.imageAttempts), "fetch canvas image", session.backend.CanvasImage)
	if err != nil {
		return &ConnectionError{Session: session.Name, Op: "fetch canvas", Err: err}
	}
	if err := m.raster.Replace(encoded); err != nil {
		return err
	}
	if m.logger.Enabled(ctx, slog.LevelDebug) {
		m.logger.Debug("mirror seeded", "session", session.Name, "digest", fmt.Sprintf("%x", m.raster.Digest()))
	}
	return nil
}
