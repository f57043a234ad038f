// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import "context"

// refreshLoop checks the token every refresh interval until ctx ends.
// It starts once, on the first connection that reaches streaming.
func (m *Manager) refreshLoop(ctx context.Context) {
	ticker := m.clock.NewTicker(m.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refreshIfNeeded()
		}
	}
}

// refreshIfNeeded rotates the connection to a fresh token when the
// current one is expired or about to expire. The token is cleared and
// the next session activated; its connection goroutine fetches a new
// token and re-opens the channel, failing over again if that fetch
// fails. A pool of one re-activates the same session.
//
// Only a streaming connection is rotated. While a session is still
// connecting its goroutine owns the token, and an empty token there
// means a fetch is pending, not an expiry.
func (m *Manager) refreshIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateStreaming || m.active == nil {
		return
	}
	if !TokenExpired(m.token, m.clock.Now(), m.expiryMargin) {
		return
	}

	m.logger.Info("channel token expiring, rotating", "session", m.active.Name)
	m.token = ""
	m.active.token = ""
	if len(m.sessions) == 1 {
		m.activateLocked(m.active)
		return
	}
	if err := m.switchToNextLocked(); err != nil {
		m.stopLocked(err)
	}
}
