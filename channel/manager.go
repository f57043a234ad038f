// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pixelwarden/pixelwarden/lib/canvas"
	"github.com/pixelwarden/pixelwarden/lib/clock"
	"github.com/pixelwarden/pixelwarden/lib/retry"
)

// Defaults for Config fields left zero.
const (
	DefaultRefreshInterval   = 60 * time.Second
	DefaultExpiryMargin      = 5 * time.Minute
	DefaultReconnectAttempts = 3
	DefaultReconnectDelay    = 5 * time.Second
	DefaultFetchAttempts     = 3
)

// Config holds configuration for creating a Manager.
type Config struct {
	// URL is the channel's WebSocket endpoint.
	URL string

	// Raster is the mirror updated from the channel.
	Raster *canvas.Raster

	// Dialer opens connections. Nil means WebsocketDialer{}.
	Dialer Dialer

	// RefreshInterval is how often the token's expiry is checked.
	RefreshInterval time.Duration
	// ExpiryMargin: a token expiring within this margin is replaced.
	ExpiryMargin time.Duration

	// ReconnectAttempts is how many times a failed connection is
	// re-dialed before failing over. Negative means none.
	ReconnectAttempts int
	// ReconnectDelay is the pause before each re-dial and between
	// fetch retries.
	ReconnectDelay time.Duration

	// TokenAttempts and ImageAttempts bound the token and canvas
	// fetches, including the first try.
	TokenAttempts int
	ImageAttempts int

	Clock  clock.Clock
	Logger *slog.Logger
}

// Manager owns the session pool and the single channel connection.
type Manager struct {
	url               string
	raster            *canvas.Raster
	dialer            Dialer
	refreshInterval   time.Duration
	expiryMargin      time.Duration
	reconnectAttempts int
	reconnectDelay    time.Duration
	tokenAttempts     int
	imageAttempts     int
	clock             clock.Clock
	logger            *slog.Logger

	mu       sync.Mutex
	sessions []*Session
	active   *Session
	token    string
	state    State
	// generation increases on every activation and on Stop. A
	// connection goroutine only changes state while its generation is
	// current.
	generation uint64
	// failovers counts failovers since the last connection that reached
	// streaming.
	failovers     int
	root          context.Context
	rootCancel    context.CancelFunc
	connCancel    context.CancelFunc
	refreshCancel context.CancelFunc
	synced        chan struct{}
	done          chan struct{}
	err           error
}

// New creates a Manager in StateIdle. No connection is made until the
// first AddSession.
func New(config Config) (*Manager, error) {
	if config.URL == "" {
		return nil, errors.New("channel: URL is required")
	}
	if config.Raster == nil {
		return nil, errors.New("channel: Raster is required")
	}

	manager := &Manager{
		url:               config.URL,
		raster:            config.Raster,
		dialer:            config.Dialer,
		refreshInterval:   config.RefreshInterval,
		expiryMargin:      config.ExpiryMargin,
		reconnectAttempts: config.ReconnectAttempts,
		reconnectDelay:    config.ReconnectDelay,
		tokenAttempts:     config.TokenAttempts,
		imageAttempts:     config.ImageAttempts,
		clock:             config.Clock,
		logger:            config.Logger,
		synced:            make(chan struct{}),
		done:              make(chan struct{}),
	}
	if manager.dialer == nil {
		manager.dialer = WebsocketDialer{}
	}
	if manager.refreshInterval <= 0 {
		manager.refreshInterval = DefaultRefreshInterval
	}
	if manager.expiryMargin <= 0 {
		manager.expiryMargin = DefaultExpiryMargin
	}
	if manager.reconnectAttempts == 0 {
		manager.reconnectAttempts = DefaultReconnectAttempts
	}
	manager.reconnectAttempts = max(manager.reconnectAttempts, 0)
	if manager.tokenAttempts <= 0 {
		manager.tokenAttempts = DefaultFetchAttempts
	}
	if manager.imageAttempts <= 0 {
		manager.imageAttempts = DefaultFetchAttempts
	}
	if manager.clock == nil {
		manager.clock = clock.Real()
	}
	if manager.logger == nil {
		manager.logger = slog.Default()
	}
	manager.root, manager.rootCancel = context.WithCancel(context.Background())
	return manager, nil
}

// AddSession adds an account to the pool. The first session added to a
// manager without an active session is activated immediately; its
// connection is established in the background. Adding a name already in
// the pool returns the existing session.
func (m *Manager) AddSession(credentials Credentials) (*Session, error) {
	if credentials.Backend == nil {
		return nil, errors.New("channel: session backend is required")
	}
	name := credentials.Name
	id := uuid.NewString()
	if name == "" {
		name = id
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.sessions {
		if existing.Name == name {
			return existing, nil
		}
	}
	session := &Session{
		ID:            id,
		Name:          name,
		backend:       credentials.Backend,
		channelHeader: credentials.ChannelHeader.Clone(),
		proxy:         credentials.Proxy,
		token:         credentials.Token,
	}
	m.sessions = append(m.sessions, session)
	m.logger.Info("session added", "session", name, "pool_size", len(m.sessions))

	if m.active == nil && m.state != StateStopped {
		m.activateLocked(session)
	}
	return session, nil
}

// Sessions returns the pool in insertion order.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Session(nil), m.sessions...)
}

// ActiveSession returns the active session.
func (m *Manager) ActiveSession() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, ErrNoActiveSession
	}
	return m.active, nil
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Done returns a channel closed when the manager stops. After Restart,
// Done returns a new channel.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Err returns the error that stopped the manager, or nil if it is
// running or was stopped by Stop.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// WaitSynced blocks until the mirror has been seeded from the canvas
// image and the channel is streaming. A stopped manager is never
// synced: WaitSynced returns the stop error (or ErrStopped) instead.
// After Restart it waits for the restarted connection to seed again.
func (m *Manager) WaitSynced(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateStopped {
		defer m.mu.Unlock()
		return m.stoppedErrLocked()
	}
	synced, done := m.synced, m.done
	m.mu.Unlock()

	select {
	case <-synced:
		// A stop racing the sync wins.
		select {
		case <-done:
			return m.stoppedErr()
		default:
			return nil
		}
	case <-done:
		return m.stoppedErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) stoppedErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stoppedErrLocked()
}

func (m *Manager) stoppedErrLocked() error {
	if m.err != nil {
		return m.err
	}
	return ErrStopped
}

// SwitchToNext makes the session after the active one active,
// wrapping around the pool. It fails with ErrNoAvailableSessions when
// the pool is empty or holds a single session.
func (m *Manager) SwitchToNext() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateStopped {
		return ErrStopped
	}
	return m.switchToNextLocked()
}

func (m *Manager) switchToNextLocked() error {
	if len(m.sessions) == 0 {
		return fmt.Errorf("%w: pool is empty", ErrNoAvailableSessions)
	}
	current := -1
	for index, session := range m.sessions {
		if session == m.active {
			current = index
			break
		}
	}
	next := (current + 1) % len(m.sessions)
	if next == current {
		return fmt.Errorf("%w: no other session to switch to", ErrNoAvailableSessions)
	}

	from := ""
	if m.active != nil {
		from = m.active.Name
	}
	m.logger.Info("switching session", "from", from, "to", m.sessions[next].Name)
	m.state = StateSwitching
	m.activateLocked(m.sessions[next])
	return nil
}

// activateLocked makes session active and starts its connection
// goroutine, cancelling the previous one.
func (m *Manager) activateLocked(session *Session) {
	if m.active != nil {
		m.active.active = false
	}
	m.active = session
	session.active = true
	if m.token == "" {
		m.token = session.token
	}

	if m.connCancel != nil {
		m.connCancel()
	}
	m.generation++
	ctx, cancel := context.WithCancel(m.root)
	m.connCancel = cancel
	m.state = StateConnecting

	go m.run(ctx, m.generation, session)
}

// Stop stops the manager: the refresh loop ends and the channel is
// closed. Safe to call repeatedly and from any goroutine.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked(nil)
}

func (m *Manager) stopLocked(cause error) {
	if m.state == StateStopped {
		return
	}
	m.generation++
	m.rootCancel()
	m.connCancel = nil
	m.refreshCancel = nil
	m.state = StateStopped
	m.err = cause
	close(m.done)

	if cause != nil {
		m.logger.Error("channel manager stopped", "error", cause)
	} else {
		m.logger.Info("channel manager stopped")
	}
}

// Restart reactivates a stopped manager with its last active session,
// or the first session if none was active. The failover count starts
// over and WaitSynced blocks again until the mirror is re-seeded. Restarting a running manager is a no-op.
func (m *Manager) Restart() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateStopped {
		return nil
	}
	if len(m.sessions) == 0 {
		return fmt.Errorf("%w: pool is empty", ErrNoAvailableSessions)
	}

	session := m.active
	if session == nil {
		session = m.sessions[0]
	}
	m.root, m.rootCancel = context.WithCancel(context.Background())
	m.done = make(chan struct{})
	m.synced = make(chan struct{})
	m.err = nil
	m.failovers = 0
	m.state = StateIdle
	m.logger.Info("restarting channel manager", "session", session.Name)
	m.activateLocked(session)
	return nil
}

// currentLocked reports whether gen is still the live generation.
func (m *Manager) currentLocked(gen uint64) bool {
	return gen == m.generation && m.state != StateStopped
}

func (m *Manager) setState(gen uint64, state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentLocked(gen) {
		m.state = state
	}
}

// markStreaming records a working connection: the failover count
// resets, WaitSynced callers are released, and the refresh loop starts
// if it is not running.
func (m *Manager) markStreaming(gen uint64, session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.currentLocked(gen) {
		return
	}
	m.state = StateStreaming
	m.failovers = 0
	select {
	case <-m.synced:
	default:
		close(m.synced)
	}
	if m.refreshCancel == nil {
		ctx, cancel := context.WithCancel(m.root)
		m.refreshCancel = cancel
		go m.refreshLoop(ctx)
	}
	m.logger.Info("channel streaming", "session", session.Name)
}

// failover moves to the next session after the active one failed.
// When every session has failed in a row, or there is nowhere to go,
// the manager stops with ErrNoAvailableSessions.
func (m *Manager) failover(gen uint64, session *Session, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.currentLocked(gen) {
		return
	}

	m.failovers++
	m.logger.Warn("session failed, failing over",
		"session", session.Name,
		"failovers", m.failovers,
		"pool_size", len(m.sessions),
		"error", cause,
	)
	if m.failovers >= len(m.sessions) {
		m.stopLocked(fmt.Errorf("%w: all %d sessions failed: %w", ErrNoAvailableSessions, len(m.sessions), cause))
		return
	}
	m.token = ""
	if err := m.switchToNextLocked(); err != nil {
		m.stopLocked(fmt.Errorf("%w: %w", err, cause))
	}
}

// stopFrom stops the manager on behalf of a connection goroutine.
func (m *Manager) stopFrom(gen uint64, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentLocked(gen) {
		m.stopLocked(cause)
	}
}

func (m *Manager) retryPolicy(attempts int) retry.Policy {
	return retry.Policy{
		Attempts: attempts,
		Delay:    m.reconnectDelay,
		Clock:    m.clock,
		Logger:   m.logger,
	}
}
