// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pixelwarden/pixelwarden/lib/canvas"
	"github.com/pixelwarden/pixelwarden/lib/centrifuge"
	"github.com/pixelwarden/pixelwarden/lib/clock"
	"github.com/pixelwarden/pixelwarden/lib/config"
	"github.com/pixelwarden/pixelwarden/lib/testutil"
)

const testTimeout = 5 * time.Second

var (
	blackCanvasOnce sync.Once
	blackCanvas     []byte
)

// blackCanvasPNG returns a solid opaque-black canvas image, encoded
// once per test binary.
func blackCanvasPNG(t *testing.T) []byte {
	t.Helper()
	blackCanvasOnce.Do(func() {
		blackCanvas = testutil.SolidPNG(t, 1000, 1000, color.NRGBA{0, 0, 0, 255})
	})
	return blackCanvas
}

// fakeBackend serves a fixed token and canvas image.
type fakeBackend struct {
	mu         sync.Mutex
	token      string
	tokenErr   error
	image      []byte
	block      bool
	blockImage bool
	tokenCalls int
	imageCalls int
}

func (b *fakeBackend) WebsocketToken(ctx context.Context) (string, error) {
	b.mu.Lock()
	block := b.block
	b.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokenCalls++
	if b.tokenErr != nil {
		return "", b.tokenErr
	}
	return b.token, nil
}

func (b *fakeBackend) CanvasImage(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	b.imageCalls++
	block := b.blockImage
	b.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return b.image, nil
}

func (b *fakeBackend) setBlockImage(block bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blockImage = block
}

func (b *fakeBackend) imageFetches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.imageCalls
}

func (b *fakeBackend) setTokenErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokenErr = err
}

func (b *fakeBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokenCalls
}

// channelServer is a WebSocket endpoint speaking the push protocol. It
// reads the connect command, reports its token, and hands the
// connection to script.
type channelServer struct {
	server *httptest.Server
	tokens chan string
}

type serverScript func(conn *websocket.Conn, commandID uint32)

func newChannelServer(t *testing.T, script serverScript) *channelServer {
	t.Helper()
	channel := &channelServer{tokens: make(chan string, 32)}
	upgrader := websocket.Upgrader{Subprotocols: []string{centrifuge.Subprotocol}}
	channel.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		commands, err := centrifuge.DecodeCommands(frame)
		if err != nil || len(commands) != 1 || commands[0].Connect == nil {
			t.Errorf("expected one connect command, got %+v (%v)", commands, err)
			return
		}
		channel.tokens <- commands[0].Connect.Token
		script(conn, commands[0].ID)
	}))
	t.Cleanup(channel.server.Close)
	return channel
}

func (c *channelServer) url() string {
	return "ws" + strings.TrimPrefix(c.server.URL, "http")
}

// streamScript acknowledges the connect command, sends frames, and
// then holds the connection open until the client goes away.
func streamScript(frames ...[]byte) serverScript {
	return func(conn *websocket.Conn, commandID uint32) {
		if err := conn.WriteMessage(websocket.BinaryMessage, centrifuge.AppendConnectResult(nil, commandID, "client")); err != nil {
			return
		}
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func newTestManager(t *testing.T, config Config) *Manager {
	t.Helper()
	if config.URL == "" {
		config.URL = "ws://127.0.0.1:1/unused"
	}
	if config.Raster == nil {
		config.Raster = canvas.New()
	}
	if config.TokenAttempts == 0 {
		config.TokenAttempts = 1
	}
	if config.ImageAttempts == 0 {
		config.ImageAttempts = 1
	}
	config.Logger = testutil.DiscardLogger()
	manager, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(manager.Stop)
	return manager
}

func addSession(t *testing.T, manager *Manager, credentials Credentials) *Session {
	t.Helper()
	session, err := manager.AddSession(credentials)
	if err != nil {
		t.Fatalf("AddSession(%s): %v", credentials.Name, err)
	}
	return session
}

func activeName(t *testing.T, manager *Manager) string {
	t.Helper()
	session, err := manager.ActiveSession()
	if err != nil {
		t.Fatalf("ActiveSession: %v", err)
	}
	return session.Name
}

func waitSynced(t *testing.T, manager *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	if err := manager.WaitSynced(ctx); err != nil {
		t.Fatalf("WaitSynced: %v", err)
	}
}

func TestSwitchToNextCycles(t *testing.T) {
	manager := newTestManager(t, Config{})
	for _, name := range []string{"a", "b", "c"} {
		addSession(t, manager, Credentials{Name: name, Backend: &fakeBackend{block: true}})
	}
	if got := activeName(t, manager); got != "a" {
		t.Fatalf("active = %s, want a", got)
	}

	for _, want := range []string{"b", "c", "a"} {
		if err := manager.SwitchToNext(); err != nil {
			t.Fatalf("SwitchToNext: %v", err)
		}
		if got := activeName(t, manager); got != want {
			t.Fatalf("active = %s, want %s", got, want)
		}
	}

	active := 0
	for _, session := range manager.Sessions() {
		manager.mu.Lock()
		if session.active {
			active++
		}
		manager.mu.Unlock()
	}
	if active != 1 {
		t.Fatalf("%d sessions marked active, want 1", active)
	}
}

func TestSwitchToNextEmptyPool(t *testing.T) {
	manager := newTestManager(t, Config{})
	if err := manager.SwitchToNext(); !errors.Is(err, ErrNoAvailableSessions) {
		t.Fatalf("SwitchToNext = %v, want ErrNoAvailableSessions", err)
	}
	if _, err := manager.ActiveSession(); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("ActiveSession = %v, want ErrNoActiveSession", err)
	}
}

func TestSwitchToNextSingleSession(t *testing.T) {
	manager := newTestManager(t, Config{})
	addSession(t, manager, Credentials{Name: "only", Backend: &fakeBackend{block: true}})
	if err := manager.SwitchToNext(); !errors.Is(err, ErrNoAvailableSessions) {
		t.Fatalf("SwitchToNext = %v, want ErrNoAvailableSessions", err)
	}
}

func TestAddSessionDuplicateIsIgnored(t *testing.T) {
	manager := newTestManager(t, Config{})
	first := addSession(t, manager, Credentials{Name: "a", Backend: &fakeBackend{block: true}})
	second := addSession(t, manager, Credentials{Name: "a", Backend: &fakeBackend{block: true}})
	if first != second {
		t.Fatal("duplicate AddSession returned a new session")
	}
	if got := len(manager.Sessions()); got != 1 {
		t.Fatalf("pool size = %d, want 1", got)
	}
	if _, err := manager.AddSession(Credentials{Name: "b"}); err == nil {
		t.Fatal("AddSession accepted credentials without a backend")
	}
}

func TestStreamingAppliesUpdatesAndEchoesPing(t *testing.T) {
	echoes := make(chan []byte, 1)
	server := newChannelServer(t, func(conn *websocket.Conn, commandID uint32) {
		conn.WriteMessage(websocket.BinaryMessage, centrifuge.AppendConnectResult(nil, commandID, "client"))
		conn.WriteMessage(websocket.BinaryMessage, centrifuge.Ping)
		_, echo, err := conn.ReadMessage()
		if err != nil {
			return
		}
		echoes <- echo
		conn.WriteMessage(websocket.BinaryMessage,
			centrifuge.AppendPublication(nil, centrifuge.PixelChannel, []byte(`{"#FF0000":[1]}`)))
		streamScript()(conn, commandID)
	})

	raster := canvas.New()
	manager := newTestManager(t, Config{URL: server.url(), Raster: raster})
	token := signedToken(t, time.Now().Add(time.Hour))
	addSession(t, manager, Credentials{Name: "a", Backend: &fakeBackend{token: token, image: blackCanvasPNG(t)}})

	waitSynced(t, manager)
	if got := testutil.RequireReceive(t, server.tokens, testTimeout, "connect token"); got != token {
		t.Fatalf("connect token = %q, want %q", got, token)
	}
	if echo := testutil.RequireReceive(t, echoes, testTimeout, "ping echo"); !bytes.Equal(echo, centrifuge.Ping) {
		t.Fatalf("echo = %v, want %v", echo, centrifuge.Ping)
	}

	testutil.Eventually(t, testTimeout, func() bool {
		got, _ := raster.Pixel(1)
		return got == color.NRGBA{255, 0, 0, 255}
	}, "pixel 1 painted red")
	if got, _ := raster.Pixel(2); got != (color.NRGBA{0, 0, 0, 255}) {
		t.Fatalf("pixel 2 = %v, want the seeded black", got)
	}
	if state := manager.State(); state != StateStreaming {
		t.Fatalf("state = %s, want streaming", state)
	}
}

func TestPresetTokenIsUsed(t *testing.T) {
	server := newChannelServer(t, streamScript())
	manager := newTestManager(t, Config{URL: server.url()})
	preset := signedToken(t, time.Now().Add(time.Hour))
	backend := &fakeBackend{token: "unused", image: blackCanvasPNG(t)}
	addSession(t, manager, Credentials{Name: "a", Backend: backend, Token: preset})

	waitSynced(t, manager)
	if got := testutil.RequireReceive(t, server.tokens, testTimeout, "connect token"); got != preset {
		t.Fatalf("connect token = %q, want the preset token", got)
	}
	if backend.calls() != 0 {
		t.Fatalf("token fetched %d times, want 0", backend.calls())
	}
}

func TestFailoverExhaustsPool(t *testing.T) {
	manager := newTestManager(t, Config{})
	backends := map[string]*fakeBackend{}
	manager.mu.Lock()
	// Fill the pool before the first activation can fail.
	for _, name := range []string{"a", "b", "c"} {
		backends[name] = &fakeBackend{tokenErr: errors.New("unauthorized"), image: blackCanvasPNG(t)}
		manager.sessions = append(manager.sessions, &Session{ID: name, Name: name, backend: backends[name]})
	}
	manager.activateLocked(manager.sessions[0])
	manager.mu.Unlock()

	testutil.RequireClosed(t, manager.Done(), testTimeout, "manager stopped")
	if err := manager.Err(); !errors.Is(err, ErrNoAvailableSessions) {
		t.Fatalf("Err = %v, want ErrNoAvailableSessions", err)
	}
	var tokenErr *TokenError
	if !errors.As(manager.Err(), &tokenErr) {
		t.Fatalf("Err = %v, want the last TokenError wrapped", manager.Err())
	}
	for name, backend := range backends {
		if backend.calls() != 1 {
			t.Errorf("session %s fetched a token %d times, want 1", name, backend.calls())
		}
	}
	if state := manager.State(); state != StateStopped {
		t.Fatalf("state = %s, want stopped", state)
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	if err := manager.WaitSynced(ctx); !errors.Is(err, ErrNoAvailableSessions) {
		t.Fatalf("WaitSynced = %v, want the stop error", err)
	}
}

// failingDialer refuses connections for one account and delegates the
// rest.
type failingDialer struct {
	account string
	next    Dialer

	mu       sync.Mutex
	failures int
}

func (d *failingDialer) Dial(ctx context.Context, channelURL string, header http.Header, proxy *url.URL) (Conn, error) {
	if header.Get("X-Account") == d.account {
		d.mu.Lock()
		d.failures++
		d.mu.Unlock()
		return nil, errors.New("connection refused")
	}
	return d.next.Dial(ctx, channelURL, header, proxy)
}

func (d *failingDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failures
}

func TestReconnectThenFailover(t *testing.T) {
	server := newChannelServer(t, streamScript())
	dialer := &failingDialer{account: "a", next: WebsocketDialer{}}
	manager := newTestManager(t, Config{URL: server.url(), Dialer: dialer, ReconnectAttempts: 2})

	token := signedToken(t, time.Now().Add(time.Hour))
	manager.mu.Lock()
	for _, name := range []string{"a", "b"} {
		manager.sessions = append(manager.sessions, &Session{
			ID:            name,
			Name:          name,
			backend:       &fakeBackend{token: token, image: blackCanvasPNG(t)},
			channelHeader: http.Header{"X-Account": {name}},
		})
	}
	manager.activateLocked(manager.sessions[0])
	manager.mu.Unlock()

	waitSynced(t, manager)
	if got := activeName(t, manager); got != "b" {
		t.Fatalf("active = %s, want b", got)
	}
	if got := dialer.count(); got != 3 {
		t.Fatalf("dials for a = %d, want 1 + 2 reconnects", got)
	}
}

func TestServerDisconnectReconnects(t *testing.T) {
	var mu sync.Mutex
	connections := 0
	server := newChannelServer(t, func(conn *websocket.Conn, commandID uint32) {
		mu.Lock()
		connections++
		first := connections == 1
		mu.Unlock()
		if first {
			conn.WriteMessage(websocket.BinaryMessage, centrifuge.AppendDisconnect(nil, 3005, "force reconnect"))
			return
		}
		streamScript()(conn, commandID)
	})

	manager := newTestManager(t, Config{URL: server.url()})
	token := signedToken(t, time.Now().Add(time.Hour))
	addSession(t, manager, Credentials{Name: "a", Backend: &fakeBackend{token: token, image: blackCanvasPNG(t)}})

	waitSynced(t, manager)
	testutil.RequireReceive(t, server.tokens, testTimeout, "first connection")
	testutil.RequireReceive(t, server.tokens, testTimeout, "second connection")
	if got := activeName(t, manager); got != "a" {
		t.Fatalf("active = %s, want a (reconnect, not failover)", got)
	}
}

func TestBadCanvasImageStops(t *testing.T) {
	manager := newTestManager(t, Config{})
	token := signedToken(t, time.Now().Add(time.Hour))
	addSession(t, manager, Credentials{Name: "a", Backend: &fakeBackend{token: token, image: []byte("garbage")}})

	testutil.RequireClosed(t, manager.Done(), testTimeout, "manager stopped")
	var decodeErr *canvas.DecodeError
	if !errors.As(manager.Err(), &decodeErr) {
		t.Fatalf("Err = %v, want *canvas.DecodeError", manager.Err())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	manager := newTestManager(t, Config{})
	addSession(t, manager, Credentials{Name: "a", Backend: &fakeBackend{block: true}})

	manager.Stop()
	manager.Stop()

	testutil.RequireClosed(t, manager.Done(), testTimeout, "manager stopped")
	if err := manager.Err(); err != nil {
		t.Fatalf("Err = %v, want nil after Stop", err)
	}
	if state := manager.State(); state != StateStopped {
		t.Fatalf("state = %s, want stopped", state)
	}
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	if err := manager.WaitSynced(ctx); !errors.Is(err, ErrStopped) {
		t.Fatalf("WaitSynced = %v, want ErrStopped", err)
	}
	if err := manager.SwitchToNext(); !errors.Is(err, ErrStopped) {
		t.Fatalf("SwitchToNext = %v, want ErrStopped", err)
	}
}

func TestRestartAfterExhaustion(t *testing.T) {
	server := newChannelServer(t, streamScript())
	manager := newTestManager(t, Config{URL: server.url()})
	backend := &fakeBackend{
		token:    signedToken(t, time.Now().Add(time.Hour)),
		tokenErr: errors.New("unauthorized"),
		image:    blackCanvasPNG(t),
	}
	addSession(t, manager, Credentials{Name: "a", Backend: backend})

	stopped := manager.Done()
	testutil.RequireClosed(t, stopped, testTimeout, "manager stopped")
	if !errors.Is(manager.Err(), ErrNoAvailableSessions) {
		t.Fatalf("Err = %v, want ErrNoAvailableSessions", manager.Err())
	}

	backend.setTokenErr(nil)
	if err := manager.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if manager.Done() == stopped {
		t.Fatal("Done channel was not replaced on restart")
	}
	waitSynced(t, manager)
	if manager.Err() != nil {
		t.Fatalf("Err = %v after restart", manager.Err())
	}
}

func TestRefreshRotatesExpiringToken(t *testing.T) {
	epoch := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := clock.Fake(epoch)
	server := newChannelServer(t, streamScript())
	manager := newTestManager(t, Config{URL: server.url(), Clock: fake})

	shortToken := signedToken(t, epoch.Add(10*time.Minute))
	longToken := signedToken(t, epoch.Add(time.Hour))
	addSession(t, manager, Credentials{Name: "a", Backend: &fakeBackend{token: shortToken, image: blackCanvasPNG(t)}})
	addSession(t, manager, Credentials{Name: "b", Backend: &fakeBackend{token: longToken, image: blackCanvasPNG(t)}})

	waitSynced(t, manager)
	if got := testutil.RequireReceive(t, server.tokens, testTimeout, "first token"); got != shortToken {
		t.Fatal("first connection did not use session a's token")
	}

	// One refresh tick at +1m: ten minutes left is outside the margin.
	fake.WaitForTimers(1)
	fake.Advance(time.Minute)
	// At +6m only four minutes remain.
	fake.Advance(5 * time.Minute)

	if got := testutil.RequireReceive(t, server.tokens, testTimeout, "rotated token"); got != longToken {
		t.Fatal("rotated connection did not use session b's token")
	}
	testutil.Eventually(t, testTimeout, func() bool {
		session, err := manager.ActiveSession()
		return err == nil && session.Name == "b" && manager.State() == StateStreaming
	}, "session b streaming")
}

func TestStoppedManagerIsNeverSynced(t *testing.T) {
	server := newChannelServer(t, streamScript())
	manager := newTestManager(t, Config{URL: server.url()})
	token := signedToken(t, time.Now().Add(time.Hour))
	addSession(t, manager, Credentials{Name: "a", Backend: &fakeBackend{token: token, image: blackCanvasPNG(t)}})
	waitSynced(t, manager)

	cause := errors.New("channel lost")
	manager.mu.Lock()
	manager.stopLocked(cause)
	manager.mu.Unlock()

	for range 50 {
		if err := manager.WaitSynced(context.Background()); !errors.Is(err, cause) {
			t.Fatalf("WaitSynced on a stopped manager = %v, want %v", err, cause)
		}
	}
}

func TestWaitSyncedAfterRestartWaitsForReseed(t *testing.T) {
	server := newChannelServer(t, streamScript())
	manager := newTestManager(t, Config{URL: server.url()})
	backend := &fakeBackend{token: signedToken(t, time.Now().Add(time.Hour)), image: blackCanvasPNG(t)}
	addSession(t, manager, Credentials{Name: "a", Backend: backend})
	waitSynced(t, manager)

	manager.mu.Lock()
	manager.stopLocked(errors.New("channel lost"))
	manager.mu.Unlock()

	backend.setBlockImage(true)
	if err := manager.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	testutil.Eventually(t, testTimeout, func() bool {
		return backend.imageFetches() == 2
	}, "restarted connection fetching the canvas")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := manager.WaitSynced(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WaitSynced before re-seed = %v, want deadline exceeded", err)
	}
	if state := manager.State(); state == StateStreaming {
		t.Fatalf("state = %s before the canvas was re-seeded", state)
	}
}

func TestRefreshFailsOverWhenTokenFetchFails(t *testing.T) {
	epoch := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := clock.Fake(epoch)
	server := newChannelServer(t, streamScript())
	manager := newTestManager(t, Config{URL: server.url(), Clock: fake})

	shortToken := signedToken(t, epoch.Add(10*time.Minute))
	longToken := signedToken(t, epoch.Add(time.Hour))
	refused := &fakeBackend{tokenErr: errors.New("unauthorized"), image: blackCanvasPNG(t)}
	addSession(t, manager, Credentials{Name: "a", Backend: &fakeBackend{token: shortToken, image: blackCanvasPNG(t)}})
	addSession(t, manager, Credentials{Name: "b", Backend: refused})
	addSession(t, manager, Credentials{Name: "c", Backend: &fakeBackend{token: longToken, image: blackCanvasPNG(t)}})

	waitSynced(t, manager)
	testutil.RequireReceive(t, server.tokens, testTimeout, "first token")

	fake.WaitForTimers(1)
	fake.Advance(6 * time.Minute)

	if got := testutil.RequireReceive(t, server.tokens, testTimeout, "token after failover"); got != longToken {
		t.Fatal("connection after the refused token fetch did not use session c's token")
	}
	testutil.Eventually(t, testTimeout, func() bool {
		session, err := manager.ActiveSession()
		return err == nil && session.Name == "c" && manager.State() == StateStreaming
	}, "session c streaming")
	if refused.calls() != 1 {
		t.Errorf("session b token fetches = %d, want 1", refused.calls())
	}
	if err := manager.Err(); err != nil {
		t.Fatalf("Err = %v, want a running manager", err)
	}
}

func TestNewRequiresURLAndRaster(t *testing.T) {
	if _, err := New(Config{Raster: canvas.New()}); err == nil {
		t.Error("New accepted a missing URL")
	}
	if _, err := New(Config{URL: "ws://example"}); err == nil {
		t.Error("New accepted a missing raster")
	}
}

func TestDefaultFetchAttemptsMatchConfig(t *testing.T) {
	manager, err := New(Config{URL: "ws://example", Raster: canvas.New(), Logger: testutil.DiscardLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defaults := config.Default().Channel
	if manager.tokenAttempts != defaults.TokenAttempts {
		t.Errorf("token attempts = %d, config default %d", manager.tokenAttempts, defaults.TokenAttempts)
	}
	if manager.imageAttempts != defaults.ImageAttempts {
		t.Errorf("image attempts = %d, config default %d", manager.imageAttempts, defaults.ImageAttempts)
	}
}
