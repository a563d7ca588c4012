package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// Every test stops its hub and closes its conns; the pumps must not outlive them.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := strings.Replace(srv.URL, "http", "ws", 1)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub, srv := newTestHub(t)
	defer hub.Stop()

	c1 := dial(t, srv)
	c2 := dial(t, srv)

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Broadcast <- []byte(`{"type":"new_confession"}`)

	for _, conn := range []*websocket.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		kind, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, kind)
		assert.Equal(t, `{"type":"new_confession"}`, string(msg))
	}
}

func TestHub_ClientCountTracksDisconnects(t *testing.T) {
	hub, srv := newTestHub(t)
	defer hub.Stop()

	c1 := dial(t, srv)
	dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	c1.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHub_OnClientCountCallback(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	var last atomic.Int32
	hub.OnClientCount = func(n int) { last.Store(int32(n)) }
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	defer srv.Close()

	dial(t, srv)
	require.Eventually(t, func() bool { return last.Load() == 1 }, time.Second, 10*time.Millisecond)

	hub.Stop()
	assert.Equal(t, int32(0), last.Load())
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub, srv := newTestHub(t)

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Stop()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "read must fail after the hub stops")
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_BroadcastWithNoClientsDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()
	defer hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.Broadcast <- []byte("nobody home")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked with no clients")
	}
}
