package realtime

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yishak-cs/themenu/internal/services"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		team, err := strconv.Atoi(r.URL.Query().Get("team"))
		if err != nil {
			http.Error(w, "team required", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(NewClient(uint(team), 1, conn))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, team int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?team=" + strconv.Itoa(team)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestPublishReachesOnlyTheTeam(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := newTestServer(t, hub)

	alice := dial(t, srv, 1)
	bob := dial(t, srv, 1)
	carol := dial(t, srv, 2)
	require.Eventually(t, func() bool { return hub.Count(1) == 2 && hub.Count(2) == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(1, services.Event{Kind: services.EventGroceryChanged, TeamID: 1})

	for _, conn := range []*websocket.Conn{alice, bob} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var event services.Event
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, services.EventGroceryChanged, event.Kind)
		assert.EqualValues(t, 1, event.TeamID)
	}

	require.NoError(t, carol.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := carol.ReadMessage()
	assert.Error(t, err, "other teams hear nothing")
}

func TestClosedClientsAreUnregistered(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := newTestServer(t, hub)

	conn := dial(t, srv, 3)
	require.Eventually(t, func() bool { return hub.Count(3) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Count(3) == 0 }, time.Second, 10*time.Millisecond)
}

func TestCloseAllDisconnectsEveryone(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := newTestServer(t, hub)

	conn := dial(t, srv, 4)
	require.Eventually(t, func() bool { return hub.Count(4) == 1 }, time.Second, 10*time.Millisecond)

	hub.CloseAll()
	assert.Zero(t, hub.Count(4))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestSlowClientIsDroppedWithoutBlocking(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	// no writer goroutine, so the queue never drains
	stuck := NewClient(5, 1, nil)
	hub.Register(stuck)

	started := time.Now()
	for i := 0; i <= sendBuffer; i++ {
		hub.Publish(5, services.Event{Kind: services.EventGroceryChanged, TeamID: 5})
	}

	assert.Less(t, time.Since(started), time.Second)
	assert.Zero(t, hub.Count(5))
	assert.Len(t, stuck.send, sendBuffer)
	select {
	case <-stuck.done:
	default:
		t.Fatal("dropped client was not stopped")
	}
}
