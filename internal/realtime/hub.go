package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yishak-cs/themenu/internal/services"
)

const (
	pingInterval = 25 * time.Second
	writeTimeout = 10 * time.Second
	sendBuffer   = 16
)

// Client is one websocket connection of a team member. Only its writer
// goroutine touches the connection for writes.
type Client struct {
	TeamID uint
	UserID uint
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once

	closeCode int
	closeText string
}

// NewClient wraps an upgraded connection.
func NewClient(teamID, userID uint, conn *websocket.Conn) *Client {
	return &Client{
		TeamID:    teamID,
		UserID:    userID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
		closeCode: websocket.CloseNormalClosure,
	}
}

// enqueue hands msg to the writer without blocking. It reports false when the
// queue is full or the client is stopping.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) stop(code int, text string) {
	c.once.Do(func() {
		c.closeCode, c.closeText = code, text
		close(c.done)
	})
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// writeLoop drains the send queue and pings until the client stops, then
// sends a close frame and closes the connection.
func (c *Client) writeLoop() {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	defer c.conn.Close()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-t.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(c.closeCode, c.closeText))
			return
		}
	}
}

// Hub fans team events out to every connected member of the team
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
	log     *slog.Logger
}

var _ services.EventPublisher = (*Hub)(nil)

// NewHub creates an empty hub
func NewHub(log *slog.Logger) *Hub {
	return &Hub{clients: make(map[uint]map[*Client]struct{}), log: log}
}

// Register adds a client to its team.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.clients[c.TeamID] == nil {
		h.clients[c.TeamID] = make(map[*Client]struct{})
	}
	h.clients[c.TeamID][c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("websocket client registered", "team_id", c.TeamID, "user_id", c.UserID)
}

// Unregister drops a client. Its writer sends a close frame and closes the
// connection.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set := h.clients[c.TeamID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.TeamID)
		}
	}
	h.mu.Unlock()
	c.stop(websocket.CloseNormalClosure, "")
}

// Count returns how many clients a team has connected.
func (h *Hub) Count(teamID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[teamID])
}

// Publish queues the event for every client of the team. It never waits on a
// socket; a client whose queue is full is dropped.
func (h *Hub) Publish(teamID uint, event services.Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to encode event", "kind", event.Kind, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[teamID]))
	for c := range h.clients[teamID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(msg) {
			h.log.Debug("dropping slow websocket client", "team_id", teamID, "user_id", c.UserID)
			h.Unregister(c)
		}
	}
}

// Serve registers the client, starts its writer and blocks until the peer
// goes away.
func (h *Hub) Serve(c *Client) {
	h.Register(c)
	defer h.Unregister(c)
	go c.writeLoop()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// CloseAll disconnects every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	var all []*Client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.clients = make(map[uint]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.stop(websocket.CloseGoingAway, "server shutting down")
	}
}
