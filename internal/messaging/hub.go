package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/observability"
)

// Event is the websocket frame pushed to clients.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	EventMessageNew  = "message_new"
	EventMessageRead = "message_read"
)

// Publisher pushes an event to every connection of a user.
type Publisher interface {
	Publish(ctx context.Context, username string, evt Event)
}

// NotifyNew pushes a freshly committed message to both participants.
func NotifyNew(ctx context.Context, pub Publisher, m models.Message) {
	if pub == nil {
		return
	}
	evt := Event{Type: EventMessageNew, Data: m}
	pub.Publish(ctx, m.Receiver, evt)
	pub.Publish(ctx, m.Sender, evt)
}

const (
	// writeWait bounds every frame written to a client.
	writeWait = 10 * time.Second
	// pongWait is how long to wait for a pong before considering the peer dead.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = pongWait * 9 / 10
	// maxMessageSize caps client frames; the protocol is server push only.
	maxMessageSize = 512
	// sendBuffer is the number of events queued per connection before it is
	// dropped as too slow.
	sendBuffer = 32
)

// sink is one open connection. enqueue never blocks; false means the
// connection cannot keep up and should be dropped.
type sink interface {
	enqueue(payload []byte) bool
	close()
}

// wsClient owns one websocket. Only writePump writes to conn.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *wsClient) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.done) })
}

// writePump drains the queue and pings the peer until the client is closed
// or a write fails. It closes conn on exit, which ends the read loop.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.writeFrame(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case payload := <-c.send:
			if err := c.writeFrame(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.writeFrame(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) writeFrame(messageType int, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, payload)
}

// Hub tracks the websocket connections of this process, keyed by username.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[sink]struct{}
}

var _ Publisher = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[sink]struct{})}
}

func (h *Hub) register(username string, s sink) {
	h.mu.Lock()
	set, ok := h.clients[username]
	if !ok {
		set = make(map[sink]struct{})
		h.clients[username] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()
	observability.WebSocketConnections.Inc()
}

func (h *Hub) unregister(username string, s sink) {
	h.mu.Lock()
	if set, ok := h.clients[username]; ok {
		if _, ok := set[s]; ok {
			delete(set, s)
			observability.WebSocketConnections.Dec()
		}
		if len(set) == 0 {
			delete(h.clients, username)
		}
	}
	h.mu.Unlock()
}

// Connected returns the number of open connections for username.
func (h *Hub) Connected(username string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[username])
}

func (h *Hub) Publish(_ context.Context, username string, evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		slog.Error("marshal websocket event", "type", evt.Type, "error", err)
		return
	}
	h.deliver(username, payload)
}

// deliver queues payload on every connection of username. Connections whose
// queue is full are closed and dropped; deliver itself never waits on a peer.
func (h *Hub) deliver(username string, payload []byte) {
	h.mu.RLock()
	targets := make([]sink, 0, len(h.clients[username]))
	for c := range h.clients[username] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(payload) {
			slog.Warn("dropping slow websocket client", "username", username)
			h.unregister(username, c)
			c.close()
		}
	}
}
