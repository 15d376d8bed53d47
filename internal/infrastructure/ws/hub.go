// Package ws fans deltas out to websocket subscribers of a draft or plan
// topic and feeds their presence frames back into the engine.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Frame types a client may send.
const (
	FrameHeartbeat    = "heartbeat"
	FrameEditing      = "editing"
	FrameClearEditing = "clear_editing"
)

// Frame is a client-to-server message.
type Frame struct {
	Type   string           `json:"type"`
	StopID string           `json:"stopId,omitempty"`
	Field  outing.StopField `json:"field,omitempty"`
}

// Subscriber is the part of events.EventDispatcher the hub needs.
type Subscriber interface {
	RegisterWildcard(name string, handler events.EventHandlerFunc)
}

// Presence receives the presence frames of draft subscribers.
type Presence interface {
	Heartbeat(ctx context.Context, draftID, participantID string)
	SetEditingField(ctx context.Context, draftID, participantID, stopID string, field outing.StopField)
	ClearEditingField(ctx context.Context, draftID, participantID string)
	Disconnect(ctx context.Context, draftID, participantID string)
}

type client struct {
	topic       string
	draftID     string
	participant string
	conn        *websocket.Conn
	send        chan []byte
}

// Hub tracks websocket clients per topic.
type Hub struct {
	mu       sync.Mutex
	topics   map[string]map[*client]struct{}
	presence Presence
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates a hub subscribed to sub. presence may be nil, in which case
// client frames are read and dropped.
func NewHub(sub Subscriber, presence Presence, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		topics:   make(map[string]map[*client]struct{}),
		presence: presence,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
	sub.RegisterWildcard("ws", h.publish)
	return h
}

// publish runs on the mutating goroutine, so it encodes once and only
// enqueues. A client whose buffer is full is disconnected; it resyncs by
// fetching the draft on reconnect.
func (h *Hub) publish(_ context.Context, d events.Delta) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.topics[d.Topic]
	if len(subs) == 0 {
		return nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode delta: %w", err)
	}
	for c := range subs {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("ws client too slow, disconnecting",
				"topic", d.Topic,
				"participant_id", c.participant,
			)
			h.removeLocked(c)
		}
	}
	return nil
}

// Subscribers returns the number of clients on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[c.topic]
	if !ok {
		subs = make(map[*client]struct{})
		h.topics[c.topic] = subs
	}
	subs[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	subs := h.topics[c.topic]
	if _, ok := subs[c]; !ok {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.topics, c.topic)
	}
	close(c.send)
}

// ServeHTTP upgrades GET /ws?topic=draft:<id>&participant=<id>.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	kind, id, ok := events.ParseTopic(topic)
	if !ok {
		http.Error(w, "topic must be draft:<id> or plan:<id>", http.StatusBadRequest)
		return
	}
	participant := r.URL.Query().Get("participant")
	if participant == "" {
		participant = r.Header.Get("X-Participant-ID")
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("ws upgrade failed", "error", err)
		return
	}

	c := &client{
		topic:       topic,
		participant: participant,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
	}
	if kind == "draft" {
		c.draftID = id
	}
	h.add(c)

	ctx := context.WithoutCancel(r.Context())
	if h.tracksPresence(c) {
		h.presence.Heartbeat(ctx, c.draftID, c.participant)
	}

	go h.writePump(c)
	h.readPump(ctx, c)
}

func (h *Hub) tracksPresence(c *client) bool {
	return h.presence != nil && c.draftID != "" && c.participant != ""
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
		if h.tracksPresence(c) {
			h.presence.Disconnect(ctx, c.draftID, c.participant)
		}
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("ws read failed", "topic", c.topic, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		h.handleFrame(ctx, c, f)
	}
}

func (h *Hub) handleFrame(ctx context.Context, c *client, f Frame) {
	if !h.tracksPresence(c) {
		return
	}
	switch f.Type {
	case FrameHeartbeat:
		h.presence.Heartbeat(ctx, c.draftID, c.participant)
	case FrameEditing:
		h.presence.SetEditingField(ctx, c.draftID, c.participant, f.StopID, f.Field)
	case FrameClearEditing:
		h.presence.ClearEditingField(ctx, c.draftID, c.participant)
	default:
		h.logger.Debug("ws frame ignored", "type", f.Type, "topic", c.topic)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
