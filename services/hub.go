package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Metrics is the observability sink for connection and broadcast activity.
// Injected so tests can assert on emitted events without global state.
type Metrics interface {
	ConnectionOpened(roomCode string)
	ConnectionClosed(roomCode string)
	EventPublished(roomCode, eventType string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ConnectionOpened(string)       {}
func (NopMetrics) ConnectionClosed(string)       {}
func (NopMetrics) EventPublished(string, string) {}

type roomMessage struct {
	roomCode string
	data     []byte
}

// Hub fans events out to every live connection subscribed to a room code.
// A single dispatch loop preserves per-room publish order; delivery is
// best-effort, slow clients are dropped and resync on reconnect. With a
// Redis client configured, publishes travel through a "room:<code>" Pub/Sub
// channel so multiple server processes share one fabric.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	outbound   chan roomMessage

	rdb     *redis.Client
	metrics Metrics
	logger  *zap.Logger
	mu      sync.RWMutex
}

func NewHub(rdb *redis.Client, metrics Metrics, logger *zap.Logger) *Hub {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan roomMessage, 256),
		rdb:        rdb,
		metrics:    metrics,
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.consumeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.ConnectionOpened(client.roomCode)
			h.logger.Info("client registered",
				zap.String("room", client.roomCode),
				zap.String("player", client.playerID.String()))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.ConnectionClosed(client.roomCode)
				h.logger.Info("client unregistered",
					zap.String("room", client.roomCode),
					zap.String("player", client.playerID.String()))
			}
			h.mu.Unlock()

		case msg := <-h.outbound:
			h.deliver(msg)
		}
	}
}

// Publish delivers an event to every subscriber of the room. Calls from one
// room coordinator happen under its lock, so per-room FIFO order holds end
// to end.
func (h *Hub) Publish(roomCode, eventType string, fields map[string]any) {
	data, err := encodeEvent(eventType, fields)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", eventType), zap.Error(err))
		return
	}
	h.metrics.EventPublished(roomCode, eventType)

	if h.rdb != nil {
		if err := h.rdb.Publish(context.Background(), "room:"+roomCode, data).Err(); err != nil {
			h.logger.Error("redis publish failed, delivering locally",
				zap.String("room", roomCode), zap.Error(err))
			h.outbound <- roomMessage{roomCode: roomCode, data: data}
		}
		return
	}
	h.outbound <- roomMessage{roomCode: roomCode, data: data}
}

// SendTo delivers an event to a single client, bypassing the room fan-out.
// Used for errors, pongs, hints and resync snapshots.
func (h *Hub) SendTo(client *Client, eventType string, fields map[string]any) {
	data, err := encodeEvent(eventType, fields)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", eventType), zap.Error(err))
		return
	}
	select {
	case client.send <- data:
	default:
		h.Unregister(client)
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) deliver(msg roomMessage) {
	h.mu.RLock()
	var dropped []*Client
	for client := range h.clients {
		if client.roomCode != msg.roomCode {
			continue
		}
		select {
		case client.send <- msg.data:
		default:
			dropped = append(dropped, client)
		}
	}
	h.mu.RUnlock()

	// Slow clients miss events until their next reconnect resync.
	h.mu.Lock()
	for _, client := range dropped {
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.send)
			h.metrics.ConnectionClosed(client.roomCode)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) consumeRedis(ctx context.Context) {
	sub := h.rdb.PSubscribe(ctx, "room:*")
	defer sub.Close()

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.logger.Error("redis subscribe error", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		code := msg.Channel[len("room:"):]
		h.outbound <- roomMessage{roomCode: code, data: []byte(msg.Payload)}
	}
}

// ConnectedPlayers returns the player ids currently subscribed to a room.
func (h *Hub) ConnectedPlayers(roomCode string) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var ids []uuid.UUID
	for client := range h.clients {
		if client.roomCode == roomCode {
			ids = append(ids, client.playerID)
		}
	}
	return ids
}

func (h *Hub) HasSubscribers(roomCode string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.roomCode == roomCode {
			return true
		}
	}
	return false
}

func encodeEvent(eventType string, fields map[string]any) ([]byte, error) {
	payload := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	payload["type"] = eventType
	payload["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return json.Marshal(payload)
}
