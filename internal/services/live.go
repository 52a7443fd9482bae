package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LiveChannel is the Redis channel carrying visitor events between instances.
const LiveChannel = "visitors:events"

const liveSendBuffer = 32

// LiveConn is the minimal interface our WebSocket implementation must satisfy.
type LiveConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type liveClient struct {
	id   uuid.UUID
	conn LiveConn
	send chan models.VisitorEvent
}

// writeLoop serializes writes; a WebSocket connection allows one writer at a time.
func (c *liveClient) writeLoop() {
	failed := false
	for event := range c.send {
		if failed {
			continue
		}
		if err := c.conn.WriteJSON(event); err != nil {
			slog.Debug("live feed write failed", "client", c.id, "error", err)
			failed = true
			_ = c.conn.Close()
		}
	}
}

// LiveHub fans visitor events out to the admin screens connected to this instance.
type LiveHub struct {
	redis *redis.Client

	mu      sync.RWMutex
	clients map[uuid.UUID]*liveClient

	started sync.Once
}

func NewLiveHub(redisClient *redis.Client) *LiveHub {
	return &LiveHub{
		redis:   redisClient,
		clients: make(map[uuid.UUID]*liveClient),
	}
}

// Register starts delivering events to conn. Call the returned func when the connection ends.
func (h *LiveHub) Register(conn LiveConn) func() {
	c := &liveClient{
		id:   uuid.New(),
		conn: conn,
		send: make(chan models.VisitorEvent, liveSendBuffer),
	}
	go c.writeLoop()

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, c.id)
			close(c.send)
			h.mu.Unlock()
		})
	}
}

// Clients returns the number of connected screens.
func (h *LiveHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// FanOut hands event to every local connection. Slow clients drop events rather than block the hub.
func (h *LiveHub) FanOut(event models.VisitorEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.send <- event:
		default:
			slog.Warn("live feed client is too slow, dropping event", "client", c.id, "type", event.Type)
		}
	}
}

// Publish sends event to every instance through Redis.
func (h *LiveHub) Publish(ctx context.Context, event models.VisitorEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return h.redis.Publish(ctx, LiveChannel, data).Err()
}

// Start ensures a single shared Redis listener per instance.
func (h *LiveHub) Start(ctx context.Context) {
	h.started.Do(func() {
		go h.runSubscriber(ctx)
	})
}

func (h *LiveHub) runSubscriber(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := h.redis.Subscribe(ctx, LiveChannel)
			defer pubsub.Close()

			slog.Info("✅ Live feed Redis subscriber started", "channel", LiveChannel)

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					slog.Error("live feed subscriber error", "error", err, "retry_in", backoff)
					select {
					case <-time.After(backoff):
					case <-ctx.Done():
					}
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var event models.VisitorEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					slog.Warn("failed to unmarshal visitor event", "error", err)
					continue
				}
				h.FanOut(event)
			}
		}()
	}
}
