package stream

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Hub fans run events out to websocket subscribers. With Redis
// configured, events round-trip through pub/sub so every instance
// delivers them; without it the hub delivers locally.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	RunID string
	Send  chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(runID string) *Client {
	client := &Client{
		RunID: runID,
		Send:  make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[runID] == nil {
		h.clients[runID] = map[*Client]struct{}{}
	}
	h.clients[runID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if runClients, ok := h.clients[client.RunID]; ok {
		delete(runClients, client)
		if len(runClients) == 0 {
			delete(h.clients, client.RunID)
		}
	}
	close(client.Send)
}

func (h *Hub) deliver(runID string, payload []byte) {
	// Sends stay under the read lock so Unregister cannot close a
	// channel mid-send. They never block; a full buffer drops.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[runID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) Broadcast(runID string, payload []byte) {
	if h.redis == nil {
		h.deliver(runID, payload)
		return
	}
	// Local delivery happens through the subscription, same as for
	// every other instance.
	if err := h.redis.Publish(context.Background(), runChannel(runID), payload).Err(); err != nil {
		log.Printf("redis publish error: %v", err)
		h.deliver(runID, payload)
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "runs:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.deliver(runIDFromChannel(msg.Channel), []byte(msg.Payload))
	}
}

func runChannel(runID string) string {
	return "runs:" + runID + ":events"
}

func runIDFromChannel(ch string) string {
	// runs:{run}:events
	const prefix = "runs:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
