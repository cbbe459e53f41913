package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"healthtrack-realtime/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel is the redis pub/sub channel every relay instance listens on.
const ClusterChannel = "cluster_events"

const broadcastTarget = "*"

type clusterEnvelope struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device, multi-tab)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// instanceID tags cluster messages so an instance skips its own publishes
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run owns registration until ctx is done, then closes every client queue.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		ready := make(chan struct{})
		go h.subscribeToRedis(ctx, ready)
		<-ready
	}

	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			client.closeSend()
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
		h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, clients := range h.clients {
		for _, c := range clients {
			c.markClose(websocket.CloseServiceRestart, "relay restarting")
			c.closeSend()
		}
		delete(h.clients, userID)
	}
}

// Register hands an authenticated client to the hub. It reports false once the hub stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ConnectionCount returns how many connections userID has on this instance.
func (h *Hub) ConnectionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Broadcast sends a frame to ALL connected clients.
func (h *Hub) Broadcast(frame []byte) {
	h.mu.RLock()
	for _, clients := range h.clients {
		h.deliver(clients, frame)
	}
	h.mu.RUnlock()

	h.publish(broadcastTarget, frame)
}

// Send delivers a frame to every connection of userID, here and on other instances.
func (h *Hub) Send(userID uuid.UUID, frame []byte) {
	h.mu.RLock()
	clients := h.clients[userID]
	h.deliver(clients, frame)
	h.mu.RUnlock()

	h.publish(userID.String(), frame)
}

// deliver must be called with mu held. Slow clients are dropped, not waited on.
func (h *Hub) deliver(clients []*Client, frame []byte) {
	for _, client := range clients {
		if client.enqueue(frame) {
			continue
		}
		h.logger.Warn("Hub", "Client Send buffer full, dropping connection", map[string]interface{}{"user_id": client.UserID})
		client.markClose(websocket.CloseTryAgainLater, "send buffer full")
		go h.Unregister(client)
	}
}

func (h *Hub) publish(target string, frame []byte) {
	if h.rdb == nil {
		return
	}
	payload, err := json.Marshal(clusterEnvelope{Origin: h.instanceID, TargetUserID: target, Message: frame})
	if err != nil {
		return
	}
	if err := h.rdb.Publish(context.Background(), ClusterChannel, payload).Err(); err != nil {
		h.logger.Warn("Hub", "Cluster publish failed", map[string]interface{}{"error": err.Error()})
	}
}

// subscribeToRedis delivers frames published by other instances to local clients.
func (h *Hub) subscribeToRedis(ctx context.Context, ready chan<- struct{}) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Error("Hub", "Cluster subscribe failed", map[string]interface{}{"error": err.Error()})
		close(ready)
		return
	}
	close(ready)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleClusterMessage([]byte(msg.Payload))
		}
	}
}

func (h *Hub) handleClusterMessage(raw []byte) {
	var env clusterEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.logger.Warn("Hub", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
		return
	}
	if env.Origin == h.instanceID {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if env.TargetUserID == broadcastTarget {
		for _, clients := range h.clients {
			h.deliver(clients, env.Message)
		}
		return
	}

	uid, err := uuid.Parse(env.TargetUserID)
	if err != nil {
		return
	}
	h.deliver(h.clients[uid], env.Message)
}
