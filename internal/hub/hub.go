// Package hub tracks connected realtime clients and their business topic.
package hub

import (
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type Client struct {
	ID         string
	Send       chan []byte
	BusinessID string
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     *zap.Logger
}

type SubscribeMessage struct {
	Action     string `json:"action"`
	BusinessID string `json:"businessId"`
}

func New(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{clients: make(map[string]*Client), log: log}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

// Unregister removes the client and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

// Subscribe points the client at one business topic. An empty id unsubscribes.
func (h *Hub) Subscribe(client *Client, businessID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.BusinessID = strings.TrimSpace(businessID)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers payload to the clients subscribed to businessID. A client
// whose buffer is full misses the message.
func (h *Hub) Broadcast(businessID string, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, client := range h.clients {
		if client.BusinessID == "" || client.BusinessID != businessID {
			continue
		}
		select {
		case client.Send <- payload:
			delivered++
		default:
			h.log.Warn("drop realtime message", zap.String("client_id", client.ID), zap.String("business_id", businessID))
		}
	}
	return delivered
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	return msg, true
}
