package ws

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"messaging-service/internal/observability"
)

// Hub routes events to live connections by topic. Topics are either
// room-scoped ("room:{id}") or user-scoped ("chat-list:{userID}"). Delivery
// is at-most-once per currently-subscribed connection; there is no replay
// for disconnected subscribers.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Client]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*Client]bool)}
}

// Subscribe binds a connection to a topic.
func (h *Hub) Subscribe(topic string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[*Client]bool)
	}
	h.topics[topic][client] = true
}

// Unsubscribe unbinds a connection from a topic.
func (h *Hub) Unsubscribe(topic string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.topics[topic]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.topics, topic)
		}
	}
}

// HasSubscribers reports whether any live connection is bound to the topic.
func (h *Hub) HasSubscribers(topic string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic]) > 0
}

// Publish delivers the event to every live subscriber of the topic.
func (h *Hub) Publish(topic string, event any) {
	h.publish(topic, event, 0)
}

// PublishExcept delivers the event to every subscriber except connections
// belonging to excludeUserID. Used to suppress join/typing echoes to the
// acting user's own connections.
func (h *Hub) PublishExcept(topic string, event any, excludeUserID int64) {
	h.publish(topic, event, excludeUserID)
}

func (h *Hub) publish(topic string, event any, excludeUserID int64) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("hub marshal error on topic %s: %v", topic, err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.topics[topic]))
	for client := range h.topics[topic] {
		if excludeUserID != 0 && client.info.UserID == excludeUserID {
			continue
		}
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.sendRaw(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			client.Close()
			h.Unsubscribe(topic, client)
			h.publishWSError(topic, client, err)
		}
	}
}

func (h *Hub) publishWSError(topic string, client *Client, err error) {
	info := client.Info()
	kind := topicKind(topic)

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"topic":       topic,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(kind, "ws_error")
}

func topicKind(topic string) string {
	if strings.HasPrefix(topic, "chat-list:") {
		return "chat_list"
	}
	return "room"
}

func wsRoutingKey(kind string) string {
	if kind == "chat_list" {
		return "ws_events.chat_lists"
	}
	return "ws_events.rooms"
}
