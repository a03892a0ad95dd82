package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/auth"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/views"
)

// ChatListWebSocketHandler handles per-user chat-list sessions. A session
// receives re-projected room summaries pushed by the notifier; the initial
// full snapshot is pushed on connect.
type ChatListWebSocketHandler struct {
	hub       *Hub
	verifier  *auth.Verifier
	chatLists *views.ChatListNotifier
}

// NewChatListWebSocketHandler constructs a ChatListWebSocketHandler.
func NewChatListWebSocketHandler(hub *Hub, verifier *auth.Verifier, chatLists *views.ChatListNotifier) *ChatListWebSocketHandler {
	return &ChatListWebSocketHandler{hub: hub, verifier: verifier, chatLists: chatLists}
}

type chatListFrame struct {
	Type string `json:"type"`
}

// Handle upgrades the connection, authenticates and starts the session.
func (h *ChatListWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.chatlist.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	client := NewClient(conn, info)

	userID, err := h.verifier.Validate(bearerToken(c))
	if err != nil {
		client.CloseWithCode(CloseUnauthenticated, "invalid token")
		return
	}
	client.info.UserID = userID
	info.UserID = userID

	topic := models.ChatListTopic(userID)
	h.hub.Subscribe(topic, client)

	observability.IncWSActive("chat_list")
	publishLifecycleEvent(ctx, "chat_list", "ws_connect", topic, info, "")

	h.pushSnapshot(ctx, client, userID)

	go h.readLoop(context.WithoutCancel(ctx), client, topic)
}

func (h *ChatListWebSocketHandler) pushSnapshot(ctx context.Context, client *Client, userID int64) {
	snapshot, err := h.chatLists.Snapshot(ctx, userID)
	if err != nil {
		log.Printf("chat-list snapshot for user %d: %v", userID, err)
		h.sendError(client, "internal_error", "failed to load chat list")
		return
	}
	if err := client.Send(models.ChatListEvent{Type: models.EventChatList, Rooms: snapshot}); err != nil {
		log.Printf("chat-list snapshot push to user %d failed: %v", userID, err)
	}
}

func (h *ChatListWebSocketHandler) readLoop(ctx context.Context, client *Client, topic string) {
	info := client.Info()
	var closeReason string

	defer func() {
		h.hub.Unsubscribe(topic, client)
		observability.DecWSActive("chat_list")
		publishLifecycleEvent(ctx, "chat_list", "ws_disconnect", topic, info, closeReason)
		client.Close()
	}()

	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishLifecycleEvent(ctx, "chat_list", "ws_error", topic, info, closeReason)
			}
			return
		}

		var frame chatListFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			h.sendError(client, "protocol_error", "malformed frame")
			continue
		}

		switch frame.Type {
		case "refresh":
			h.pushSnapshot(ctx, client, info.UserID)
		default:
			log.Printf("ignoring unknown chat-list frame type %q from user %d", frame.Type, info.UserID)
		}
	}
}

func (h *ChatListWebSocketHandler) sendError(client *Client, code, reason string) {
	if err := client.Send(models.RoomEvent{Type: models.EventError, Code: code, Reason: reason}); err != nil {
		log.Printf("error frame to user %d failed: %v", client.Info().UserID, err)
	}
}
