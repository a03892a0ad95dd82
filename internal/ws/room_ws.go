package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/auth"
	"messaging-service/internal/chaterr"
	"messaging-service/internal/models"
	"messaging-service/internal/notify"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
	"messaging-service/internal/rooms"
	"messaging-service/internal/typing"
	"messaging-service/internal/views"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RoomWebSocketHandler handles per-room websocket sessions: the connect
// handshake, the sequential inbound frame loop, and disconnect cleanup.
type RoomWebSocketHandler struct {
	hub          *Hub
	verifier     *auth.Verifier
	registry     *rooms.Registry
	roomRepo     repositories.RoomRepository
	participants repositories.ParticipantRepository
	messageRepo  repositories.MessageRepository
	receipts     repositories.ReceiptRepository
	chatLists    *views.ChatListNotifier
	push         *notify.PushSender
	activity     *notify.ActivityEmitter
	typingTTL    time.Duration
}

// NewRoomWebSocketHandler constructs a RoomWebSocketHandler.
func NewRoomWebSocketHandler(
	hub *Hub,
	verifier *auth.Verifier,
	registry *rooms.Registry,
	roomRepo repositories.RoomRepository,
	participants repositories.ParticipantRepository,
	messageRepo repositories.MessageRepository,
	receipts repositories.ReceiptRepository,
	chatLists *views.ChatListNotifier,
	push *notify.PushSender,
	activity *notify.ActivityEmitter,
	typingTTL time.Duration,
) *RoomWebSocketHandler {
	return &RoomWebSocketHandler{
		hub:          hub,
		verifier:     verifier,
		registry:     registry,
		roomRepo:     roomRepo,
		participants: participants,
		messageRepo:  messageRepo,
		receipts:     receipts,
		chatLists:    chatLists,
		push:         push,
		activity:     activity,
		typingTTL:    typingTTL,
	}
}

// roomFrame is one inbound frame from a room connection, dispatched by its
// declared type.
type roomFrame struct {
	Type string `json:"type"`

	MessageType models.MessageType `json:"message_type,omitempty"`
	Content     string             `json:"content,omitempty"`
	Attachment  *models.Attachment `json:"attachment,omitempty"`
	ReplyToID   *int64             `json:"reply_to_id,omitempty"`

	IsTyping bool `json:"is_typing,omitempty"`
	TTLMs    int  `json:"ttl_ms,omitempty"`

	MessageIDs []int64 `json:"message_ids,omitempty"`
	All        bool    `json:"all,omitempty"`
}

// Handle upgrades the connection, runs the handshake and starts the session.
func (h *RoomWebSocketHandler) Handle(c *gin.Context) {
	roomID := c.Param("room_id")

	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.room.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	room, err := h.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chaterr.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return
	}

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

	allowed, err := h.registry.CanParticipate(ctx, room, userID)
	if err != nil || !allowed {
		client.CloseWithCode(CloseForbidden, "not allowed in this room")
		return
	}

	topic := models.RoomTopic(room.ID)
	h.hub.Subscribe(topic, client)

	if err := h.participants.SetOnline(ctx, room.ID, userID); err != nil {
		log.Printf("set online for user %d in room %s: %v", userID, room.ID, err)
	}
	h.hub.PublishExcept(topic, models.RoomEvent{Type: models.EventUserJoined, RoomID: room.ID, UserID: userID}, userID)

	typingCoord := typing.NewCoordinator(h.typingTTL, func(active bool) {
		h.hub.PublishExcept(topic, models.RoomEvent{
			Type:     models.EventTyping,
			RoomID:   room.ID,
			UserID:   userID,
			IsTyping: active,
		}, userID)
	})

	observability.IncWSActive("room")
	publishLifecycleEvent(ctx, "room", "ws_connect", topic, info, "")

	// The request context dies when this handler returns; the session
	// outlives it.
	go h.readLoop(context.WithoutCancel(ctx), room, client, typingCoord, topic)
}

// readLoop processes inbound frames strictly sequentially for one
// connection and owns the disconnect cleanup path.
func (h *RoomWebSocketHandler) readLoop(ctx context.Context, room models.Room, client *Client, typingCoord *typing.Coordinator, topic string) {
	info := client.Info()
	userID := info.UserID
	var closeReason string

	defer func() {
		// Cleanup order: presence offline, user-left broadcast, forced
		// typing stop, then unsubscribe. Presence failures leave state
		// stale until next interaction, nothing worse.
		if err := h.participants.SetOffline(context.Background(), room.ID, userID); err != nil {
			log.Printf("set offline for user %d in room %s: %v", userID, room.ID, err)
		}
		h.hub.PublishExcept(topic, models.RoomEvent{Type: models.EventUserLeft, RoomID: room.ID, UserID: userID}, userID)
		typingCoord.Close()
		h.hub.Unsubscribe(topic, client)

		observability.DecWSActive("room")
		publishLifecycleEvent(ctx, "room", "ws_disconnect", topic, info, closeReason)
		client.Close()
	}()

	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishLifecycleEvent(ctx, "room", "ws_error", topic, info, closeReason)
			}
			return
		}

		var frame roomFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			h.sendError(client, "protocol_error", "malformed frame")
			continue
		}

		switch frame.Type {
		case "chat_message":
			h.handleChatMessage(ctx, room, client, frame)
		case "typing":
			if frame.IsTyping {
				typingCoord.Start(time.Duration(frame.TTLMs) * time.Millisecond)
			} else {
				typingCoord.Stop()
			}
		case "mark_read":
			h.handleMarkRead(ctx, room, client, frame)
		default:
			log.Printf("ignoring unknown frame type %q from user %d in room %s", frame.Type, userID, room.ID)
		}
	}
}

func (h *RoomWebSocketHandler) handleChatMessage(ctx context.Context, room models.Room, client *Client, frame roomFrame) {
	userID := client.Info().UserID

	canSend, err := h.registry.CanSend(ctx, room, userID)
	if err != nil {
		h.sendError(client, "internal_error", "failed to verify send permission")
		return
	}
	if !canSend {
		h.sendError(client, "permission_denied", "not allowed to send in this room")
		return
	}

	msgType := frame.MessageType
	if msgType == "" {
		msgType = models.MessageText
	}
	msg, err := models.NewMessage(room.ID, userID, msgType, frame.Content, frame.Attachment, frame.ReplyToID)
	if err != nil {
		h.sendError(client, "invalid_content", err.Error())
		return
	}

	created, err := h.messageRepo.CreateMessage(ctx, msg)
	if err != nil {
		if errors.Is(err, chaterr.ErrInvalidContent) {
			h.sendError(client, "invalid_content", err.Error())
			return
		}
		h.sendError(client, "internal_error", "failed to store message")
		return
	}

	// Broadcast only the pointer; each recipient re-projects the message
	// from its own read-state perspective.
	topic := models.RoomTopic(room.ID)
	h.hub.Publish(topic, models.RoomEvent{Type: models.EventMessage, RoomID: room.ID, MessageID: created.ID})
	if err := client.Send(models.RoomEvent{Type: models.EventAck, RoomID: room.ID, MessageID: created.ID}); err != nil {
		log.Printf("ack to user %d failed: %v", userID, err)
	}

	h.afterMessage(ctx, room, created)
}

// afterMessage runs the side effects of a delivered message: chat-list
// refreshes, offline pushes and the activity record. All best-effort.
func (h *RoomWebSocketHandler) afterMessage(ctx context.Context, room models.Room, msg models.Message) {
	h.chatLists.RoomChanged(ctx, room.ID, room.MemberIDs())

	participants, err := h.participants.ListParticipants(ctx, room.ID)
	if err != nil {
		log.Printf("list participants for push in room %s: %v", room.ID, err)
	} else {
		for _, p := range participants {
			if p.UserID == msg.SenderID || p.IsOnline {
				continue
			}
			h.push.PushToUser(ctx, p.UserID, "New message", msg.Snippet(80), map[string]any{
				"room_id":    room.ID,
				"message_id": msg.ID,
			})
		}
	}

	h.activity.Record(ctx, notify.ActivityMessageSent, msg.SenderID, room.ID, map[string]any{
		"message_id":   msg.ID,
		"message_type": msg.Type,
	})
}

func (h *RoomWebSocketHandler) handleMarkRead(ctx context.Context, room models.Room, client *Client, frame roomFrame) {
	userID := client.Info().UserID

	var newlyMarked []int64
	var err error
	if frame.All {
		newlyMarked, err = h.receipts.MarkAllRead(ctx, room.ID, userID)
	} else {
		newlyMarked, err = h.receipts.MarkRead(ctx, room.ID, userID, frame.MessageIDs)
	}
	if err != nil {
		h.sendError(client, "internal_error", "failed to mark read")
		return
	}
	if len(newlyMarked) == 0 {
		return
	}

	h.hub.Publish(models.RoomTopic(room.ID), models.RoomEvent{
		Type:       models.EventRead,
		RoomID:     room.ID,
		UserID:     userID,
		MessageIDs: newlyMarked,
	})
	h.chatLists.RoomChanged(ctx, room.ID, room.MemberIDs())
	h.activity.Record(ctx, notify.ActivityRead, userID, room.ID, map[string]any{"count": len(newlyMarked)})
}

func (h *RoomWebSocketHandler) sendError(client *Client, code, reason string) {
	if err := client.Send(models.RoomEvent{Type: models.EventError, Code: code, Reason: reason}); err != nil {
		log.Printf("error frame to user %d failed: %v", client.Info().UserID, err)
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
