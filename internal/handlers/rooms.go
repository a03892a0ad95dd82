package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/chaterr"
	"messaging-service/internal/models"
	"messaging-service/internal/notify"
	"messaging-service/internal/repositories"
	"messaging-service/internal/rooms"
	"messaging-service/internal/views"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// RoomHandler serves the pull-style room endpoints. It shapes every payload
// through the projector, the same component the socket push path uses.
type RoomHandler struct {
	registry     *rooms.Registry
	roomRepo     repositories.RoomRepository
	participants repositories.ParticipantRepository
	messageRepo  repositories.MessageRepository
	receipts     repositories.ReceiptRepository
	projector    *views.Projector
	chatLists    *views.ChatListNotifier
	hub          views.Broadcaster
	push         *notify.PushSender
	activity     *notify.ActivityEmitter
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(
	registry *rooms.Registry,
	roomRepo repositories.RoomRepository,
	participants repositories.ParticipantRepository,
	messageRepo repositories.MessageRepository,
	receipts repositories.ReceiptRepository,
	projector *views.Projector,
	chatLists *views.ChatListNotifier,
	hub views.Broadcaster,
	push *notify.PushSender,
	activity *notify.ActivityEmitter,
) *RoomHandler {
	return &RoomHandler{
		registry:     registry,
		roomRepo:     roomRepo,
		participants: participants,
		messageRepo:  messageRepo,
		receipts:     receipts,
		projector:    projector,
		chatLists:    chatLists,
		hub:          hub,
		push:         push,
		activity:     activity,
	}
}

// ListRooms returns the viewer's projected chat list.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	userID := userIDFromContext(c)

	roomList, err := h.roomRepo.ListRoomsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}

	summaries, err := h.projector.RoomSummaries(c.Request.Context(), roomList, userID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to project rooms"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": summaries})
}

// CreateRoom creates or returns the single room for a referral tuple.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req struct {
		ReferralID int64  `json:"referral_id" binding:"required"`
		SoloUserID int64  `json:"solo_user_id" binding:"required"`
		CompanyID  int64  `json:"company_id" binding:"required"`
		RepID      *int64 `json:"rep_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.registry.CreateOrGetRoom(c.Request.Context(), req.ReferralID, req.SoloUserID, req.CompanyID, req.RepID)
	if err != nil {
		switch {
		case errors.Is(err, chaterr.ErrRepRequired):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "rep is required for this company"})
		case errors.Is(err, chaterr.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		}
		return
	}

	h.activity.Record(c.Request.Context(), notify.ActivityRoomCreated, userIDFromContext(c), room.ID, map[string]any{
		"referral_id": room.ReferralID,
		"room_type":   room.Type,
	})
	h.chatLists.RoomChanged(c.Request.Context(), room.ID, room.MemberIDs())

	c.JSON(http.StatusOK, room)
}

// GetRoomMessages returns one page of projected messages, oldest first.
func (h *RoomHandler) GetRoomMessages(c *gin.Context) {
	room, userID, ok := h.authorizeRoom(c)
	if !ok {
		return
	}

	participant, err := h.participants.GetParticipant(c.Request.Context(), room.ID, userID)
	if err == nil && !participant.CanViewHistory {
		c.JSON(http.StatusForbidden, gin.H{"error": "history not visible"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	msgs, err := h.messageRepo.ListRoomMessages(c.Request.Context(), room.ID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	projected, err := h.projector.Messages(c.Request.Context(), msgs, userID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to project messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":  projected,
		"page":      page,
		"page_size": pageSize,
	})
}

// PostRoomMessage stores a message, broadcasts its pointer to the room
// topic and returns the sender's projection of it.
func (h *RoomHandler) PostRoomMessage(c *gin.Context) {
	room, userID, ok := h.authorizeRoom(c)
	if !ok {
		return
	}

	canSend, err := h.registry.CanSend(c.Request.Context(), room, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify send permission"})
		return
	}
	if !canSend {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to send in this room"})
		return
	}

	var req struct {
		Type       models.MessageType `json:"type"`
		Content    string             `json:"content"`
		Attachment *models.Attachment `json:"attachment"`
		ReplyToID  *int64             `json:"reply_to_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type == "" {
		req.Type = models.MessageText
	}

	msg, err := models.NewMessage(room.ID, userID, req.Type, req.Content, req.Attachment, req.ReplyToID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.messageRepo.CreateMessage(c.Request.Context(), msg)
	if err != nil {
		if errors.Is(err, chaterr.ErrInvalidContent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.hub.Publish(models.RoomTopic(room.ID), models.RoomEvent{
		Type:      models.EventMessage,
		RoomID:    room.ID,
		MessageID: created.ID,
	})
	h.chatLists.RoomChanged(c.Request.Context(), room.ID, room.MemberIDs())
	h.pushToOffline(c, room, created)
	h.activity.Record(c.Request.Context(), notify.ActivityMessageSent, userID, room.ID, map[string]any{
		"message_id":   created.ID,
		"message_type": created.Type,
	})

	view, err := h.projector.Message(c.Request.Context(), created, userID)
	if err != nil {
		// Message is persisted and broadcast; fall back to the raw shape.
		c.JSON(http.StatusCreated, created)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// MarkRead marks the given messages (or all unread) as read for the viewer.
// Re-marking is a no-op: already-read and self-authored messages are
// reported as read but never re-broadcast.
func (h *RoomHandler) MarkRead(c *gin.Context) {
	room, userID, ok := h.authorizeRoom(c)
	if !ok {
		return
	}

	var req struct {
		MessageIDs []int64 `json:"message_ids"`
		All        bool    `json:"all"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.All && len(req.MessageIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_ids or all required"})
		return
	}

	var newlyMarked []int64
	var err error
	if req.All {
		newlyMarked, err = h.receipts.MarkAllRead(c.Request.Context(), room.ID, userID)
	} else {
		newlyMarked, err = h.receipts.MarkRead(c.Request.Context(), room.ID, userID, req.MessageIDs)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark read"})
		return
	}

	readIDs := newlyMarked
	if !req.All {
		readIDs, err = h.receipts.ReadMessageIDs(c.Request.Context(), room.ID, userID, req.MessageIDs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load read state"})
			return
		}
	}

	if len(newlyMarked) > 0 {
		h.hub.Publish(models.RoomTopic(room.ID), models.RoomEvent{
			Type:       models.EventRead,
			RoomID:     room.ID,
			UserID:     userID,
			MessageIDs: newlyMarked,
		})
		h.chatLists.RoomChanged(c.Request.Context(), room.ID, room.MemberIDs())
		h.activity.Record(c.Request.Context(), notify.ActivityRead, userID, room.ID, map[string]any{"count": len(newlyMarked)})
	}

	c.JSON(http.StatusOK, gin.H{
		"read_ids":         readIDs,
		"newly_marked_ids": newlyMarked,
	})
}

func (h *RoomHandler) authorizeRoom(c *gin.Context) (models.Room, int64, bool) {
	userID := userIDFromContext(c)
	roomID := c.Param("room_id")

	room, err := h.roomRepo.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chaterr.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return models.Room{}, 0, false
	}

	allowed, err := h.registry.CanParticipate(c.Request.Context(), room, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return models.Room{}, 0, false
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room participant"})
		return models.Room{}, 0, false
	}
	return room, userID, true
}

func (h *RoomHandler) pushToOffline(c *gin.Context, room models.Room, msg models.Message) {
	participants, err := h.participants.ListParticipants(c.Request.Context(), room.ID)
	if err != nil {
		return
	}
	for _, p := range participants {
		if p.UserID == msg.SenderID || p.IsOnline {
			continue
		}
		h.push.PushToUser(c.Request.Context(), p.UserID, "New message", msg.Snippet(80), map[string]any{
			"room_id":    room.ID,
			"message_id": msg.ID,
		})
	}
}
