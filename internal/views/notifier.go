package views

import (
	"context"
	"log"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

// Broadcaster is the fan-out dependency of the notifier. Satisfied by
// ws.Hub.
type Broadcaster interface {
	Publish(topic string, event any)
	HasSubscribers(topic string) bool
}

// ChatListNotifier keeps per-user chat-list views in sync with room state.
// On every room change it re-fetches and re-projects the room per affected
// viewer before pushing, so a pushed payload is never stale.
type ChatListNotifier struct {
	rooms     repositories.RoomRepository
	projector *Projector
	hub       Broadcaster
}

// NewChatListNotifier constructs a ChatListNotifier.
func NewChatListNotifier(rooms repositories.RoomRepository, projector *Projector, hub Broadcaster) *ChatListNotifier {
	return &ChatListNotifier{rooms: rooms, projector: projector, hub: hub}
}

// RoomChanged refreshes the chat-list entry of roomID for each given user
// with a live chat-list connection. Failures are logged and swallowed; a
// chat-list delta is derived state the client can rebuild on reconnect.
func (n *ChatListNotifier) RoomChanged(ctx context.Context, roomID string, userIDs []int64) {
	for _, userID := range userIDs {
		topic := models.ChatListTopic(userID)
		if !n.hub.HasSubscribers(topic) {
			continue
		}

		room, err := n.rooms.GetRoom(ctx, roomID)
		if err != nil {
			log.Printf("chat-list refresh: load room %s: %v", roomID, err)
			continue
		}
		summary, err := n.projector.RoomSummary(ctx, room, userID)
		if err != nil {
			log.Printf("chat-list refresh: project room %s for user %d: %v", roomID, userID, err)
			continue
		}

		n.hub.Publish(topic, models.ChatListEvent{
			Type:  models.EventChatList,
			Rooms: []models.RoomSummaryView{summary},
		})
	}
}

// Snapshot projects the full chat list for one user, used for the initial
// push on connect and the pull endpoint.
func (n *ChatListNotifier) Snapshot(ctx context.Context, userID int64) ([]models.RoomSummaryView, error) {
	rooms, err := n.rooms.ListRoomsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return n.projector.RoomSummaries(ctx, rooms, userID)
}
