package models

import "fmt"

// EventType enumerates the frames pushed over websocket topics.
type EventType string

const (
	EventMessage    EventType = "message"
	EventTyping     EventType = "typing"
	EventRead       EventType = "read"
	EventUserJoined EventType = "user_joined"
	EventUserLeft   EventType = "user_left"
	EventAck        EventType = "ack"
	EventError      EventType = "error"
	EventChatList   EventType = "chat_list"
)

// RoomEvent is pushed to room topic subscribers. Message broadcasts carry
// only the message id; each recipient re-projects the message from its own
// perspective.
type RoomEvent struct {
	Type       EventType `json:"type"`
	RoomID     string    `json:"room_id,omitempty"`
	MessageID  int64     `json:"message_id,omitempty"`
	MessageIDs []int64   `json:"message_ids,omitempty"`
	UserID     int64     `json:"user_id,omitempty"`
	IsTyping   bool      `json:"is_typing,omitempty"`
	Code       string    `json:"code,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// ChatListEvent is pushed to chat-list topic subscribers. Rooms are always
// re-projected server-side before being pushed; the event never carries
// stale payloads.
type ChatListEvent struct {
	Type  EventType         `json:"type"`
	Rooms []RoomSummaryView `json:"rooms"`
}

// RoomTopic names the broadcast topic for a room.
func RoomTopic(roomID string) string {
	return "room:" + roomID
}

// ChatListTopic names the broadcast topic for a user's chat list.
func ChatListTopic(userID int64) string {
	return fmt.Sprintf("chat-list:%d", userID)
}
