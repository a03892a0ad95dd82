package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"messaging-service/internal/chaterr"
)

// MessageType is the closed set of message payload kinds.
type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageDocument MessageType = "document"
	MessageFile     MessageType = "file"
	MessageVideo    MessageType = "video"
	MessageAudio    MessageType = "audio"
	MessageSystem   MessageType = "system"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageDocument, MessageFile, MessageVideo, MessageAudio, MessageSystem:
		return true
	}
	return false
}

// Attachment describes the media payload of a non-text message. Stored as a
// JSONB column.
type Attachment struct {
	Ref       string `json:"ref"`
	Name      string `json:"name,omitempty"`
	Size      int64  `json:"size,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Value implements driver.Valuer for JSONB storage.
func (a Attachment) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB storage.
func (a *Attachment) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		return nil
	}
	return fmt.Errorf("unsupported attachment scan type %T", src)
}

// Message is a durable room message. Immutable after creation except the
// edit fields.
type Message struct {
	ID         int64       `db:"id" json:"id"`
	RoomID     string      `db:"room_id" json:"room_id"`
	SenderID   int64       `db:"sender_id" json:"sender_id"`
	Type       MessageType `db:"message_type" json:"type"`
	Content    string      `db:"content" json:"content"`
	Attachment *Attachment `db:"attachment" json:"attachment,omitempty"`
	ReplyToID  *int64      `db:"reply_to_id" json:"reply_to_id,omitempty"`
	Edited     bool        `db:"edited" json:"edited"`
	EditedAt   *time.Time  `db:"edited_at" json:"edited_at,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// NewMessage validates and builds an unsaved message. Text messages require
// non-empty content; media messages require an attachment or a caption.
func NewMessage(roomID string, senderID int64, msgType MessageType, content string, attachment *Attachment, replyToID *int64) (Message, error) {
	if !msgType.Valid() {
		return Message{}, chaterr.InvalidContent(fmt.Sprintf("unknown message type %q", msgType))
	}

	content = strings.TrimSpace(content)
	switch msgType {
	case MessageText, MessageSystem:
		if content == "" {
			return Message{}, chaterr.InvalidContent("text message requires non-empty content")
		}
	default:
		if attachment == nil && content == "" {
			return Message{}, chaterr.InvalidContent("media message requires an attachment or caption")
		}
		if attachment != nil && attachment.Ref == "" {
			return Message{}, chaterr.InvalidContent("attachment requires a ref")
		}
	}

	return Message{
		RoomID:     roomID,
		SenderID:   senderID,
		Type:       msgType,
		Content:    content,
		Attachment: attachment,
		ReplyToID:  replyToID,
	}, nil
}

// ReadReceipt records that a reader has seen a message. Unique per
// (message, reader); a sender never has a receipt for their own message.
type ReadReceipt struct {
	MessageID int64     `db:"message_id" json:"message_id"`
	ReaderID  int64     `db:"reader_id" json:"reader_id"`
	ReadAt    time.Time `db:"read_at" json:"read_at"`
}

// Snippet returns a short preview of the message for chat-list views.
func (m Message) Snippet(max int) string {
	if m.Type != MessageText && m.Type != MessageSystem && m.Content == "" {
		return string(m.Type)
	}
	runes := []rune(m.Content)
	if len(runes) <= max {
		return m.Content
	}
	return string(runes[:max]) + "…"
}
