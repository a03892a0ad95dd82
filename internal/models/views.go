package models

import "time"

// UserSummary is the resolved display data for a user, built from the
// directory.
type UserSummary struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	ImageURL    string `json:"image_url,omitempty"`
}

// AttachmentView is the client-facing attachment block with a resolved URL.
type AttachmentView struct {
	URL       string `json:"url"`
	Name      string `json:"name,omitempty"`
	Size      int64  `json:"size,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Thumbnail string `json:"thumbnail_url,omitempty"`
}

// MessageView is the projected message shape served identically on the pull
// and push paths. Read state is dual-perspective: IsReadByMe is the viewer's
// own state, ReadByOthersCount/ReadByAllOthers are relative to everyone but
// the sender.
type MessageView struct {
	ID                int64           `json:"id"`
	RoomID            string          `json:"room_id"`
	Sender            UserSummary     `json:"sender"`
	Type              MessageType     `json:"type"`
	Content           string          `json:"content,omitempty"`
	Attachment        *AttachmentView `json:"attachment,omitempty"`
	ReplyToID         *int64          `json:"reply_to_id,omitempty"`
	IsReadByMe        bool            `json:"is_read_by_me"`
	ReadByOthersCount int             `json:"read_by_others_count"`
	ReadByAllOthers   bool            `json:"read_by_all_others"`
	Edited            bool            `json:"edited"`
	EditedAt          *time.Time      `json:"edited_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// LastMessageView is the chat-list snippet of a room's latest message.
type LastMessageView struct {
	ID        int64       `json:"id"`
	SenderID  int64       `json:"sender_id"`
	Type      MessageType `json:"type"`
	Snippet   string      `json:"snippet"`
	CreatedAt time.Time   `json:"created_at"`
}

// RoomSummaryView is the denormalized chat-list entry for one viewer.
type RoomSummaryView struct {
	ID             string           `json:"id"`
	Type           RoomType         `json:"type"`
	DisplayName    string           `json:"display_name"`
	ImageURL       string           `json:"image_url,omitempty"`
	LastMessage    *LastMessageView `json:"last_message,omitempty"`
	UnreadCount    int              `json:"unread_count"`
	AnyOtherOnline bool             `json:"any_other_online"`
	IsActive       bool             `json:"is_active"`
	LastMessageAt  *time.Time       `json:"last_message_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}
