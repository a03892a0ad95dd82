package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/chaterr"
)

func TestNewMessageText(t *testing.T) {
	msg, err := NewMessage("room-1", 10, MessageText, "  hello  ", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content, "content is trimmed")
	assert.Equal(t, MessageText, msg.Type)
}

func TestNewMessageRejectsEmptyText(t *testing.T) {
	_, err := NewMessage("room-1", 10, MessageText, "   ", nil, nil)
	require.ErrorIs(t, err, chaterr.ErrInvalidContent)
}

func TestNewMessageRejectsUnknownType(t *testing.T) {
	_, err := NewMessage("room-1", 10, MessageType("sticker"), "hi", nil, nil)
	require.ErrorIs(t, err, chaterr.ErrInvalidContent)
}

func TestNewMessageMediaRequiresAttachmentOrCaption(t *testing.T) {
	_, err := NewMessage("room-1", 10, MessageImage, "", nil, nil)
	require.ErrorIs(t, err, chaterr.ErrInvalidContent)

	// A caption alone is enough.
	_, err = NewMessage("room-1", 10, MessageImage, "look at this", nil, nil)
	require.NoError(t, err)

	// As is an attachment alone, provided it has a ref.
	_, err = NewMessage("room-1", 10, MessageImage, "", &Attachment{Ref: "uploads/a.jpg"}, nil)
	require.NoError(t, err)

	_, err = NewMessage("room-1", 10, MessageImage, "", &Attachment{Name: "a.jpg"}, nil)
	require.ErrorIs(t, err, chaterr.ErrInvalidContent)
}

func TestSnippet(t *testing.T) {
	short := Message{Type: MessageText, Content: "hello"}
	assert.Equal(t, "hello", short.Snippet(80))

	long := Message{Type: MessageText, Content: strings.Repeat("a", 100)}
	assert.Equal(t, strings.Repeat("a", 80)+"…", long.Snippet(80))

	media := Message{Type: MessageImage}
	assert.Equal(t, "image", media.Snippet(80))

	captioned := Message{Type: MessageImage, Content: "sunset"}
	assert.Equal(t, "sunset", captioned.Snippet(80))
}

func TestAttachmentScanRoundTrip(t *testing.T) {
	original := Attachment{Ref: "uploads/a.jpg", Name: "a.jpg", Size: 1234, MimeType: "image/jpeg", Width: 800, Height: 600}

	value, err := original.Value()
	require.NoError(t, err)

	var scanned Attachment
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, original, scanned)
}
