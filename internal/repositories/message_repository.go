package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/chaterr"
	"messaging-service/internal/models"
)

// MessageRepository defines interactions with durable message state.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	GetMessage(ctx context.Context, messageID int64) (models.Message, error)
	ListRoomMessages(ctx context.Context, roomID string, page, pageSize int) ([]models.Message, error)
	LastMessage(ctx context.Context, roomID string) (*models.Message, error)
	UnreadCount(ctx context.Context, roomID string, userID int64) (int, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, room_id, sender_id, message_type, content, attachment, reply_to_id, edited, edited_at, created_at`

// CreateMessage stores a message and bumps the room's last-activity
// timestamp in the same transaction. The creation timestamp is assigned
// here, at persistence time, so it is monotonic per room under concurrent
// senders (ties broken by id ordering).
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	if msg.ReplyToID != nil {
		var replyRoom string
		err := tx.GetContext(ctx, &replyRoom, `SELECT room_id FROM messages WHERE id=$1`, *msg.ReplyToID)
		if errors.Is(err, sql.ErrNoRows) {
			return models.Message{}, chaterr.InvalidContent("reply-to message does not exist")
		}
		if err != nil {
			return models.Message{}, err
		}
		if replyRoom != msg.RoomID {
			return models.Message{}, chaterr.InvalidContent("reply-to message belongs to another room")
		}
	}

	var created models.Message
	row := tx.QueryRowxContext(ctx, `INSERT INTO messages (room_id, sender_id, message_type, content, attachment, reply_to_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+messageColumns,
		msg.RoomID, msg.SenderID, msg.Type, msg.Content, msg.Attachment, msg.ReplyToID)
	if err := row.StructScan(&created); err != nil {
		return models.Message{}, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE rooms SET last_message_at = $2 WHERE id=$1`, msg.RoomID, created.CreatedAt); err != nil {
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return created, nil
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, chaterr.ErrMessageNotFound
	}
	return msg, err
}

// ListRoomMessages returns one page of room messages, oldest first. Pages
// are 1-based.
func (r *MessageRepo) ListRoomMessages(ctx context.Context, roomID string, page, pageSize int) ([]models.Message, error) {
	if page < 1 {
		page = 1
	}
	query := `SELECT ` + messageColumns + ` FROM messages
        WHERE room_id=$1
        ORDER BY created_at ASC, id ASC
        LIMIT $2 OFFSET $3`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, roomID, pageSize, (page-1)*pageSize)
	return msgs, err
}

// LastMessage returns the newest message of a room, or nil when the room is
// empty.
func (r *MessageRepo) LastMessage(ctx context.Context, roomID string) (*models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE room_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// UnreadCount counts room messages the user has neither sent nor read.
func (r *MessageRepo) UnreadCount(ctx context.Context, roomID string, userID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM messages m
        WHERE m.room_id=$1 AND m.sender_id<>$2
        AND NOT EXISTS (SELECT 1 FROM read_receipts rr WHERE rr.message_id = m.id AND rr.reader_id=$2)`
	err := r.db.GetContext(ctx, &count, query, roomID, userID)
	return count, err
}

var _ MessageRepository = (*MessageRepo)(nil)
