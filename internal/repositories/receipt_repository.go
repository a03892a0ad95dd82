package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ReceiptRepository tracks durable per-reader read state. The unique
// (message, reader) constraint is the single authority for "already read";
// no in-memory cache sits in front of it.
type ReceiptRepository interface {
	// MarkRead inserts receipts for the given message ids and returns only
	// the ids that transitioned state. Messages authored by the reader or
	// already read are skipped silently.
	MarkRead(ctx context.Context, roomID string, readerID int64, messageIDs []int64) ([]int64, error)
	// MarkAllRead sweeps every unread message in the room for the reader.
	MarkAllRead(ctx context.Context, roomID string, readerID int64) ([]int64, error)
	// ReadMessageIDs reports which of the given room messages are in read
	// state for the reader, authored messages included.
	ReadMessageIDs(ctx context.Context, roomID string, readerID int64, messageIDs []int64) ([]int64, error)
	// ListReaders returns the receipt readers per message id.
	ListReaders(ctx context.Context, messageIDs []int64) (map[int64][]int64, error)
}

// ReceiptRepo is a sqlx implementation of ReceiptRepository.
type ReceiptRepo struct {
	db *sqlx.DB
}

// NewReceiptRepo constructs a ReceiptRepo.
func NewReceiptRepo(db *sqlx.DB) *ReceiptRepo {
	return &ReceiptRepo{db: db}
}

// MarkRead is idempotent: the ON CONFLICT guard means re-marking returns an
// empty slice rather than an error or a duplicate row.
func (r *ReceiptRepo) MarkRead(ctx context.Context, roomID string, readerID int64, messageIDs []int64) ([]int64, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	query := `INSERT INTO read_receipts (message_id, reader_id)
        SELECT m.id, $2 FROM messages m
        WHERE m.room_id=$1 AND m.id = ANY($3) AND m.sender_id <> $2
        ON CONFLICT (message_id, reader_id) DO NOTHING
        RETURNING message_id`
	var marked []int64
	err := r.db.SelectContext(ctx, &marked, query, roomID, readerID, pq.Array(messageIDs))
	return marked, err
}

// MarkAllRead marks every message in the room not authored by and not yet
// read by the reader.
func (r *ReceiptRepo) MarkAllRead(ctx context.Context, roomID string, readerID int64) ([]int64, error) {
	query := `INSERT INTO read_receipts (message_id, reader_id)
        SELECT m.id, $2 FROM messages m
        WHERE m.room_id=$1 AND m.sender_id <> $2
        ON CONFLICT (message_id, reader_id) DO NOTHING
        RETURNING message_id`
	var marked []int64
	err := r.db.SelectContext(ctx, &marked, query, roomID, readerID)
	return marked, err
}

// ReadMessageIDs treats authored messages as implicitly read.
func (r *ReceiptRepo) ReadMessageIDs(ctx context.Context, roomID string, readerID int64, messageIDs []int64) ([]int64, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	query := `SELECT m.id FROM messages m
        WHERE m.room_id=$1 AND m.id = ANY($3)
        AND (m.sender_id=$2 OR EXISTS (SELECT 1 FROM read_receipts rr WHERE rr.message_id = m.id AND rr.reader_id=$2))
        ORDER BY m.id`
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, roomID, readerID, pq.Array(messageIDs))
	return ids, err
}

// ListReaders returns receipt readers grouped by message.
func (r *ReceiptRepo) ListReaders(ctx context.Context, messageIDs []int64) (map[int64][]int64, error) {
	readers := make(map[int64][]int64, len(messageIDs))
	if len(messageIDs) == 0 {
		return readers, nil
	}

	rows, err := r.db.QueryxContext(ctx, `SELECT message_id, reader_id FROM read_receipts WHERE message_id = ANY($1)`, pq.Array(messageIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var messageID, readerID int64
		if err := rows.Scan(&messageID, &readerID); err != nil {
			return nil, err
		}
		readers[messageID] = append(readers[messageID], readerID)
	}
	return readers, rows.Err()
}

var _ ReceiptRepository = (*ReceiptRepo)(nil)
