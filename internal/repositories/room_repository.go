package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/chaterr"
	"messaging-service/internal/models"
)

// RoomRepository abstracts room persistence.
type RoomRepository interface {
	CreateOrGetRoom(ctx context.Context, room models.Room, participants []models.Participant) (models.Room, error)
	GetRoom(ctx context.Context, roomID string) (models.Room, error)
	ListRoomsForUser(ctx context.Context, userID int64) ([]models.Room, error)
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

const roomColumns = `id, room_type, referral_id, solo_user_id, rep_id, company_id, is_active, last_message_at, created_at`

// CreateOrGetRoom inserts the room and its participant rows if the room does
// not exist yet. The deterministic primary key makes concurrent calls for
// the same tuple converge on a single row.
func (r *RoomRepo) CreateOrGetRoom(ctx context.Context, room models.Room, participants []models.Participant) (models.Room, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Room{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO rooms (id, room_type, referral_id, solo_user_id, rep_id, company_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO NOTHING`,
		room.ID, room.Type, room.ReferralID, room.SoloUserID, room.RepID, room.CompanyID)
	if err != nil {
		return models.Room{}, err
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return models.Room{}, err
	}
	if inserted > 0 {
		for _, p := range participants {
			if _, err := tx.ExecContext(ctx, `INSERT INTO participants (room_id, user_id, role, can_send, can_view_history)
                VALUES ($1, $2, $3, $4, $5)
                ON CONFLICT (room_id, user_id) DO NOTHING`,
				p.RoomID, p.UserID, p.Role, p.CanSend, p.CanViewHistory); err != nil {
				return models.Room{}, err
			}
		}
	}

	var created models.Room
	if err := tx.GetContext(ctx, &created, `SELECT `+roomColumns+` FROM rooms WHERE id=$1`, room.ID); err != nil {
		return models.Room{}, fmt.Errorf("reload room: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Room{}, err
	}
	return created, nil
}

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, chaterr.ErrRoomNotFound
	}
	return room, err
}

// ListRoomsForUser returns rooms the user participates in, most recently
// active first.
func (r *RoomRepo) ListRoomsForUser(ctx context.Context, userID int64) ([]models.Room, error) {
	query := `SELECT r.id, r.room_type, r.referral_id, r.solo_user_id, r.rep_id, r.company_id, r.is_active, r.last_message_at, r.created_at
        FROM rooms r
        JOIN participants p ON p.room_id = r.id
        WHERE p.user_id = $1
        ORDER BY r.last_message_at DESC NULLS LAST, r.created_at DESC`
	var rooms []models.Room
	err := r.db.SelectContext(ctx, &rooms, query, userID)
	return rooms, err
}

var _ RoomRepository = (*RoomRepo)(nil)
