package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

// ErrParticipantNotFound signals the user has no membership row in the room.
var ErrParticipantNotFound = errors.New("participant not found")

// ParticipantRepository abstracts room membership and presence state.
type ParticipantRepository interface {
	GetParticipant(ctx context.Context, roomID string, userID int64) (models.Participant, error)
	ListParticipants(ctx context.Context, roomID string) ([]models.Participant, error)
	SetOnline(ctx context.Context, roomID string, userID int64) error
	SetOffline(ctx context.Context, roomID string, userID int64) error
	AnyOnline(ctx context.Context, roomID string, excludeUserID int64) (bool, error)
}

// ParticipantRepo is a sqlx implementation of ParticipantRepository.
type ParticipantRepo struct {
	db *sqlx.DB
}

// NewParticipantRepo constructs a ParticipantRepo.
func NewParticipantRepo(db *sqlx.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

const participantColumns = `room_id, user_id, role, can_send, can_view_history, is_online, last_seen_at`

// GetParticipant fetches one membership row.
func (r *ParticipantRepo) GetParticipant(ctx context.Context, roomID string, userID int64) (models.Participant, error) {
	var p models.Participant
	err := r.db.GetContext(ctx, &p, `SELECT `+participantColumns+` FROM participants WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Participant{}, ErrParticipantNotFound
	}
	return p, err
}

// ListParticipants returns all membership rows of a room.
func (r *ParticipantRepo) ListParticipants(ctx context.Context, roomID string) ([]models.Participant, error) {
	var ps []models.Participant
	err := r.db.SelectContext(ctx, &ps, `SELECT `+participantColumns+` FROM participants WHERE room_id=$1 ORDER BY user_id`, roomID)
	return ps, err
}

// SetOnline marks the user online in the room and refreshes last seen.
func (r *ParticipantRepo) SetOnline(ctx context.Context, roomID string, userID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE participants SET is_online = TRUE, last_seen_at = NOW() WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	return err
}

// SetOffline marks the user offline in the room and refreshes last seen.
func (r *ParticipantRepo) SetOffline(ctx context.Context, roomID string, userID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE participants SET is_online = FALSE, last_seen_at = NOW() WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	return err
}

// AnyOnline reports whether anyone other than excludeUserID is online in the
// room.
func (r *ParticipantRepo) AnyOnline(ctx context.Context, roomID string, excludeUserID int64) (bool, error) {
	var online bool
	err := r.db.GetContext(ctx, &online, `SELECT EXISTS(SELECT 1 FROM participants WHERE room_id=$1 AND user_id<>$2 AND is_online = TRUE)`, roomID, excludeUserID)
	return online, err
}

var _ ParticipantRepository = (*ParticipantRepo)(nil)
