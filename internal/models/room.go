package models

import (
	"fmt"
	"time"
)

// RoomType classifies a room by which parties talk directly.
type RoomType string

const (
	// RoomTypeRepSolo is a room between a solo user and a company rep,
	// with the company observing.
	RoomTypeRepSolo RoomType = "rep_solo"
	// RoomTypeCompanySolo is a room between a solo user and an
	// individual-business company with no rep.
	RoomTypeCompanySolo RoomType = "company_solo"
)

// ParticipantRole describes how a user belongs to a room.
type ParticipantRole string

const (
	RolePrimary  ParticipantRole = "primary"
	RoleObserver ParticipantRole = "observer"
)

// Room is a persistent conversation scoped to one referral and a fixed
// member set. The id is a deterministic composite of the creation tuple,
// which makes creation idempotent.
type Room struct {
	ID            string     `db:"id" json:"id"`
	Type          RoomType   `db:"room_type" json:"type"`
	ReferralID    int64      `db:"referral_id" json:"referral_id"`
	SoloUserID    int64      `db:"solo_user_id" json:"solo_user_id"`
	RepID         *int64     `db:"rep_id" json:"rep_id,omitempty"`
	CompanyID     int64      `db:"company_id" json:"company_id"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// RoomID builds the deterministic room identifier for a creation tuple.
func RoomID(roomType RoomType, referralID, soloUserID, companyID int64, repID *int64) string {
	if repID != nil {
		return fmt.Sprintf("%s:%d:%d:%d:%d", roomType, referralID, soloUserID, companyID, *repID)
	}
	return fmt.Sprintf("%s:%d:%d:%d", roomType, referralID, soloUserID, companyID)
}

// MemberIDs returns the ids of all room members.
func (r Room) MemberIDs() []int64 {
	ids := []int64{r.SoloUserID, r.CompanyID}
	if r.RepID != nil {
		ids = append(ids, *r.RepID)
	}
	return ids
}

// Participant is a user's membership record in a room, including the
// transient presence fields kept on the same row.
type Participant struct {
	RoomID         string          `db:"room_id" json:"room_id"`
	UserID         int64           `db:"user_id" json:"user_id"`
	Role           ParticipantRole `db:"role" json:"role"`
	CanSend        bool            `db:"can_send" json:"can_send"`
	CanViewHistory bool            `db:"can_view_history" json:"can_view_history"`
	IsOnline       bool            `db:"is_online" json:"is_online"`
	LastSeenAt     *time.Time      `db:"last_seen_at" json:"last_seen_at,omitempty"`
}
