package rooms

import (
	"context"
	"errors"
	"fmt"

	"messaging-service/internal/chaterr"
	"messaging-service/internal/directory"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

// Registry decides room membership and creates rooms idempotently.
type Registry struct {
	roomRepo        repositories.RoomRepository
	participantRepo repositories.ParticipantRepository
	directory       directory.Directory
}

// NewRegistry constructs a Registry.
func NewRegistry(roomRepo repositories.RoomRepository, participantRepo repositories.ParticipantRepository, dir directory.Directory) *Registry {
	return &Registry{roomRepo: roomRepo, participantRepo: participantRepo, directory: dir}
}

// CreateOrGetRoom returns the single room for the given creation tuple,
// creating it on first call. The room type follows the company's business
// classification: individual businesses talk to the solo user directly
// (company_solo, no rep); every other company must supply an assigned rep.
func (r *Registry) CreateOrGetRoom(ctx context.Context, referralID, soloUserID, companyID int64, repID *int64) (models.Room, error) {
	company, err := r.directory.GetCompany(ctx, companyID)
	if err != nil {
		return models.Room{}, fmt.Errorf("resolve company %d: %w", companyID, err)
	}

	roomType := models.RoomTypeRepSolo
	if company.BusinessType == directory.BusinessTypeIndividual {
		roomType = models.RoomTypeCompanySolo
		repID = nil
	} else if repID == nil {
		return models.Room{}, chaterr.ErrRepRequired
	}

	room := models.Room{
		ID:         models.RoomID(roomType, referralID, soloUserID, companyID, repID),
		Type:       roomType,
		ReferralID: referralID,
		SoloUserID: soloUserID,
		RepID:      repID,
		CompanyID:  companyID,
	}

	return r.roomRepo.CreateOrGetRoom(ctx, room, buildParticipants(room))
}

func buildParticipants(room models.Room) []models.Participant {
	participants := []models.Participant{{
		RoomID:         room.ID,
		UserID:         room.SoloUserID,
		Role:           models.RolePrimary,
		CanSend:        true,
		CanViewHistory: true,
	}}

	switch room.Type {
	case models.RoomTypeCompanySolo:
		participants = append(participants, models.Participant{
			RoomID:         room.ID,
			UserID:         room.CompanyID,
			Role:           models.RolePrimary,
			CanSend:        true,
			CanViewHistory: true,
		})
	case models.RoomTypeRepSolo:
		participants = append(participants, models.Participant{
			RoomID:         room.ID,
			UserID:         *room.RepID,
			Role:           models.RolePrimary,
			CanSend:        true,
			CanViewHistory: true,
		}, models.Participant{
			RoomID:         room.ID,
			UserID:         room.CompanyID,
			Role:           models.RoleObserver,
			CanSend:        false,
			CanViewHistory: true,
		})
	}
	return participants
}

// CanParticipate reports whether the user may open the room. Besides the
// participant rows, a company-role user overseeing the room's assigned rep
// may view a rep_solo room even without a row of their own.
func (r *Registry) CanParticipate(ctx context.Context, room models.Room, userID int64) (bool, error) {
	_, err := r.participantRepo.GetParticipant(ctx, room.ID, userID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, repositories.ErrParticipantNotFound) {
		return false, err
	}
	return r.isOversight(ctx, room, userID)
}

// CanSend reports whether the user may post messages to the room. Oversight
// viewers never can.
func (r *Registry) CanSend(ctx context.Context, room models.Room, userID int64) (bool, error) {
	p, err := r.participantRepo.GetParticipant(ctx, room.ID, userID)
	if err == nil {
		return p.CanSend, nil
	}
	if errors.Is(err, repositories.ErrParticipantNotFound) {
		return false, nil
	}
	return false, err
}

func (r *Registry) isOversight(ctx context.Context, room models.Room, userID int64) (bool, error) {
	if room.Type != models.RoomTypeRepSolo {
		return false, nil
	}
	user, err := r.directory.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, chaterr.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Role == directory.RoleCompany && user.CompanyID == room.CompanyID, nil
}
