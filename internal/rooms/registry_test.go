package rooms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/chaterr"
	"messaging-service/internal/directory"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

func int64Ptr(v int64) *int64 { return &v }

func TestCreateOrGetRoomRepSolo(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	participantRepo := new(mocks.ParticipantRepositoryMock)
	dir := new(mocks.DirectoryMock)
	registry := NewRegistry(roomRepo, participantRepo, dir)

	dir.On("GetCompany", mock.Anything, int64(30)).Return(directory.Company{ID: 30, Name: "Acme", BusinessType: "agency"}, nil).Twice()
	roomRepo.On("CreateOrGetRoom", mock.Anything, mock.MatchedBy(func(room models.Room) bool {
		return room.ID == "rep_solo:100:10:30:20" && room.Type == models.RoomTypeRepSolo
	}), mock.MatchedBy(func(ps []models.Participant) bool {
		if len(ps) != 3 {
			return false
		}
		// Company oversight joins as observer without send rights.
		for _, p := range ps {
			if p.UserID == 30 {
				return p.Role == models.RoleObserver && !p.CanSend
			}
		}
		return false
	})).Return(models.Room{ID: "rep_solo:100:10:30:20", Type: models.RoomTypeRepSolo}, nil).Twice()

	first, err := registry.CreateOrGetRoom(context.Background(), 100, 10, 30, int64Ptr(20))
	require.NoError(t, err)
	second, err := registry.CreateOrGetRoom(context.Background(), 100, 10, 30, int64Ptr(20))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "identical tuples must resolve to the same room id")
	roomRepo.AssertExpectations(t)
}

func TestCreateOrGetRoomIndividualCompanyDropsRep(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	participantRepo := new(mocks.ParticipantRepositoryMock)
	dir := new(mocks.DirectoryMock)
	registry := NewRegistry(roomRepo, participantRepo, dir)

	dir.On("GetCompany", mock.Anything, int64(30)).Return(directory.Company{ID: 30, Name: "Solo Shop", BusinessType: directory.BusinessTypeIndividual}, nil).Once()
	roomRepo.On("CreateOrGetRoom", mock.Anything, mock.MatchedBy(func(room models.Room) bool {
		return room.ID == "company_solo:100:10:30" && room.Type == models.RoomTypeCompanySolo && room.RepID == nil
	}), mock.MatchedBy(func(ps []models.Participant) bool {
		return len(ps) == 2 && ps[1].UserID == 30 && ps[1].Role == models.RolePrimary && ps[1].CanSend
	})).Return(models.Room{ID: "company_solo:100:10:30"}, nil).Once()

	_, err := registry.CreateOrGetRoom(context.Background(), 100, 10, 30, int64Ptr(20))
	require.NoError(t, err)
	roomRepo.AssertExpectations(t)
}

func TestCreateOrGetRoomRejectsMissingRep(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	participantRepo := new(mocks.ParticipantRepositoryMock)
	dir := new(mocks.DirectoryMock)
	registry := NewRegistry(roomRepo, participantRepo, dir)

	dir.On("GetCompany", mock.Anything, int64(30)).Return(directory.Company{ID: 30, Name: "Acme", BusinessType: "agency"}, nil).Once()

	_, err := registry.CreateOrGetRoom(context.Background(), 100, 10, 30, nil)
	require.ErrorIs(t, err, chaterr.ErrRepRequired)
	roomRepo.AssertNotCalled(t, "CreateOrGetRoom", mock.Anything, mock.Anything, mock.Anything)
}

func TestCanParticipateForParticipantRow(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	participantRepo := new(mocks.ParticipantRepositoryMock)
	dir := new(mocks.DirectoryMock)
	registry := NewRegistry(roomRepo, participantRepo, dir)

	room := models.Room{ID: "rep_solo:100:10:30:20", Type: models.RoomTypeRepSolo, CompanyID: 30}
	participantRepo.On("GetParticipant", mock.Anything, room.ID, int64(10)).Return(models.Participant{RoomID: room.ID, UserID: 10}, nil).Once()

	ok, err := registry.CanParticipate(context.Background(), room, 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanParticipateOversight(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	participantRepo := new(mocks.ParticipantRepositoryMock)
	dir := new(mocks.DirectoryMock)
	registry := NewRegistry(roomRepo, participantRepo, dir)

	room := models.Room{ID: "rep_solo:100:10:30:20", Type: models.RoomTypeRepSolo, CompanyID: 30}

	// Company staff user without a participant row may observe the room.
	participantRepo.On("GetParticipant", mock.Anything, room.ID, int64(77)).Return(models.Participant{}, repositories.ErrParticipantNotFound)
	dir.On("GetUser", mock.Anything, int64(77)).Return(directory.User{ID: 77, Role: directory.RoleCompany, CompanyID: 30}, nil)

	ok, err := registry.CanParticipate(context.Background(), room, 77)
	require.NoError(t, err)
	assert.True(t, ok)

	// But not staff of an unrelated company.
	participantRepo.On("GetParticipant", mock.Anything, room.ID, int64(88)).Return(models.Participant{}, repositories.ErrParticipantNotFound)
	dir.On("GetUser", mock.Anything, int64(88)).Return(directory.User{ID: 88, Role: directory.RoleCompany, CompanyID: 31}, nil)

	ok, err = registry.CanParticipate(context.Background(), room, 88)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanSend(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	participantRepo := new(mocks.ParticipantRepositoryMock)
	dir := new(mocks.DirectoryMock)
	registry := NewRegistry(roomRepo, participantRepo, dir)

	room := models.Room{ID: "rep_solo:100:10:30:20", Type: models.RoomTypeRepSolo, CompanyID: 30}

	participantRepo.On("GetParticipant", mock.Anything, room.ID, int64(30)).Return(models.Participant{RoomID: room.ID, UserID: 30, Role: models.RoleObserver, CanSend: false}, nil)
	ok, err := registry.CanSend(context.Background(), room, 30)
	require.NoError(t, err)
	assert.False(t, ok, "observers cannot send")

	// Oversight viewers have no row at all and cannot send either.
	participantRepo.On("GetParticipant", mock.Anything, room.ID, int64(77)).Return(models.Participant{}, repositories.ErrParticipantNotFound)
	ok, err = registry.CanSend(context.Background(), room, 77)
	require.NoError(t, err)
	assert.False(t, ok)
}
