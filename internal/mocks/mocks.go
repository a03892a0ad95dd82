package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/directory"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) CreateOrGetRoom(ctx context.Context, room models.Room, participants []models.Participant) (models.Room, error) {
	args := m.Called(ctx, room, participants)
	var result models.Room
	if val := args.Get(0); val != nil {
		result = val.(models.Room)
	}
	return result, args.Error(1)
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	args := m.Called(ctx, roomID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) ListRoomsForUser(ctx context.Context, userID int64) ([]models.Room, error) {
	args := m.Called(ctx, userID)
	var rooms []models.Room
	if val := args.Get(0); val != nil {
		rooms = val.([]models.Room)
	}
	return rooms, args.Error(1)
}

type ParticipantRepositoryMock struct {
	mock.Mock
}

func (m *ParticipantRepositoryMock) GetParticipant(ctx context.Context, roomID string, userID int64) (models.Participant, error) {
	args := m.Called(ctx, roomID, userID)
	var p models.Participant
	if val := args.Get(0); val != nil {
		p = val.(models.Participant)
	}
	return p, args.Error(1)
}

func (m *ParticipantRepositoryMock) ListParticipants(ctx context.Context, roomID string) ([]models.Participant, error) {
	args := m.Called(ctx, roomID)
	var ps []models.Participant
	if val := args.Get(0); val != nil {
		ps = val.([]models.Participant)
	}
	return ps, args.Error(1)
}

func (m *ParticipantRepositoryMock) SetOnline(ctx context.Context, roomID string, userID int64) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *ParticipantRepositoryMock) SetOffline(ctx context.Context, roomID string, userID int64) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *ParticipantRepositoryMock) AnyOnline(ctx context.Context, roomID string, excludeUserID int64) (bool, error) {
	args := m.Called(ctx, roomID, excludeUserID)
	return args.Bool(0), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var created models.Message
	if val := args.Get(0); val != nil {
		created = val.(models.Message)
	}
	return created, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListRoomMessages(ctx context.Context, roomID string, page, pageSize int) ([]models.Message, error) {
	args := m.Called(ctx, roomID, page, pageSize)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) LastMessage(ctx context.Context, roomID string) (*models.Message, error) {
	args := m.Called(ctx, roomID)
	var msg *models.Message
	if val := args.Get(0); val != nil {
		msg = val.(*models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) UnreadCount(ctx context.Context, roomID string, userID int64) (int, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Int(0), args.Error(1)
}

type ReceiptRepositoryMock struct {
	mock.Mock
}

func (m *ReceiptRepositoryMock) MarkRead(ctx context.Context, roomID string, readerID int64, messageIDs []int64) ([]int64, error) {
	args := m.Called(ctx, roomID, readerID, messageIDs)
	var ids []int64
	if val := args.Get(0); val != nil {
		ids = val.([]int64)
	}
	return ids, args.Error(1)
}

func (m *ReceiptRepositoryMock) MarkAllRead(ctx context.Context, roomID string, readerID int64) ([]int64, error) {
	args := m.Called(ctx, roomID, readerID)
	var ids []int64
	if val := args.Get(0); val != nil {
		ids = val.([]int64)
	}
	return ids, args.Error(1)
}

func (m *ReceiptRepositoryMock) ReadMessageIDs(ctx context.Context, roomID string, readerID int64, messageIDs []int64) ([]int64, error) {
	args := m.Called(ctx, roomID, readerID, messageIDs)
	var ids []int64
	if val := args.Get(0); val != nil {
		ids = val.([]int64)
	}
	return ids, args.Error(1)
}

func (m *ReceiptRepositoryMock) ListReaders(ctx context.Context, messageIDs []int64) (map[int64][]int64, error) {
	args := m.Called(ctx, messageIDs)
	var readers map[int64][]int64
	if val := args.Get(0); val != nil {
		readers = val.(map[int64][]int64)
	}
	return readers, args.Error(1)
}

type DirectoryMock struct {
	mock.Mock
}

func (m *DirectoryMock) GetUser(ctx context.Context, userID int64) (directory.User, error) {
	args := m.Called(ctx, userID)
	var user directory.User
	if val := args.Get(0); val != nil {
		user = val.(directory.User)
	}
	return user, args.Error(1)
}

func (m *DirectoryMock) BulkUsers(ctx context.Context, ids []int64) ([]directory.User, error) {
	args := m.Called(ctx, ids)
	var users []directory.User
	if val := args.Get(0); val != nil {
		users = val.([]directory.User)
	}
	return users, args.Error(1)
}

func (m *DirectoryMock) GetCompany(ctx context.Context, companyID int64) (directory.Company, error) {
	args := m.Called(ctx, companyID)
	var company directory.Company
	if val := args.Get(0); val != nil {
		company = val.(directory.Company)
	}
	return company, args.Error(1)
}

var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)
var _ repositories.ParticipantRepository = (*ParticipantRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ReceiptRepository = (*ReceiptRepositoryMock)(nil)
var _ directory.Directory = (*DirectoryMock)(nil)
