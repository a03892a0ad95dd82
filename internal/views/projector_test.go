package views

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/directory"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/storage"
)

const roomID = "rep_solo:100:10:30:20"

func testRoom() models.Room {
	rep := int64(20)
	return models.Room{
		ID:         roomID,
		Type:       models.RoomTypeRepSolo,
		ReferralID: 100,
		SoloUserID: 10,
		RepID:      &rep,
		CompanyID:  30,
		IsActive:   true,
		CreatedAt:  time.Now(),
	}
}

func testParticipants(online ...int64) []models.Participant {
	onlineSet := map[int64]bool{}
	for _, id := range online {
		onlineSet[id] = true
	}
	return []models.Participant{
		{RoomID: roomID, UserID: 10, Role: models.RolePrimary, CanSend: true, CanViewHistory: true, IsOnline: onlineSet[10]},
		{RoomID: roomID, UserID: 20, Role: models.RolePrimary, CanSend: true, CanViewHistory: true, IsOnline: onlineSet[20]},
		{RoomID: roomID, UserID: 30, Role: models.RoleObserver, CanSend: false, CanViewHistory: true, IsOnline: onlineSet[30]},
	}
}

func newTestProjector() (*Projector, *mocks.ParticipantRepositoryMock, *mocks.MessageRepositoryMock, *mocks.ReceiptRepositoryMock, *mocks.DirectoryMock) {
	participants := new(mocks.ParticipantRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	receipts := new(mocks.ReceiptRepositoryMock)
	dir := new(mocks.DirectoryMock)
	signer := storage.NewHMACSigner("https://cdn.example.com", "secret")
	return NewProjector(participants, messages, receipts, dir, signer, 15*time.Minute), participants, messages, receipts, dir
}

func TestMessagesSenderPerspective(t *testing.T) {
	projector, participants, _, receipts, dir := newTestProjector()

	msg := models.Message{ID: 1, RoomID: roomID, SenderID: 20, Type: models.MessageText, Content: "hello", CreatedAt: time.Now()}

	participants.On("ListParticipants", mock.Anything, roomID).Return(testParticipants(), nil)
	receipts.On("ListReaders", mock.Anything, []int64{1}).Return(map[int64][]int64{1: {10}}, nil)
	dir.On("BulkUsers", mock.Anything, []int64{20}).Return([]directory.User{{ID: 20, DisplayName: "Rep", Role: "rep"}}, nil)

	view, err := projector.Message(context.Background(), msg, 20)
	require.NoError(t, err)

	assert.True(t, view.IsReadByMe, "the sender has implicitly read their own message")
	assert.Equal(t, 1, view.ReadByOthersCount)
	assert.False(t, view.ReadByAllOthers, "the observer has not read yet")
	assert.Equal(t, "Rep", view.Sender.DisplayName)
}

func TestMessagesRecipientPerspective(t *testing.T) {
	projector, participants, _, receipts, dir := newTestProjector()

	msg := models.Message{ID: 1, RoomID: roomID, SenderID: 20, Type: models.MessageText, Content: "hello"}

	participants.On("ListParticipants", mock.Anything, roomID).Return(testParticipants(), nil)
	receipts.On("ListReaders", mock.Anything, []int64{1}).Return(map[int64][]int64{}, nil)
	dir.On("BulkUsers", mock.Anything, []int64{20}).Return([]directory.User{{ID: 20, DisplayName: "Rep"}}, nil)

	view, err := projector.Message(context.Background(), msg, 10)
	require.NoError(t, err)

	assert.False(t, view.IsReadByMe)
	assert.Equal(t, 0, view.ReadByOthersCount)
	assert.False(t, view.ReadByAllOthers)
}

func TestMessagesReadByAllOthers(t *testing.T) {
	projector, participants, _, receipts, dir := newTestProjector()

	msg := models.Message{ID: 1, RoomID: roomID, SenderID: 20, Type: models.MessageText, Content: "hello"}

	participants.On("ListParticipants", mock.Anything, roomID).Return(testParticipants(), nil)
	receipts.On("ListReaders", mock.Anything, []int64{1}).Return(map[int64][]int64{1: {10, 30}}, nil)
	dir.On("BulkUsers", mock.Anything, []int64{20}).Return([]directory.User{{ID: 20, DisplayName: "Rep"}}, nil)

	view, err := projector.Message(context.Background(), msg, 20)
	require.NoError(t, err)

	assert.Equal(t, 2, view.ReadByOthersCount)
	assert.True(t, view.ReadByAllOthers)
}

func TestMessagesIgnoresNonMemberReceipts(t *testing.T) {
	projector, participants, _, receipts, dir := newTestProjector()

	msg := models.Message{ID: 1, RoomID: roomID, SenderID: 20, Type: models.MessageText, Content: "hello"}

	// A receipt from a user who is not a current participant must not move
	// the counters.
	participants.On("ListParticipants", mock.Anything, roomID).Return(testParticipants(), nil)
	receipts.On("ListReaders", mock.Anything, []int64{1}).Return(map[int64][]int64{1: {10, 30, 999}}, nil)
	dir.On("BulkUsers", mock.Anything, []int64{20}).Return([]directory.User{{ID: 20, DisplayName: "Rep"}}, nil)

	view, err := projector.Message(context.Background(), msg, 20)
	require.NoError(t, err)

	assert.Equal(t, 2, view.ReadByOthersCount)
	assert.True(t, view.ReadByAllOthers)
}

func TestMessagesSignsAttachmentURLs(t *testing.T) {
	projector, participants, _, receipts, dir := newTestProjector()

	msg := models.Message{
		ID:       1,
		RoomID:   roomID,
		SenderID: 10,
		Type:     models.MessageImage,
		Attachment: &models.Attachment{
			Ref:      "uploads/photo.jpg",
			Name:     "photo.jpg",
			MimeType: "image/jpeg",
		},
	}

	participants.On("ListParticipants", mock.Anything, roomID).Return(testParticipants(), nil)
	receipts.On("ListReaders", mock.Anything, []int64{1}).Return(map[int64][]int64{}, nil)
	dir.On("BulkUsers", mock.Anything, []int64{10}).Return([]directory.User{{ID: 10, DisplayName: "Solo"}}, nil)

	view, err := projector.Message(context.Background(), msg, 10)
	require.NoError(t, err)

	require.NotNil(t, view.Attachment)
	assert.Contains(t, view.Attachment.URL, "https://cdn.example.com/uploads/photo.jpg?expires=")
	assert.Contains(t, view.Attachment.URL, "&sig=")
	assert.Equal(t, "photo.jpg", view.Attachment.Name)
}

func TestRoomSummarySoloViewerSeesCompany(t *testing.T) {
	projector, participants, messages, _, dir := newTestProjector()
	room := testRoom()

	participants.On("ListParticipants", mock.Anything, roomID).Return(testParticipants(20), nil)
	dir.On("GetCompany", mock.Anything, int64(30)).Return(directory.Company{ID: 30, Name: "Acme"}, nil)
	messages.On("LastMessage", mock.Anything, roomID).Return(&models.Message{ID: 5, SenderID: 20, Type: models.MessageText, Content: "see you tomorrow"}, nil)
	messages.On("UnreadCount", mock.Anything, roomID, int64(10)).Return(3, nil)

	view, err := projector.RoomSummary(context.Background(), room, 10)
	require.NoError(t, err)

	assert.Equal(t, "Acme", view.DisplayName)
	assert.True(t, view.AnyOtherOnline)
	assert.Equal(t, 3, view.UnreadCount)
	require.NotNil(t, view.LastMessage)
	assert.Equal(t, "see you tomorrow", view.LastMessage.Snippet)
}

func TestRoomSummaryCompanySideSeesSoloUser(t *testing.T) {
	projector, participants, messages, _, dir := newTestProjector()
	room := testRoom()

	participants.On("ListParticipants", mock.Anything, roomID).Return(testParticipants(), nil)
	dir.On("GetUser", mock.Anything, int64(10)).Return(directory.User{ID: 10, DisplayName: "Sam"}, nil)
	messages.On("LastMessage", mock.Anything, roomID).Return((*models.Message)(nil), nil)
	messages.On("UnreadCount", mock.Anything, roomID, int64(20)).Return(0, nil)

	view, err := projector.RoomSummary(context.Background(), room, 20)
	require.NoError(t, err)

	assert.Equal(t, "Sam", view.DisplayName)
	assert.False(t, view.AnyOtherOnline)
	assert.Nil(t, view.LastMessage)
	assert.Zero(t, view.UnreadCount)
}
