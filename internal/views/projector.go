package views

import (
	"context"
	"fmt"
	"time"

	"messaging-service/internal/directory"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/storage"
)

// Projector is the only component allowed to shape client-facing room and
// message payloads. The socket push path and the pull endpoints both go
// through it, so the two can never drift.
type Projector struct {
	participants repositories.ParticipantRepository
	messages     repositories.MessageRepository
	receipts     repositories.ReceiptRepository
	directory    directory.Directory
	signer       storage.Signer
	urlTTL       time.Duration
}

// NewProjector constructs a Projector.
func NewProjector(
	participants repositories.ParticipantRepository,
	messages repositories.MessageRepository,
	receipts repositories.ReceiptRepository,
	dir directory.Directory,
	signer storage.Signer,
	urlTTL time.Duration,
) *Projector {
	return &Projector{
		participants: participants,
		messages:     messages,
		receipts:     receipts,
		directory:    dir,
		signer:       signer,
		urlTTL:       urlTTL,
	}
}

// Message projects a single message for one viewer.
func (p *Projector) Message(ctx context.Context, msg models.Message, viewerID int64) (models.MessageView, error) {
	views, err := p.Messages(ctx, []models.Message{msg}, viewerID)
	if err != nil {
		return models.MessageView{}, err
	}
	return views[0], nil
}

// Messages projects a batch of messages from the same room for one viewer.
// Read state is dual-perspective: IsReadByMe for the viewer, and the
// read-by-others counters computed against current room membership
// excluding each message's sender. Receipts from users who are no longer
// participants do not count.
func (p *Projector) Messages(ctx context.Context, msgs []models.Message, viewerID int64) ([]models.MessageView, error) {
	if len(msgs) == 0 {
		return []models.MessageView{}, nil
	}
	roomID := msgs[0].RoomID

	participants, err := p.participants.ListParticipants(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	memberSet := make(map[int64]bool, len(participants))
	for _, participant := range participants {
		memberSet[participant.UserID] = true
	}

	messageIDs := make([]int64, 0, len(msgs))
	senderIDs := make([]int64, 0, len(msgs))
	senderSeen := map[int64]bool{}
	for _, m := range msgs {
		messageIDs = append(messageIDs, m.ID)
		if !senderSeen[m.SenderID] {
			senderSeen[m.SenderID] = true
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	readers, err := p.receipts.ListReaders(ctx, messageIDs)
	if err != nil {
		return nil, fmt.Errorf("list readers: %w", err)
	}

	senders, err := p.userSummaries(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	result := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		view := models.MessageView{
			ID:        m.ID,
			RoomID:    m.RoomID,
			Sender:    senders[m.SenderID],
			Type:      m.Type,
			Content:   m.Content,
			ReplyToID: m.ReplyToID,
			Edited:    m.Edited,
			EditedAt:  m.EditedAt,
			CreatedAt: m.CreatedAt,
		}
		if m.Attachment != nil {
			view.Attachment = p.attachmentView(*m.Attachment)
		}

		othersTotal := 0
		for _, participant := range participants {
			if participant.UserID != m.SenderID {
				othersTotal++
			}
		}

		readByMe := viewerID == m.SenderID
		memberReaders := 0
		for _, readerID := range readers[m.ID] {
			if readerID == viewerID {
				readByMe = true
			}
			if readerID != m.SenderID && memberSet[readerID] {
				memberReaders++
			}
		}

		view.IsReadByMe = readByMe
		view.ReadByOthersCount = memberReaders
		view.ReadByAllOthers = othersTotal > 0 && memberReaders >= othersTotal
		result = append(result, view)
	}
	return result, nil
}

// RoomSummary projects the chat-list entry for one viewer.
func (p *Projector) RoomSummary(ctx context.Context, room models.Room, viewerID int64) (models.RoomSummaryView, error) {
	participants, err := p.participants.ListParticipants(ctx, room.ID)
	if err != nil {
		return models.RoomSummaryView{}, fmt.Errorf("list participants: %w", err)
	}

	view := models.RoomSummaryView{
		ID:            room.ID,
		Type:          room.Type,
		IsActive:      room.IsActive,
		LastMessageAt: room.LastMessageAt,
		CreatedAt:     room.CreatedAt,
	}

	for _, participant := range participants {
		if participant.UserID != viewerID && participant.IsOnline {
			view.AnyOtherOnline = true
			break
		}
	}

	if err := p.resolveCounterpart(ctx, room, viewerID, &view); err != nil {
		return models.RoomSummaryView{}, err
	}

	last, err := p.messages.LastMessage(ctx, room.ID)
	if err != nil {
		return models.RoomSummaryView{}, fmt.Errorf("last message: %w", err)
	}
	if last != nil {
		view.LastMessage = &models.LastMessageView{
			ID:        last.ID,
			SenderID:  last.SenderID,
			Type:      last.Type,
			Snippet:   last.Snippet(80),
			CreatedAt: last.CreatedAt,
		}
	}

	unread, err := p.messages.UnreadCount(ctx, room.ID, viewerID)
	if err != nil {
		return models.RoomSummaryView{}, fmt.Errorf("unread count: %w", err)
	}
	view.UnreadCount = unread

	return view, nil
}

// RoomSummaries projects several rooms for one viewer.
func (p *Projector) RoomSummaries(ctx context.Context, rooms []models.Room, viewerID int64) ([]models.RoomSummaryView, error) {
	result := make([]models.RoomSummaryView, 0, len(rooms))
	for _, room := range rooms {
		view, err := p.RoomSummary(ctx, room, viewerID)
		if err != nil {
			return nil, err
		}
		result = append(result, view)
	}
	return result, nil
}

// resolveCounterpart picks the display name the viewer sees: the solo user
// sees the company; everyone on the company side sees the solo user.
func (p *Projector) resolveCounterpart(ctx context.Context, room models.Room, viewerID int64, view *models.RoomSummaryView) error {
	if viewerID == room.SoloUserID {
		company, err := p.directory.GetCompany(ctx, room.CompanyID)
		if err != nil {
			return fmt.Errorf("resolve company: %w", err)
		}
		view.DisplayName = company.Name
		view.ImageURL = p.signer.ResolveURL(company.ImageRef, p.urlTTL)
		return nil
	}

	solo, err := p.directory.GetUser(ctx, room.SoloUserID)
	if err != nil {
		return fmt.Errorf("resolve solo user: %w", err)
	}
	view.DisplayName = solo.DisplayName
	view.ImageURL = p.signer.ResolveURL(solo.ImageRef, p.urlTTL)
	return nil
}

func (p *Projector) userSummaries(ctx context.Context, ids []int64) (map[int64]models.UserSummary, error) {
	users, err := p.directory.BulkUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("bulk users: %w", err)
	}
	summaries := make(map[int64]models.UserSummary, len(users))
	for _, u := range users {
		summaries[u.ID] = models.UserSummary{
			ID:          u.ID,
			DisplayName: u.DisplayName,
			Role:        u.Role,
			ImageURL:    p.signer.ResolveURL(u.ImageRef, p.urlTTL),
		}
	}
	return summaries, nil
}

func (p *Projector) attachmentView(a models.Attachment) *models.AttachmentView {
	return &models.AttachmentView{
		URL:       p.signer.ResolveURL(a.Ref, p.urlTTL),
		Name:      a.Name,
		Size:      a.Size,
		MimeType:  a.MimeType,
		Duration:  a.Duration,
		Width:     a.Width,
		Height:    a.Height,
		Thumbnail: p.signer.ResolveURL(a.Thumbnail, p.urlTTL),
	}
}
