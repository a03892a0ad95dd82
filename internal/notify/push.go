package notify

import (
	"context"
	"fmt"
	"log"

	"messaging-service/internal/observability"
)

// PushSender hands notifications to the delivery pipeline via the broker.
// Delivery is best-effort: a broker failure is counted and logged, never
// surfaced to the messaging path.
type PushSender struct {
	publisher Publisher
}

// NewPushSender constructs a PushSender.
func NewPushSender(publisher Publisher) *PushSender {
	return &PushSender{publisher: publisher}
}

type pushPayload struct {
	UserID int64          `json:"user_id"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Data   map[string]any `json:"data,omitempty"`
}

// PushToUser submits one notification, fire-and-forget.
func (s *PushSender) PushToUser(ctx context.Context, userID int64, title, body string, data map[string]any) {
	if s == nil || s.publisher == nil {
		return
	}

	routingKey := fmt.Sprintf("push.user.%d", userID)
	payload := pushPayload{UserID: userID, Title: title, Body: body, Data: data}
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		observability.IncPushFailure()
		log.Printf("push to user %d failed: %v", userID, err)
	}
}
