package ws

import (
	"context"
	"time"

	"github.com/google/uuid"

	"messaging-service/internal/observability"
)

func newConnID() string {
	return uuid.NewString()
}

// publishLifecycleEvent reports ws connect/disconnect/error events to the
// broker, best-effort.
func publishLifecycleEvent(ctx context.Context, kind, event, topic string, info ConnInfo, reason string) {
	observability.IncWSEvent(kind, event)
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"topic":       topic,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
	_ = observability.PublishEvent(ctx, wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
