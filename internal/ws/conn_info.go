package ws

import "time"

// ConnInfo carries identity and correlation data for one websocket
// connection.
type ConnInfo struct {
	ConnID      string
	UserID      int64
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
