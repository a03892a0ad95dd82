package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Close codes sent when a connection is rejected at connect time. Distinct
// codes let clients tell "not logged in" from "not allowed in this room".
const (
	CloseUnauthenticated = 4401
	CloseForbidden       = 4403
)

// Client wraps a websocket connection with a write lock so concurrent
// publishes from different topics never interleave partial frames on one
// outbound stream.
type Client struct {
	conn *websocket.Conn
	info ConnInfo

	writeMu sync.Mutex
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{conn: conn, info: info}
}

// Info returns the connection's identity data.
func (c *Client) Info() ConnInfo {
	return c.info
}

// Send marshals and writes one event frame.
func (c *Client) Send(event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.sendRaw(payload)
}

func (c *Client) sendRaw(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// CloseWithCode sends a close frame with the given code and closes the
// connection.
func (c *Client) CloseWithCode(code int, reason string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = c.conn.Close()
}

// Close closes the underlying connection.
func (c *Client) Close() {
	_ = c.conn.Close()
}
