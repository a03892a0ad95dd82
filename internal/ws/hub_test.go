package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

// connPair is a real websocket pair: the server side goes into the hub, the
// client side is read by the test.
type connPair struct {
	server *websocket.Conn
	client *websocket.Conn
}

func newConnPair(t *testing.T) *connPair {
	t.Helper()

	upgraded := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		upgraded <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var server *websocket.Conn
	select {
	case server = <-upgraded:
	case <-time.After(time.Second):
		t.Fatal("server side of websocket never arrived")
	}

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return &connPair{server: server, client: client}
}

func (p *connPair) readEvent(t *testing.T) models.RoomEvent {
	t.Helper()
	require.NoError(t, p.client.SetReadDeadline(time.Now().Add(time.Second)))
	_, payload, err := p.client.ReadMessage()
	require.NoError(t, err)
	var event models.RoomEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	return event
}

func (p *connPair) expectSilence(t *testing.T) {
	t.Helper()
	require.NoError(t, p.client.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := p.client.ReadMessage()
	require.Error(t, err, "no frame expected")
}

func TestSubscribeAndHasSubscribers(t *testing.T) {
	hub := NewHub()
	topic := models.RoomTopic("room-1")
	client := NewClient(newConnPair(t).server, ConnInfo{ConnID: "c1", UserID: 10})

	assert.False(t, hub.HasSubscribers(topic))

	hub.Subscribe(topic, client)
	assert.True(t, hub.HasSubscribers(topic))

	hub.Unsubscribe(topic, client)
	assert.False(t, hub.HasSubscribers(topic))
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	hub := NewHub()
	topic := models.RoomTopic("room-1")

	first := newConnPair(t)
	second := newConnPair(t)
	hub.Subscribe(topic, NewClient(first.server, ConnInfo{ConnID: "c1", UserID: 10}))
	hub.Subscribe(topic, NewClient(second.server, ConnInfo{ConnID: "c2", UserID: 20}))

	hub.Publish(topic, models.RoomEvent{Type: models.EventMessage, RoomID: "room-1"})

	assert.Equal(t, models.EventMessage, first.readEvent(t).Type)
	assert.Equal(t, models.EventMessage, second.readEvent(t).Type)
}

func TestPublishPreservesOrderPerSubscriber(t *testing.T) {
	hub := NewHub()
	topic := models.RoomTopic("room-1")

	pair := newConnPair(t)
	hub.Subscribe(topic, NewClient(pair.server, ConnInfo{ConnID: "c1", UserID: 10}))

	for i := 1; i <= 5; i++ {
		hub.Publish(topic, models.RoomEvent{Type: models.EventMessage, RoomID: "room-1", MessageID: int64(i)})
	}

	for i := 1; i <= 5; i++ {
		assert.Equal(t, int64(i), pair.readEvent(t).MessageID)
	}
}

func TestPublishExceptSkipsExcludedUser(t *testing.T) {
	hub := NewHub()
	topic := models.RoomTopic("room-1")

	typist := newConnPair(t)
	other := newConnPair(t)
	hub.Subscribe(topic, NewClient(typist.server, ConnInfo{ConnID: "c1", UserID: 10}))
	hub.Subscribe(topic, NewClient(other.server, ConnInfo{ConnID: "c2", UserID: 20}))

	hub.PublishExcept(topic, models.RoomEvent{Type: models.EventTyping, RoomID: "room-1", UserID: 10}, 10)

	event := other.readEvent(t)
	assert.Equal(t, models.EventTyping, event.Type)
	assert.Equal(t, int64(10), event.UserID)
	typist.expectSilence(t)
}

func TestPublishAfterUnsubscribeDeliversNothing(t *testing.T) {
	hub := NewHub()
	topic := models.RoomTopic("room-1")

	pair := newConnPair(t)
	client := NewClient(pair.server, ConnInfo{ConnID: "c1", UserID: 10})
	hub.Subscribe(topic, client)
	hub.Unsubscribe(topic, client)

	hub.Publish(topic, models.RoomEvent{Type: models.EventMessage, RoomID: "room-1"})

	pair.expectSilence(t)
}

func TestTopicsAreIsolated(t *testing.T) {
	hub := NewHub()

	roomPair := newConnPair(t)
	listPair := newConnPair(t)
	hub.Subscribe(models.RoomTopic("room-1"), NewClient(roomPair.server, ConnInfo{ConnID: "c1", UserID: 10}))
	hub.Subscribe(models.ChatListTopic(10), NewClient(listPair.server, ConnInfo{ConnID: "c2", UserID: 10}))

	hub.Publish(models.RoomTopic("room-1"), models.RoomEvent{Type: models.EventMessage, RoomID: "room-1"})

	assert.Equal(t, models.EventMessage, roomPair.readEvent(t).Type)
	listPair.expectSilence(t)
}
