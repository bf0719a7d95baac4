package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"twinconsole/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type versionedSource struct {
	version atomic.Uint64
}

func (s *versionedSource) Snapshot() models.Snapshot {
	return models.Snapshot{Version: s.version.Load()}
}

func (s *versionedSource) Version() uint64 { return s.version.Load() }

func receive(t *testing.T, ch <-chan WebSocketMessage) WebSocketMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
	return WebSocketMessage{}
}

func startHub(t *testing.T, src SnapshotSource, interval time.Duration) (*WebSocketHub, context.CancelFunc) {
	t.Helper()
	hub := NewWebSocketHub(src, interval, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func TestWebSocketHub_InitialSnapshotOnRegister(t *testing.T) {
	src := &versionedSource{}
	src.version.Store(7)
	hub, _ := startHub(t, src, time.Hour)

	client := &ClientConnection{ID: "a", Send: make(chan WebSocketMessage, 8)}
	require.True(t, hub.Register(client))

	msg := receive(t, client.Send)
	assert.Equal(t, MessageSnapshot, msg.Type)
	assert.Equal(t, uint64(7), msg.Data.(models.Snapshot).Version)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestWebSocketHub_PushesOnlyWhenVersionChanges(t *testing.T) {
	src := &versionedSource{}
	hub, _ := startHub(t, src, 10*time.Millisecond)

	client := &ClientConnection{ID: "a", Send: make(chan WebSocketMessage, 64)}
	require.True(t, hub.Register(client))
	receive(t, client.Send) // initial
	receive(t, client.Send) // first tick

	// unchanged: nothing for several ticks
	select {
	case msg := <-client.Send:
		t.Fatalf("unexpected push: %+v", msg)
	case <-time.After(60 * time.Millisecond):
	}

	src.version.Store(1)
	msg := receive(t, client.Send)
	assert.Equal(t, uint64(1), msg.Data.(models.Snapshot).Version)
}

func TestWebSocketHub_BroadcastAndUnregister(t *testing.T) {
	hub, _ := startHub(t, &versionedSource{}, time.Hour)

	a := &ClientConnection{ID: "a", Send: make(chan WebSocketMessage, 8)}
	b := &ClientConnection{ID: "b", Send: make(chan WebSocketMessage, 8)}
	hub.Register(a)
	hub.Register(b)
	receive(t, a.Send)
	receive(t, b.Send)

	hub.Broadcast(WebSocketMessage{Type: MessagePlayback, Data: models.PlaybackState{Speed: 2}})
	assert.Equal(t, MessagePlayback, receive(t, a.Send).Type)
	assert.Equal(t, MessagePlayback, receive(t, b.Send).Type)

	hub.Unregister("a")
	_, ok := <-a.Send
	assert.False(t, ok)
	assert.Equal(t, 1, hub.ClientCount())
	assert.True(t, hub.SendMessage("b", WebSocketMessage{Type: MessagePong}))
	assert.False(t, hub.SendMessage("a", WebSocketMessage{Type: MessagePong}))
}

func TestWebSocketHub_StopClosesClients(t *testing.T) {
	hub, cancel := startHub(t, &versionedSource{}, time.Hour)
	client := &ClientConnection{ID: "a", Send: make(chan WebSocketMessage, 8)}
	hub.Register(client)
	receive(t, client.Send)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-client.Send:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, hub.Register(&ClientConnection{ID: "late", Send: make(chan WebSocketMessage, 1)}))
}
