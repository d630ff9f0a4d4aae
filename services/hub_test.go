package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(roomCode string, buffer int) *Client {
	return &Client{
		send:     make(chan []byte, buffer),
		roomCode: roomCode,
		playerID: uuid.New(),
	}
}

func receiveEvent(t *testing.T, c *Client) map[string]any {
	t.Helper()
	select {
	case data := <-c.send:
		var event map[string]any
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHubRoomScopedFanOut(t *testing.T) {
	hub := startHub(t)

	a1 := newTestClient("AAAAAA", 8)
	a2 := newTestClient("AAAAAA", 8)
	b := newTestClient("BBBBBB", 8)
	hub.Register(a1)
	hub.Register(a2)
	hub.Register(b)

	hub.Publish("AAAAAA", "chat_message", map[string]any{"message": "hi"})

	for _, c := range []*Client{a1, a2} {
		event := receiveEvent(t, c)
		assert.Equal(t, "chat_message", event["type"])
		assert.Equal(t, "hi", event["message"])
		assert.NotEmpty(t, event["timestamp"])
	}

	select {
	case data := <-b.send:
		t.Fatalf("room B client received foreign event: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubPreservesPublishOrder(t *testing.T) {
	hub := startHub(t)

	client := newTestClient("CCCCCC", 16)
	hub.Register(client)

	for i := 0; i < 5; i++ {
		hub.Publish("CCCCCC", "next_question", map[string]any{"question_number": i})
	}
	for i := 0; i < 5; i++ {
		event := receiveEvent(t, client)
		assert.Equal(t, float64(i), event["question_number"])
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := startHub(t)

	slow := newTestClient("DDDDDD", 1)
	hub.Register(slow)

	hub.Publish("DDDDDD", "leaderboard_update", nil)
	hub.Publish("DDDDDD", "leaderboard_update", nil)

	assert.Eventually(t, func() bool {
		return !hub.HasSubscribers("DDDDDD")
	}, time.Second, 10*time.Millisecond, "client with a full buffer should be dropped")
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := startHub(t)

	client := newTestClient("EEEEEE", 8)
	hub.Register(client)

	require.Eventually(t, func() bool {
		return hub.HasSubscribers("EEEEEE")
	}, time.Second, 10*time.Millisecond)

	hub.Unregister(client)

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-client.send:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	assert.False(t, hub.HasSubscribers("EEEEEE"))
}

func TestHubConnectedPlayers(t *testing.T) {
	hub := startHub(t)

	c1 := newTestClient("FFFFFF", 8)
	c2 := newTestClient("FFFFFF", 8)
	hub.Register(c1)
	hub.Register(c2)

	require.Eventually(t, func() bool {
		return len(hub.ConnectedPlayers("FFFFFF")) == 2
	}, time.Second, 10*time.Millisecond)

	ids := hub.ConnectedPlayers("FFFFFF")
	assert.ElementsMatch(t, []uuid.UUID{c1.playerID, c2.playerID}, ids)
}

func TestEncodeEvent(t *testing.T) {
	data, err := encodeEvent("player_joined", map[string]any{"player_name": "alice"})
	require.NoError(t, err)

	var event map[string]any
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "player_joined", event["type"])
	assert.Equal(t, "alice", event["player_name"])

	ts, ok := event["timestamp"].(string)
	require.True(t, ok)
	_, err = time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)
}
