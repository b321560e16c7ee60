package controller

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	a := &wsClient{id: "a", userID: 1}
	b := &wsClient{id: "b", userID: 1}
	c := &wsClient{id: "c", userID: 2}

	hub.Register(a)
	hub.Register(b)
	hub.Register(c)

	assert.Equal(t, 2, hub.ConnectionCount(1), "same user's connections share one channel")
	assert.Equal(t, 1, hub.ConnectionCount(2))

	hub.Unregister(a)
	assert.Equal(t, 1, hub.ConnectionCount(1))

	// Teardown must be idempotent
	hub.Unregister(a)
	hub.Unregister(a)
	assert.Equal(t, 1, hub.ConnectionCount(1))

	hub.Unregister(b)
	assert.Zero(t, hub.ConnectionCount(1))
}

func TestHubUnregisterNeverRegistered(t *testing.T) {
	hub := NewHub()

	assert.NotPanics(t, func() {
		hub.Unregister(&wsClient{id: "ghost", userID: 9})
		hub.Unregister(nil)
	})
}

func TestHubBroadcastToEmptyChannelIsSilent(t *testing.T) {
	hub := NewHub()

	assert.NotPanics(t, func() {
		hub.Broadcast(42, outboundFrame{Type: "chat_message"})
	})
}

func TestOutboundFrameShape(t *testing.T) {
	cached := true
	frame := outboundFrame{
		Type: "chat_message",
		Message: chatPayload{
			ID:        7,
			Text:      "answer",
			Sender:    "ai",
			Timestamp: "2026-01-02T15:04:05Z",
			Cached:    &cached,
			AIModel:   "openai/gpt-3.5-turbo",
		},
	}

	data, err := json.Marshal(frame)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "chat_message", decoded["type"])

	message := decoded["message"].(map[string]interface{})
	assert.Equal(t, "ai", message["sender"])
	assert.Equal(t, true, message["cached"])
	_, hasResponseTime := message["response_time"]
	assert.False(t, hasResponseTime, "cached answers carry no response_time")
}
