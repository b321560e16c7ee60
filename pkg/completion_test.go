package pkg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionJSON(answer string) string {
	return fmt.Sprintf(`{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"model": "openai/gpt-3.5-turbo",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}]
	}`, answer)
}

func newTestClient(baseURL string, timeout time.Duration) *CompletionClient {
	return NewCompletionClient(CompletionOptions{
		APIKey:        "test-key",
		BaseURL:       baseURL,
		Model:         "openai/gpt-3.5-turbo",
		SystemPrompt:  "You are a helpful AI assistant.",
		MaxTokens:     100,
		Temperature:   0.7,
		Timeout:       timeout,
		HistoryWindow: 10,
		MaxTurnChars:  2000,
	})
}

func TestCompleteSuccess(t *testing.T) {
	var captured capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON("  Hello!  "))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5*time.Second)
	answer, err := client.Complete(context.Background(), nil, "Hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", answer, "answer is trimmed")

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "Hi", captured.Messages[1].Content)
}

func TestCompleteBoundsHistory(t *testing.T) {
	var captured capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON("ok"))
	}))
	defer server.Close()

	history := make([]Turn, 0, 15)
	for i := 0; i < 15; i++ {
		history = append(history, Turn{Role: "user", Content: fmt.Sprintf("turn %d", i)})
	}
	// Oversized content and an invalid role mixed in
	history = append(history, Turn{Role: "assistant", Content: strings.Repeat("x", 5000)})
	history = append(history, Turn{Role: "system", Content: "should be dropped"})

	client := newTestClient(server.URL, 5*time.Second)
	_, err := client.Complete(context.Background(), history, "Hi")
	require.NoError(t, err)

	// system prompt + at most 10 history turns (minus the invalid role) + user message
	assert.LessOrEqual(t, len(captured.Messages), 12)
	for _, m := range captured.Messages {
		assert.LessOrEqual(t, len(m.Content), 2000)
		assert.NotEqual(t, "should be dropped", m.Content)
	}
}

func TestCompleteErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuthFailed},
		{http.StatusForbidden, ErrAuthFailed},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrProvider},
		{http.StatusBadGateway, ErrProvider},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error": {"message": "nope", "type": "server_error"}}`)
			}))
			defer server.Close()

			client := newTestClient(server.URL, 5*time.Second)
			_, err := client.Complete(context.Background(), nil, "Hi")
			assert.ErrorIs(t, err, tt.want)
			assert.NotContains(t, err.Error(), "test-key", "credential must never leak into errors")
		})
	}
}

func TestCompleteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON("too late"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 50*time.Millisecond)
	_, err := client.Complete(context.Background(), nil, "Hi")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestCompleteNetworkError(t *testing.T) {
	// Nothing listens here
	client := newTestClient("http://127.0.0.1:1", time.Second)
	_, err := client.Complete(context.Background(), nil, "Hi")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestTruncateCountsRunes(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10), "short input passes through")
	assert.Equal(t, "abc", truncate("abcdef", 3))

	clipped := truncate(strings.Repeat("한", 10), 4)
	assert.True(t, utf8.ValidString(clipped), "clipping must not split a rune")
	assert.Equal(t, 4, utf8.RuneCountInString(clipped))
	assert.Equal(t, "한한한한", clipped)

	assert.Equal(t, "한한", truncate("한한", 10), "limit counts characters, not bytes")
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "chatcmpl-1", "object": "chat.completion", "choices": []}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5*time.Second)
	_, err := client.Complete(context.Background(), nil, "Hi")
	assert.ErrorIs(t, err, ErrProvider)
}
