package pkg

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
)

// Provider failure classes. Callers branch on these with errors.Is; the
// wrapped detail never contains the API credential.
var (
	ErrAuthFailed  = errors.New("completion provider rejected the credential")
	ErrRateLimited = errors.New("completion provider is rate limiting")
	ErrTimeout     = errors.New("completion provider timed out")
	ErrNetwork     = errors.New("completion provider is unreachable")
	ErrProvider    = errors.New("completion provider error")
)

// Turn is one prior exchange entry sent as context
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// CompletionClient calls an OpenAI-compatible chat completion endpoint
type CompletionClient struct {
	client        *openai.Client
	model         string
	systemPrompt  string
	maxTokens     int
	temperature   float32
	timeout       time.Duration
	historyWindow int
	maxTurnChars  int
}

// CompletionOptions configures a CompletionClient
type CompletionOptions struct {
	APIKey        string
	BaseURL       string
	Model         string
	SystemPrompt  string
	MaxTokens     int
	Temperature   float32
	Timeout       time.Duration
	HistoryWindow int
	MaxTurnChars  int
}

func NewCompletionClient(opts CompletionOptions) *CompletionClient {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &CompletionClient{
		client:        openai.NewClientWithConfig(cfg),
		model:         opts.Model,
		systemPrompt:  opts.SystemPrompt,
		maxTokens:     opts.MaxTokens,
		temperature:   opts.Temperature,
		timeout:       opts.Timeout,
		historyWindow: opts.HistoryWindow,
		maxTurnChars:  opts.MaxTurnChars,
	}
}

// Model returns the configured provider model identifier
func (c *CompletionClient) Model() string {
	return c.model
}

// Complete sends the system prompt, the bounded history window and the user
// message, and returns the assistant's answer. The whole round trip is
// bounded by the configured timeout; a deadline hit yields ErrTimeout and
// no partial text.
func (c *CompletionClient) Complete(ctx context.Context, history []Turn, userMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.systemPrompt,
	})

	// Most recent N turns only, each clipped to the per-turn limit
	window := history
	if len(window) > c.historyWindow {
		window = window[len(window)-c.historyWindow:]
	}
	for _, turn := range window {
		if turn.Role != openai.ChatMessageRoleUser && turn.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: truncate(turn.Content, c.maxTurnChars),
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", translateError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices in response", ErrProvider)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// translateError maps transport and HTTP failures onto the typed error
// classes. API error bodies are kept, the credential is never part of them.
func translateError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: status %d", ErrAuthFailed, apiErr.HTTPStatusCode)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: status %d", ErrRateLimited, apiErr.HTTPStatusCode)
		default:
			return fmt.Errorf("%w: status %d: %s", ErrProvider, apiErr.HTTPStatusCode, apiErr.Message)
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: status %d", ErrAuthFailed, reqErr.HTTPStatusCode)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: status %d", ErrRateLimited, reqErr.HTTPStatusCode)
		default:
			return fmt.Errorf("%w: status %d", ErrProvider, reqErr.HTTPStatusCode)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// truncate clips s to at most limit characters, never splitting a rune
func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
