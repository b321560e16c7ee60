package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/acskang/endless-openrouter/logic"
	"github.com/acskang/endless-openrouter/middleware"
)

// Close codes sent before dropping a connection during setup
const (
	CloseUnauthenticated = 4001
	CloseSetupError      = 4000
)

// inboundFrame is the tagged client-to-server message
type inboundFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// chatPayload is the message body of outbound chat/typing/error frames
type chatPayload struct {
	ID           uint64  `json:"id,omitempty"`
	Text         string  `json:"text"`
	Sender       string  `json:"sender"` // "user", "ai" or "system"
	Timestamp    string  `json:"timestamp"`
	Cached       *bool   `json:"cached,omitempty"`
	AIModel      string  `json:"ai_model,omitempty"`
	ResponseTime float64 `json:"response_time,omitempty"`
}

type outboundFrame struct {
	Type    string      `json:"type"`
	Message chatPayload `json:"message"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// WSController owns the realtime chat gateway
type WSController struct {
	chatLogic        *logic.ChatLogic
	hub              *Hub
	sessionEpoch     string
	maxMessageLength int
	logger           *zap.Logger
}

func NewWSController(chatLogic *logic.ChatLogic, hub *Hub, sessionEpoch string, maxMessageLength int, logger *zap.Logger) *WSController {
	return &WSController{
		chatLogic:        chatLogic,
		hub:              hub,
		sessionEpoch:     sessionEpoch,
		maxMessageLength: maxMessageLength,
		logger:           logger,
	}
}

// HandleChat handles GET /ws/chat. The connection is upgraded first so a
// failed authentication can be answered with a distinguishing close code.
// Messages on one connection are handled strictly in order; connections
// are independent of each other.
func (w *WSController) HandleChat(ctx *gin.Context) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		w.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	token := ctx.Query("token")
	if token == "" {
		header := ctx.GetHeader("Authorization")
		token = strings.TrimPrefix(header, "Bearer ")
	}
	claims, err := middleware.ParseToken(token, w.sessionEpoch)
	if err != nil {
		w.logger.Warn("unauthenticated websocket connection rejected", zap.Error(err))
		w.closeWith(conn, CloseUnauthenticated, "authentication required")
		return
	}
	rawUserID, ok := claims["user_id"].(float64)
	if !ok || rawUserID <= 0 {
		w.closeWith(conn, CloseSetupError, "invalid session")
		return
	}
	userID := uint64(rawUserID)

	client := &wsClient{id: uuid.New().String(), userID: userID, conn: conn}
	w.hub.Register(client)
	defer w.hub.Unregister(client)

	if err := client.send(gin.H{
		"type":      "connection_established",
		"message":   "WebSocket connection established.",
		"timestamp": time.Now().Format(time.RFC3339),
		"user_id":   userID,
	}); err != nil {
		w.logger.Error("failed to send connection frame", zap.String("conn_id", client.id), zap.Error(err))
		return
	}
	w.logger.Info("websocket client connected",
		zap.String("conn_id", client.id),
		zap.Uint64("user_id", userID),
		zap.Int("channel_size", w.hub.ConnectionCount(userID)))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			w.logger.Info("websocket client disconnected", zap.String("conn_id", client.id), zap.Error(err))
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			w.sendError(client, "Invalid message format")
			continue
		}

		switch frame.Type {
		case "message":
			w.handleChatMessage(client, frame.Message)
		default:
			w.sendError(client, "Unknown message type")
		}
	}
}

func (w *WSController) handleChatMessage(client *wsClient, message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		w.sendError(client, "Message is empty.")
		return
	}
	if utf8.RuneCountInString(trimmed) > w.maxMessageLength {
		w.sendError(client, "Message is too long. Please keep it under the length limit.")
		return
	}

	// Echo the user's message to their channel before any backend work
	w.hub.Broadcast(client.userID, outboundFrame{
		Type: "chat_message",
		Message: chatPayload{
			Text:      trimmed,
			Sender:    "user",
			Timestamp: time.Now().Format(time.RFC3339),
		},
	})

	// Detached from the connection's request context: if the client goes
	// away mid-call, the answer is still generated and persisted for the
	// next asker, and delivery simply finds an empty channel.
	result, err := w.chatLogic.HandleMessage(context.Background(), client.userID, trimmed, nil, func() {
		w.hub.Broadcast(client.userID, outboundFrame{
			Type: "typing_indicator",
			Message: chatPayload{
				Text:      "The AI is generating a response...",
				Sender:    "system",
				Timestamp: time.Now().Format(time.RFC3339),
			},
		})
	})
	if err != nil {
		_, text := chatErrorStatus(err)
		w.sendError(client, text)
		return
	}

	cached := result.Cached
	payload := chatPayload{
		ID:        result.Response.ID,
		Text:      result.Response.Content,
		Sender:    "ai",
		Timestamp: result.Response.CreatedAt.Format(time.RFC3339),
		Cached:    &cached,
		AIModel:   result.Response.AIModel,
	}
	if !cached {
		payload.ResponseTime = result.ResponseTime
	}
	w.hub.Broadcast(client.userID, outboundFrame{Type: "chat_message", Message: payload})
}

// sendError answers the originating connection with an error frame. The
// connection stays open.
func (w *WSController) sendError(client *wsClient, text string) {
	_ = client.send(outboundFrame{
		Type: "error",
		Message: chatPayload{
			Text:      text,
			Sender:    "system",
			Timestamp: time.Now().Format(time.RFC3339),
		},
	})
}

func (w *WSController) closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}
