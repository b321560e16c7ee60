package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/acskang/endless-openrouter/logic"
	"github.com/acskang/endless-openrouter/pkg"
)

// ChatController handles the HTTP chat endpoints
type ChatController struct {
	chatLogic *logic.ChatLogic
}

func NewChatController(chatLogic *logic.ChatLogic) *ChatController {
	return &ChatController{chatLogic: chatLogic}
}

// Chat handles POST /chat, the non-streaming fallback for clients without
// a websocket connection
func (c *ChatController) Chat(ctx *gin.Context) {
	type Request struct {
		Message string     `json:"message"`
		History []pkg.Turn `json:"history"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	result, err := c.chatLogic.HandleMessage(ctx.Request.Context(), userID, req.Message, req.History, nil)
	if err != nil {
		status, message := chatErrorStatus(err)
		ctx.JSON(status, gin.H{"success": false, "error": message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       result.Response.Content,
		"timestamp":     result.Response.CreatedAt.Format(time.RFC3339),
		"cached":        result.Cached,
		"ai_model":      result.Response.AIModel,
		"response_id":   result.Response.ID,
		"response_time": result.ResponseTime,
	})
}

// ChatHistory handles GET /chat/history
func (c *ChatController) ChatHistory(ctx *gin.Context) {
	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid page parameter"})
		return
	}
	pageSize, err := strconv.Atoi(ctx.DefaultQuery("page_size", "50"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid page_size parameter"})
		return
	}

	history, pagination, err := c.chatLogic.ChatHistory(userID, page, pageSize)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"history":    history,
		"pagination": pagination,
		"timestamp":  time.Now().Format(time.RFC3339),
	})
}

// SelectResponse handles POST /responses/:id/select
func (c *ChatController) SelectResponse(ctx *gin.Context) {
	if _, err := extractUserID(ctx); err != nil {
		return
	}

	responseID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid response ID"})
		return
	}

	if err := c.chatLogic.SelectResponse(responseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Response not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// RateResponse handles POST /responses/:id/rating
func (c *ChatController) RateResponse(ctx *gin.Context) {
	if _, err := extractUserID(ctx); err != nil {
		return
	}

	responseID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid response ID"})
		return
	}

	type Request struct {
		Rating int `json:"rating" binding:"required"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := c.chatLogic.RateResponse(responseID, req.Rating); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Response not found"})
			return
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// chatErrorStatus maps pipeline errors onto HTTP statuses and user-facing
// messages. Provider auth failures surface as 401 so operators notice a
// bad credential immediately.
func chatErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, logic.ErrEmptyMessage):
		return http.StatusBadRequest, "Message is empty."
	case errors.Is(err, logic.ErrMessageTooLong):
		return http.StatusBadRequest, "Message is too long. Please keep it under the length limit."
	case errors.Is(err, logic.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "API call limit reached. Please wait until your quota resets."
	case errors.Is(err, pkg.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests to the AI service. Please try again shortly."
	case errors.Is(err, pkg.ErrAuthFailed):
		return http.StatusUnauthorized, "AI service authentication failed. Please contact the administrator."
	case errors.Is(err, pkg.ErrTimeout):
		return http.StatusGatewayTimeout, "The AI service took too long to respond."
	case errors.Is(err, pkg.ErrNetwork):
		return http.StatusServiceUnavailable, "A network error occurred while reaching the AI service."
	case errors.Is(err, pkg.ErrProvider):
		return http.StatusBadGateway, "The AI service returned an error."
	default:
		return http.StatusInternalServerError, "An unexpected server error occurred."
	}
}
