package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"todo-chatbot/backend/internal/models"
	"todo-chatbot/backend/internal/services"
)

// ChatHandler はチャットボット関連のハンドラーを管理します。
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler は新しいChatHandlerを作成します。
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ChatHandler はチャットメッセージをコマンドとして処理します。
func (h *ChatHandler) ChatHandler(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	userID, userRole, ok := currentUser(c)
	if !ok {
		return
	}

	response := h.chatService.HandleChat(req.Message, userID, userRole)
	c.JSON(http.StatusOK, response)
}

// NaturalLanguageHandler は自由文からタスクを作成します。
func (h *ChatHandler) NaturalLanguageHandler(c *gin.Context) {
	var req models.NaturalLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	response, err := h.chatService.HandleNaturalLanguage(req.Message, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message"})
		return
	}
	c.JSON(http.StatusOK, response)
}
