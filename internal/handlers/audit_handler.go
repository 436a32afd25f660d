package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"todo-chatbot/backend/internal/repositories"
)

// AuditHandler はイベント履歴のHTTPハンドラーを提供します。
type AuditHandler struct {
	auditRepo *repositories.AuditRepository
}

func NewAuditHandler(auditRepo *repositories.AuditRepository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

// GetAuditHandler は自分に関するイベント履歴を新しい順に返します。
// ?limit= で件数を絞り込めます(デフォルト50件)。
func (h *AuditHandler) GetAuditHandler(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit format"})
			return
		}
		limit = n
	}

	entries, err := h.auditRepo.ListByUser(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve event history"})
		return
	}

	c.JSON(http.StatusOK, entries)
}
