package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"todo-chatbot/backend/internal/models"
	"todo-chatbot/backend/internal/repositories"
	"todo-chatbot/backend/internal/services"
)

// ReminderHandler はリマインダー関連のハンドラーを管理します。
type ReminderHandler struct {
	reminderService *services.ReminderService
}

// NewReminderHandler は新しいReminderHandlerを作成します。
func NewReminderHandler(reminderService *services.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminderService: reminderService}
}

// CreateReminderHandler はリマインダーを登録します。
func (h *ReminderHandler) CreateReminderHandler(c *gin.Context) {
	var newReminder models.Reminder
	if err := c.ShouldBindJSON(&newReminder); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	userID, userRole, ok := currentUser(c)
	if !ok {
		return
	}

	createdReminder, err := h.reminderService.CreateReminder(&newReminder, userID, userRole)
	if err != nil {
		if err == repositories.ErrTaskNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create reminder"})
		return
	}
	c.JSON(http.StatusCreated, createdReminder)
}

// GetRemindersHandler はユーザーのリマインダーを取得します。
// ?task_id= でタスク単位、?upcoming_hours= で直近のものに絞り込めます。
func (h *ReminderHandler) GetRemindersHandler(c *gin.Context) {
	userID, userRole, ok := currentUser(c)
	if !ok {
		return
	}

	if taskIDStr := c.Query("task_id"); taskIDStr != "" {
		taskID, err := strconv.Atoi(taskIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task_id format"})
			return
		}

		reminders, err := h.reminderService.GetRemindersByTask(taskID, userID, userRole)
		if err != nil {
			if err == repositories.ErrTaskNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reminders"})
			return
		}
		c.JSON(http.StatusOK, reminders)
		return
	}

	if hoursStr := c.Query("upcoming_hours"); hoursStr != "" {
		hours, err := strconv.Atoi(hoursStr)
		if err != nil || hours <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upcoming_hours format"})
			return
		}

		reminders, err := h.reminderService.GetUpcomingReminders(userID, time.Duration(hours)*time.Hour)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reminders"})
			return
		}
		c.JSON(http.StatusOK, reminders)
		return
	}

	reminders, err := h.reminderService.GetReminders(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reminders"})
		return
	}
	c.JSON(http.StatusOK, reminders)
}

// CancelReminderHandler はリマインダーを無効化します。
func (h *ReminderHandler) CancelReminderHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	userID, userRole, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.reminderService.CancelReminder(id, userID, userRole); err != nil {
		if err == repositories.ErrReminderNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Reminder not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel reminder"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetReminderStatsHandler はユーザーのリマインダー集計を取得します。
func (h *ReminderHandler) GetReminderStatsHandler(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	stats, err := h.reminderService.GetStats(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reminder stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
