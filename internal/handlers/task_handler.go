package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"todo-chatbot/backend/internal/models"
	"todo-chatbot/backend/internal/repositories"
	"todo-chatbot/backend/internal/services"
)

// TaskHandler はタスク関連のハンドラーを管理します。
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler は新しいTaskHandlerを作成します。
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// CreateTaskHandler は新しいタスクを作成します。
func (h *TaskHandler) CreateTaskHandler(c *gin.Context) {
	var newTask models.Task
	if err := c.ShouldBindJSON(&newTask); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	createdTask, err := h.taskService.CreateTask(&newTask, userID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save task to database"})
		return
	}
	c.JSON(http.StatusCreated, createdTask)
}

// GetTasksHandler はタスクリストを取得します。?status= で絞り込みできます。
func (h *TaskHandler) GetTasksHandler(c *gin.Context) {
	userID, userRole, ok := currentUser(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.GetTasks(userID, userRole, c.Query("status"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetTaskByIDHandler は指定IDのタスクを取得します。
func (h *TaskHandler) GetTaskByIDHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	userID, userRole, ok := currentUser(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTaskByID(id, userID, userRole)
	if err != nil {
		if err == repositories.ErrTaskNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTaskHandler はタスクを更新します。
func (h *TaskHandler) UpdateTaskHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	userID, userRole, ok := currentUser(c)
	if !ok {
		return
	}

	var updateTask models.Task
	if err := c.ShouldBindJSON(&updateTask); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	updatedTask, err := h.taskService.UpdateTask(id, &updateTask, userID, userRole)
	if err != nil {
		if err == repositories.ErrTaskNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}
	c.JSON(http.StatusOK, updatedTask)
}

// CompleteTaskHandler はタスクを完了にします。
func (h *TaskHandler) CompleteTaskHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	userID, userRole, ok := currentUser(c)
	if !ok {
		return
	}

	completedTask, err := h.taskService.CompleteTask(id, userID, userRole)
	if err != nil {
		if err == repositories.ErrTaskNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete task"})
		return
	}
	c.JSON(http.StatusOK, completedTask)
}

// DeleteTaskHandler はタスクを削除します。
func (h *TaskHandler) DeleteTaskHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	userID, userRole, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(id, userID, userRole); err != nil {
		if err == repositories.ErrTaskNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}
	c.Status(http.StatusNoContent)
}

// SearchTasksHandler はタスクをキーワード検索します。?q= が必須です。
func (h *TaskHandler) SearchTasksHandler(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.SearchTasks(userID, c.Query("q"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search tasks"})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetOverdueTasksHandler は期日を過ぎた未完了タスクを取得します。
func (h *TaskHandler) GetOverdueTasksHandler(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.GetOverdueTasks(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch overdue tasks"})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetTaskStatsHandler はユーザーのタスク集計を取得します。
func (h *TaskHandler) GetTaskStatsHandler(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	stats, err := h.taskService.GetStats(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
