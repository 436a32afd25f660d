// Package modelsはTodo Chatbotのドメイン構造体を定義します。
package models

import (
	"time"
)

// タスクのステータス。
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

// タスクの優先度。
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"
)

// 繰り返しパターン。空文字列は「繰り返しなし」。
const (
	RecurrenceNone    = ""
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

// Task はタスクのデータベース構造体を表します。
// JSONタグ: クライアントとの通信用
// bindingタグ: Ginでのリクエストバリデーション用
type Task struct {
	ID          int    `json:"id,omitempty"` // 主キー
	UserID      int    `json:"user_id"`      // 所有ユーザーID
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`

	// Status: pending / in_progress / completed / cancelled
	Status string `json:"status"`

	// Priority: low / medium / high / urgent
	Priority string `json:"priority"`

	// DueDate: 期限。NULL可のためポインタ。
	DueDate *time.Time `json:"due_date,omitempty"`

	// Tags: DBにはJSON文字列として保存される
	Tags []string `json:"tags,omitempty"`

	// RecurrencePattern: "" / daily / weekly / monthly
	RecurrencePattern string `json:"recurrence_pattern,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ValidTaskStatus はステータス値が定義済みのものか確認します。
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// ValidTaskPriority は優先度値が定義済みのものか確認します。
func ValidTaskPriority(p string) bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// ValidRecurrencePattern は繰り返しパターンが定義済みのものか確認します。
func ValidRecurrencePattern(p string) bool {
	switch p {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Normalize はゼロ値のフィールドにデフォルトを設定します。
// ステータス未指定は pending、優先度未指定は medium。
func (t *Task) Normalize() {
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	if t.Priority == "" {
		t.Priority = TaskPriorityMedium
	}
}

// TaskStats はタスクのステータス別集計を表します。
type TaskStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}
