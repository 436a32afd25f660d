package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"todo-chatbot/backend/internal/events"
	"todo-chatbot/backend/internal/models"
	"todo-chatbot/backend/internal/repositories"
)

// ErrInvalidInput は入力値の検証エラーを表します。ハンドラーは400を返します。
var ErrInvalidInput = errors.New("invalid input")

// 期日つきタスクに自動で付けるリマインダーのオフセット。
const (
	preDueLead      = 1 * time.Hour
	overdueCheckLag = 5 * time.Minute
)

// TaskService はタスク関連のビジネスロジックを扱います。
// 変更のたびにイベントを発行しますが、発行失敗でリクエストは失敗させません。
type TaskService struct {
	taskRepo     *repositories.TaskRepository
	reminderRepo *repositories.ReminderRepository
	publisher    events.Publisher
}

// NewTaskService は新しいTaskServiceを作成します。
func NewTaskService(taskRepo *repositories.TaskRepository, reminderRepo *repositories.ReminderRepository, publisher events.Publisher) *TaskService {
	return &TaskService{taskRepo: taskRepo, reminderRepo: reminderRepo, publisher: publisher}
}

// CreateTask は新しいタスクを作成します。
// 期日が未来の場合、期日1時間前の事前リマインダーと期日5分後の
// 期限切れチェックを自動で登録します。
func (s *TaskService) CreateTask(task *models.Task, userID int) (*models.Task, error) {
	task.UserID = userID
	task.Normalize()

	if err := validateTask(task); err != nil {
		return nil, err
	}

	created, err := s.taskRepo.Create(task)
	if err != nil {
		return nil, err
	}

	s.publish(models.EventTaskCreated, created.ID, userID, created)
	s.scheduleDueReminders(created)

	return created, nil
}

// GetTasks はユーザーのタスクを取得します。adminの場合は全タスク。
// statusを指定すると該当ステータスのみに絞り込みます。
func (s *TaskService) GetTasks(userID int, userRole, status string) ([]*models.Task, error) {
	if status != "" && !models.ValidTaskStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if userRole == "admin" && status == "" {
		return s.taskRepo.FindAll()
	}
	return s.taskRepo.FindByUserID(userID, status)
}

// GetTaskByID は指定IDのタスクを取得し、認可チェックを行います。
func (s *TaskService) GetTaskByID(id, userID int, userRole string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID && userRole != "admin" {
		return nil, repositories.ErrTaskNotFound // アクセス拒否
	}
	return task, nil
}

// UpdateTask はタスクを更新し、認可チェックを行います。
func (s *TaskService) UpdateTask(id int, updateTask *models.Task, userID int, userRole string) (*models.Task, error) {
	existing, err := s.taskRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID && userRole != "admin" {
		return nil, repositories.ErrTaskNotFound
	}

	updateTask.UserID = existing.UserID // 元の所有者を保持
	updateTask.Normalize()
	if err := validateTask(updateTask); err != nil {
		return nil, err
	}

	updated, err := s.taskRepo.Update(id, updateTask)
	if err != nil {
		return nil, err
	}

	// 期日が変わった場合、古い期日に向けた自動リマインダーは作り直します。
	if !sameDueDate(existing.DueDate, updated.DueDate) {
		if _, err := s.reminderRepo.DeactivateAutoByTaskID(id); err != nil {
			log.Printf("Failed to deactivate stale reminders for task %d: %v", id, err)
		}
		s.scheduleDueReminders(updated)
	}

	s.publish(models.EventTaskUpdated, updated.ID, updated.UserID, updated)
	return updated, nil
}

func sameDueDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// CompleteTask はタスクを完了にします。
// 繰り返しタスクの場合は、期日を進めた次回タスクを新規作成します。
func (s *TaskService) CompleteTask(id, userID int, userRole string) (*models.Task, error) {
	existing, err := s.taskRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID && userRole != "admin" {
		return nil, repositories.ErrTaskNotFound
	}

	completed, err := s.taskRepo.Complete(id, time.Now())
	if err != nil {
		return nil, err
	}

	// 完了したタスクのリマインダーは不要になります。
	if _, err := s.reminderRepo.DeactivateByTaskID(id); err != nil {
		log.Printf("Failed to deactivate reminders for task %d: %v", id, err)
	}

	s.publish(models.EventTaskCompleted, completed.ID, completed.UserID, completed)

	if completed.RecurrencePattern != models.RecurrenceNone {
		s.spawnNextOccurrence(completed)
	}

	return completed, nil
}

// DeleteTask はタスクを削除し、認可チェックを行います。
func (s *TaskService) DeleteTask(id, userID int, userRole string) error {
	existing, err := s.taskRepo.FindByID(id)
	if err != nil {
		return err
	}
	if existing.UserID != userID && userRole != "admin" {
		return repositories.ErrTaskNotFound
	}

	if _, err := s.reminderRepo.DeactivateByTaskID(id); err != nil {
		log.Printf("Failed to deactivate reminders for task %d: %v", id, err)
	}

	if err := s.taskRepo.Delete(id); err != nil {
		return err
	}

	s.publish(models.EventTaskDeleted, id, existing.UserID, nil)
	return nil
}

// SearchTasks はタイトルと説明に対するキーワード検索を行います。
func (s *TaskService) SearchTasks(userID int, query string) ([]*models.Task, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", ErrInvalidInput)
	}
	return s.taskRepo.Search(userID, query)
}

// GetOverdueTasks は期日を過ぎた未完了タスクを取得します。
func (s *TaskService) GetOverdueTasks(userID int) ([]*models.Task, error) {
	return s.taskRepo.FindOverdue(userID, time.Now())
}

// GetStats はユーザーのタスク集計を返します。
func (s *TaskService) GetStats(userID int) (*models.TaskStats, error) {
	return s.taskRepo.CountByStatus(userID)
}

// spawnNextOccurrence は繰り返しタスクの次回分を作成します。
func (s *TaskService) spawnNextOccurrence(completed *models.Task) {
	if completed.DueDate == nil {
		return
	}
	nextDue, ok := NextOccurrence(*completed.DueDate, completed.RecurrencePattern)
	if !ok {
		return
	}

	next := &models.Task{
		UserID:            completed.UserID,
		Title:             completed.Title,
		Description:       completed.Description,
		Status:            models.TaskStatusPending,
		Priority:          completed.Priority,
		DueDate:           &nextDue,
		Tags:              completed.Tags,
		RecurrencePattern: completed.RecurrencePattern,
	}

	created, err := s.taskRepo.Create(next)
	if err != nil {
		log.Printf("Failed to create next occurrence of task %d: %v", completed.ID, err)
		return
	}

	s.publish(models.EventTaskCreated, created.ID, created.UserID, created)
	s.scheduleDueReminders(created)
}

// scheduleDueReminders は期日前リマインダーと期限切れチェックを登録します。
func (s *TaskService) scheduleDueReminders(task *models.Task) {
	if task.DueDate == nil || !task.DueDate.After(time.Now()) {
		return
	}

	preDue := task.DueDate.Add(-preDueLead)
	if preDue.After(time.Now()) {
		s.createAutoReminder(task, preDue,
			fmt.Sprintf("「%s」の期日まであと1時間です", task.Title))
	}

	s.createAutoReminder(task, task.DueDate.Add(overdueCheckLag),
		fmt.Sprintf("「%s」が期日を過ぎています", task.Title))
}

func (s *TaskService) createAutoReminder(task *models.Task, at time.Time, message string) {
	reminder := &models.Reminder{
		TaskID:           task.ID,
		UserID:           task.UserID,
		NotificationType: models.NotificationInApp,
		RemindAt:         at,
		Title:            task.Title,
		Message:          message,
		Frequency:        models.FrequencyOnce,
		Active:           true,
		Auto:             true,
	}

	created, err := s.reminderRepo.Create(reminder)
	if err != nil {
		log.Printf("Failed to schedule reminder for task %d: %v", task.ID, err)
		return
	}

	s.publish(models.EventReminderScheduled, task.ID, task.UserID, created)
}

// publish はイベントを発行します。失敗してもログに残して処理は続行します。
func (s *TaskService) publish(eventType string, taskID, userID int, data any) {
	event, err := events.NewEvent(eventType, taskID, userID, data)
	if err != nil {
		log.Printf("Failed to build %s event: %v", eventType, err)
		return
	}
	if err := s.publisher.Publish(context.Background(), event); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}

func validateTask(t *models.Task) error {
	if !models.ValidTaskStatus(t.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, t.Status)
	}
	if !models.ValidTaskPriority(t.Priority) {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, t.Priority)
	}
	if !models.ValidRecurrencePattern(t.RecurrencePattern) {
		return fmt.Errorf("%w: unknown recurrence pattern %q", ErrInvalidInput, t.RecurrencePattern)
	}
	return nil
}
