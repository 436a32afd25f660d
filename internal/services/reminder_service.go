package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"todo-chatbot/backend/internal/events"
	"todo-chatbot/backend/internal/models"
	"todo-chatbot/backend/internal/repositories"
)

// ReminderService はリマインダー関連のビジネスロジックを扱います。
type ReminderService struct {
	reminderRepo *repositories.ReminderRepository
	taskRepo     *repositories.TaskRepository
	publisher    events.Publisher
}

// NewReminderService は新しいReminderServiceを作成します。
func NewReminderService(reminderRepo *repositories.ReminderRepository, taskRepo *repositories.TaskRepository, publisher events.Publisher) *ReminderService {
	return &ReminderService{reminderRepo: reminderRepo, taskRepo: taskRepo, publisher: publisher}
}

// CreateReminder はリマインダーを登録します。
// 対象タスクが本人のもの(またはadmin)であることを確認します。
func (s *ReminderService) CreateReminder(reminder *models.Reminder, userID int, userRole string) (*models.Reminder, error) {
	task, err := s.taskRepo.FindByID(reminder.TaskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID && userRole != "admin" {
		return nil, repositories.ErrTaskNotFound
	}

	reminder.UserID = task.UserID
	reminder.Active = true
	reminder.Normalize()

	if !models.ValidNotificationType(reminder.NotificationType) {
		return nil, fmt.Errorf("%w: unknown notification type %q", ErrInvalidInput, reminder.NotificationType)
	}
	if !models.ValidFrequency(reminder.Frequency) {
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, reminder.Frequency)
	}
	if reminder.RemindAt.Before(time.Now()) {
		return nil, fmt.Errorf("%w: remind_at is in the past", ErrInvalidInput)
	}
	if reminder.Title == "" {
		reminder.Title = task.Title
	}

	created, err := s.reminderRepo.Create(reminder)
	if err != nil {
		return nil, err
	}

	s.publish(models.EventReminderScheduled, created.TaskID, created.UserID, created)
	return created, nil
}

// GetReminders はユーザーのリマインダーを取得します。
func (s *ReminderService) GetReminders(userID int) ([]*models.Reminder, error) {
	return s.reminderRepo.FindByUserID(userID)
}

// GetRemindersByTask はタスクに紐づくリマインダーを取得します。
func (s *ReminderService) GetRemindersByTask(taskID, userID int, userRole string) ([]*models.Reminder, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID && userRole != "admin" {
		return nil, repositories.ErrTaskNotFound
	}
	return s.reminderRepo.FindByTaskID(taskID)
}

// GetUpcomingReminders は指定時間内に発火予定のリマインダーを取得します。
func (s *ReminderService) GetUpcomingReminders(userID int, within time.Duration) ([]*models.Reminder, error) {
	if within <= 0 {
		within = 24 * time.Hour
	}
	return s.reminderRepo.FindUpcoming(userID, time.Now(), within)
}

// CancelReminder はリマインダーを無効化し、認可チェックを行います。
func (s *ReminderService) CancelReminder(id, userID int, userRole string) error {
	reminder, err := s.reminderRepo.FindByID(id)
	if err != nil {
		return err
	}
	if reminder.UserID != userID && userRole != "admin" {
		return repositories.ErrReminderNotFound
	}

	if err := s.reminderRepo.Deactivate(id); err != nil {
		return err
	}

	s.publish(models.EventReminderCancelled, reminder.TaskID, reminder.UserID, nil)
	return nil
}

// GetStats はユーザーのリマインダー集計を返します。
func (s *ReminderService) GetStats(userID int) (*models.ReminderStats, error) {
	return s.reminderRepo.CountStats(userID)
}

func (s *ReminderService) publish(eventType string, taskID, userID int, data any) {
	event, err := events.NewEvent(eventType, taskID, userID, data)
	if err != nil {
		log.Printf("Failed to build %s event: %v", eventType, err)
		return
	}
	if err := s.publisher.Publish(context.Background(), event); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}
