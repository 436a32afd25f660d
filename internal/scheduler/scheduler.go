// Package scheduler は期限の来たリマインダーをポーリングで発火させます。
package scheduler

import (
	"context"
	"log"
	"time"

	"todo-chatbot/backend/internal/events"
	"todo-chatbot/backend/internal/models"
	"todo-chatbot/backend/internal/services"
)

// DefaultInterval はポーリング間隔のデフォルトです。
const DefaultInterval = 5 * time.Second

// ReminderStore はスケジューラーが必要とするリマインダー操作です。
type ReminderStore interface {
	FindDue(now time.Time) ([]*models.Reminder, error)
	MarkTriggered(id int, triggered time.Time) error
	Reschedule(id int, next, triggered time.Time) error
}

// NotificationSender は発火したリマインダーの通知配送を行います。
type NotificationSender interface {
	Send(ctx context.Context, userID int, notificationType, title, message string) (*models.Notification, error)
}

// Scheduler は一定間隔でデータベースを確認し、期限の来たリマインダーを
// 発火させます。once は発火後に無効化、繰り返しは次回日時へ進めます。
type Scheduler struct {
	store     ReminderStore
	sender    NotificationSender
	publisher events.Publisher
	interval  time.Duration
}

// New は新しいSchedulerを作成します。intervalが0以下の場合はデフォルト値。
func New(store ReminderStore, sender NotificationSender, publisher events.Publisher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{store: store, sender: sender, publisher: publisher, interval: interval}
}

// Run はコンテキストがキャンセルされるまでポーリングを続けます。
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("Reminder scheduler started (interval: %s)", s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Reminder scheduler stopped")
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

// tick は1回分のポーリングを実行します。
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	due, err := s.store.FindDue(now)
	if err != nil {
		log.Printf("Failed to query due reminders: %v", err)
		return
	}

	for _, reminder := range due {
		s.trigger(ctx, reminder, now)
	}
}

func (s *Scheduler) trigger(ctx context.Context, reminder *models.Reminder, now time.Time) {
	_, sendErr := s.sender.Send(ctx, reminder.UserID, reminder.NotificationType, reminder.Title, reminder.Message)
	if sendErr != nil {
		log.Printf("Failed to send notification for reminder %d: %v", reminder.ID, sendErr)
	}

	// 配送結果をイベントに載せます。成功済みのイベントをコンシューマーが
	// 再配送すると二重通知になるため、Deliveredで区別できるようにします。
	payload := models.ReminderTrigger{Reminder: *reminder, Delivered: sendErr == nil}
	event, err := events.NewEvent(models.EventReminderTriggered, reminder.TaskID, reminder.UserID, payload)
	if err != nil {
		log.Printf("Failed to build reminder_triggered event: %v", err)
	} else if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("Failed to publish reminder_triggered event: %v", err)
	}

	// 次回予定の計算は現在のremind_atを基準にします。発火が遅れても
	// スケジュールはずれません。
	if next, ok := services.NextOccurrence(reminder.RemindAt, reminder.Frequency); ok {
		// 長時間止まっていた場合は過去分を飛ばして未来の日時まで進めます。
		for !next.After(now) {
			next, _ = services.NextOccurrence(next, reminder.Frequency)
		}
		if err := s.store.Reschedule(reminder.ID, next, now); err != nil {
			log.Printf("Failed to reschedule reminder %d: %v", reminder.ID, err)
		}
		return
	}

	if err := s.store.MarkTriggered(reminder.ID, now); err != nil {
		log.Printf("Failed to mark reminder %d as triggered: %v", reminder.ID, err)
	}
}
