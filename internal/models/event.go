package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// イベント種別。Kafkaトピックへ発行されるイベントのenvelopeに入ります。
const (
	EventTaskCreated       = "task_created"
	EventTaskUpdated       = "task_updated"
	EventTaskDeleted       = "task_deleted"
	EventTaskCompleted     = "task_completed"
	EventReminderScheduled = "reminder_scheduled"
	EventReminderTriggered = "reminder_triggered"
	EventReminderCancelled = "reminder_cancelled"
	EventNotificationSent  = "notification_sent"
)

// Event はKafka/Daprへ発行されるイベントのenvelopeです。
// EventID は at-least-once 配信の重複排除キーとして使われます。
type Event struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	TaskID    int             `json:"task_id"`
	UserID    int             `json:"user_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Validate はenvelopeの必須フィールドを確認します。
func (e *Event) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event is missing event_id")
	}
	if e.EventType == "" {
		return fmt.Errorf("event is missing event_type")
	}
	if e.UserID == 0 {
		return fmt.Errorf("event is missing user_id")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("event is missing timestamp")
	}
	return nil
}

// DecodeData はpayloadを指定の型にデコードします。
func (e *Event) DecodeData(out any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no data", e.EventID)
	}
	return json.Unmarshal(e.Data, out)
}

// AuditEntry は監査テーブルに保存されたイベントを表します。
type AuditEntry struct {
	ID        int       `json:"id"`
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	TaskID    int       `json:"task_id"`
	UserID    int       `json:"user_id"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}
