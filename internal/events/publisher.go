// Package events はタスク・リマインダーのイベント発行と購読を提供します。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"todo-chatbot/backend/internal/models"
)

// Kafkaトピック名。
const (
	TopicTaskEvents  = "task-events"
	TopicReminders   = "reminders"
	TopicTaskUpdates = "task-updates"
)

// Publisher はイベントをメッセージブローカーへ発行します。
// ブローカー未設定の環境では LogPublisher が使われ、処理は継続します。
type Publisher interface {
	Publish(ctx context.Context, event *models.Event) error
	Close() error
}

// NewEvent はenvelopeを組み立てます。dataはJSONに変換されpayloadになります。
func NewEvent(eventType string, taskID, userID int, data any) (*models.Event, error) {
	var payload json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event data: %w", err)
		}
		payload = b
	}

	return &models.Event{
		EventID:   uuid.NewString(),
		EventType: eventType,
		TaskID:    taskID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Data:      payload,
	}, nil
}

// TopicFor はイベント種別から発行先トピックを決定します。
// reminder_* と notification_* は reminders、task_updated は task-updates、
// それ以外のタスクイベントは task-events に入ります。
func TopicFor(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "reminder_"), strings.HasPrefix(eventType, "notification_"):
		return TopicReminders
	case eventType == models.EventTaskUpdated:
		return TopicTaskUpdates
	default:
		return TopicTaskEvents
	}
}

// LogPublisher はブローカーのない環境向けのフォールバックです。
// イベントをログに出力するだけで、発行は常に成功します。
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(_ context.Context, event *models.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	log.Printf("event (broker disabled): topic=%s type=%s task=%d user=%d",
		TopicFor(event.EventType), event.EventType, event.TaskID, event.UserID)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
