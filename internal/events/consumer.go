package events

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/segmentio/kafka-go"

	"todo-chatbot/backend/internal/models"
)

// Handler は受信したイベントを処理します。
// エラーを返したメッセージはコミットされず、再配信で再処理されます。
type Handler func(ctx context.Context, event *models.Event) error

// Consumer はコンシューマーグループとして複数トピックを購読します。
// FetchMessage → 処理 → CommitMessages の順なので配信は at-least-once です。
type Consumer struct {
	reader  *kafka.Reader
	handler Handler
}

func NewConsumer(brokers []string, groupID string, topics []string, handler Handler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			GroupID:     groupID,
			GroupTopics: topics,
		}),
		handler: handler,
	}
}

// Run はコンテキストがキャンセルされるまでメッセージを処理し続けます。
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if !c.handleMessage(ctx, msg) {
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// handleMessage は1件のメッセージを処理し、オフセットをコミットすべきか返します。
// デコードできないメッセージはコミットして先へ進みます(poison message対策)。
// ハンドラーのエラーはコミットせず、再配信に委ねます(event_idで重複排除
// されるため再処理は安全)。
func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message) bool {
	var event models.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Printf("Failed to decode event from %s: %v", msg.Topic, err)
		return true
	}
	if err := event.Validate(); err != nil {
		log.Printf("Invalid event from %s: %v", msg.Topic, err)
		return true
	}
	if err := c.handler(ctx, &event); err != nil {
		log.Printf("Failed to handle %s event %s: %v", event.EventType, event.EventID, err)
		return false
	}
	return true
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
