package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"todo-chatbot/backend/internal/database"
	"todo-chatbot/backend/internal/events"
	"todo-chatbot/backend/internal/models"
	"todo-chatbot/backend/internal/notify"
	"todo-chatbot/backend/internal/repositories"
)

// notificationSender はフォールバック配送に必要な通知操作です。
type notificationSender interface {
	Send(ctx context.Context, userID int, notificationType, title, message string) (*models.Notification, error)
}

// newEventHandler は受信イベントを監査ログに記録するハンドラーを返します。
// reminder_triggered でスケジューラー側の配送が失敗していた場合のみ、
// フォールバックとして通知を再配送します(成功済みを再送すると二重通知)。
func newEventHandler(auditRepo *repositories.AuditRepository, sender notificationSender) events.Handler {
	return func(ctx context.Context, event *models.Event) error {
		recorded, err := auditRepo.Record(event)
		if err != nil {
			return err
		}
		if !recorded {
			// 再配信されたイベントは一度処理済みなのでスキップします。
			log.Printf("Skipping duplicate event %s (%s)", event.EventID, event.EventType)
			return nil
		}

		log.Printf("Recorded event %s (%s) for user %d", event.EventID, event.EventType, event.UserID)

		if event.EventType == models.EventReminderTriggered {
			var trigger models.ReminderTrigger
			if err := event.DecodeData(&trigger); err != nil {
				log.Printf("Failed to decode reminder from event %s: %v", event.EventID, err)
				return nil
			}
			if trigger.Delivered {
				return nil
			}
			reminder := trigger.Reminder
			if _, err := sender.Send(ctx, reminder.UserID, reminder.NotificationType, reminder.Title, reminder.Message); err != nil {
				log.Printf("Failed to send notification for event %s: %v", event.EventID, err)
			}
		}
		return nil
	}
}

// worker はKafkaの全トピックを購読し、イベントを監査ログに記録します。
// reminder_triggered はスケジューラー側で配送できなかった場合のみ
// 通知チャネルへ再配送します(APIプロセスが落ちていても通知が届くように)。
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		log.Fatal("KAFKA_BROKERS environment variable not set")
	}

	groupID := os.Getenv("KAFKA_GROUP_ID")
	if groupID == "" {
		groupID = "todo-chatbot-worker"
	}

	db := database.InitDB()
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	auditRepo := repositories.NewAuditRepository(db)
	userRepo := repositories.NewUserRepository(db)
	notifier := notify.NewNotifier(userRepo, nil, events.NewLogPublisher())

	handler := newEventHandler(auditRepo, notifier)

	consumer := events.NewConsumer(
		strings.Split(brokers, ","),
		groupID,
		[]string{events.TopicTaskEvents, events.TopicReminders, events.TopicTaskUpdates},
		handler,
	)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Printf("Received signal %s, shutting down...", sig)
		cancel()
	}()

	log.Printf("Worker consuming from %s (group: %s)", brokers, groupID)
	if err := consumer.Run(ctx); err != nil {
		log.Fatalf("Consumer stopped with error: %v", err)
	}
	log.Println("Worker stopped")
}
