// Package notify はリマインダー発火時の通知配送を提供します。
package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"time"

	"github.com/google/uuid"

	"todo-chatbot/backend/internal/events"
	"todo-chatbot/backend/internal/models"
	"todo-chatbot/backend/internal/repositories"
)

// Notifier は通知チャネル(email / sms / push / in_app)への配送を行います。
// in_app はWebSocketハブ経由で接続中のクライアントに届きます。
type Notifier struct {
	userRepo  *repositories.UserRepository
	hub       *Hub
	publisher events.Publisher
}

// NewNotifier は新しいNotifierを作成します。hubはnilでも構いません。
func NewNotifier(userRepo *repositories.UserRepository, hub *Hub, publisher events.Publisher) *Notifier {
	return &Notifier{userRepo: userRepo, hub: hub, publisher: publisher}
}

// Send は指定チャネルで通知を配送し、notification_sentイベントを発行します。
func (n *Notifier) Send(ctx context.Context, userID int, notificationType, title, message string) (*models.Notification, error) {
	if !models.ValidNotificationType(notificationType) {
		return nil, fmt.Errorf("unknown notification type: %s", notificationType)
	}

	notification := &models.Notification{
		ID:               uuid.NewString(),
		UserID:           userID,
		NotificationType: notificationType,
		Title:            title,
		Message:          message,
		SentAt:           time.Now(),
	}

	var err error
	switch notificationType {
	case models.NotificationEmail:
		err = n.sendEmail(userID, title, message)
	case models.NotificationSMS:
		err = n.sendSMS(userID, title, message)
	case models.NotificationPush:
		err = n.sendPush(userID, title, message)
	case models.NotificationInApp:
		err = n.sendInApp(userID, notification)
	}

	notification.Delivered = err == nil
	if err != nil {
		log.Printf("Failed to deliver %s notification to user %d: %v", notificationType, userID, err)
	}

	event, buildErr := events.NewEvent(models.EventNotificationSent, 0, userID, notification)
	if buildErr != nil {
		log.Printf("Failed to build notification_sent event: %v", buildErr)
	} else if pubErr := n.publisher.Publish(ctx, event); pubErr != nil {
		log.Printf("Failed to publish notification_sent event: %v", pubErr)
	}

	return notification, err
}

func (n *Notifier) sendEmail(userID int, title, message string) error {
	user, err := n.userRepo.FindByID(userID)
	if err != nil {
		return err
	}

	from := os.Getenv("SMTP_USER")
	password := os.Getenv("SMTP_PASSWORD")
	smtpHost := os.Getenv("SMTP_HOST")
	if smtpHost == "" {
		smtpHost = "sandbox.smtp.mailtrap.io"
	}
	smtpPort := os.Getenv("SMTP_PORT")
	if smtpPort == "" {
		smtpPort = "2525"
	}

	body := []byte(fmt.Sprintf("Subject: %s\r\n\r\n%s", title, message))
	auth := smtp.PlainAuth("", from, password, smtpHost)

	if err := smtp.SendMail(smtpHost+":"+smtpPort, auth, from, []string{user.Email}, body); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SMSプロバイダーは未接続なのでログ出力のみ。
func (n *Notifier) sendSMS(userID int, title, message string) error {
	log.Printf("SMS notification to user %d: %s - %s", userID, title, message)
	return nil
}

// プッシュ通知プロバイダーは未接続なのでログ出力のみ。
func (n *Notifier) sendPush(userID int, title, message string) error {
	log.Printf("Push notification to user %d: %s - %s", userID, title, message)
	return nil
}

func (n *Notifier) sendInApp(userID int, notification *models.Notification) error {
	if n.hub == nil {
		log.Printf("In-app notification to user %d: %s - %s", userID, notification.Title, notification.Message)
		return nil
	}
	n.hub.SendToUser(userID, notification)
	return nil
}
