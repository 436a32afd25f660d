package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-chatbot/backend/internal/events"
	"todo-chatbot/backend/internal/models"
	"todo-chatbot/backend/internal/repositories"
	"todo-chatbot/backend/testutil"
)

type fakeSender struct {
	sent []*models.Notification
}

func (f *fakeSender) Send(_ context.Context, userID int, notificationType, title, message string) (*models.Notification, error) {
	n := &models.Notification{
		UserID:           userID,
		NotificationType: notificationType,
		Title:            title,
		Message:          message,
		Delivered:        true,
	}
	f.sent = append(f.sent, n)
	return n, nil
}

func triggerEvent(t *testing.T, delivered bool) *models.Event {
	trigger := models.ReminderTrigger{
		Reminder: models.Reminder{
			ID:               1,
			TaskID:           10,
			UserID:           1,
			NotificationType: models.NotificationEmail,
			Title:            "買い物",
			Message:          "牛乳を買う",
		},
		Delivered: delivered,
	}
	event, err := events.NewEvent(models.EventReminderTriggered, 10, 1, trigger)
	require.NoError(t, err)
	return event
}

// スケジューラー側で配送済みの発火イベントを再配送しないこと(二重通知防止)。
func TestEventHandlerSkipsDeliveredReminders(t *testing.T) {
	db, _, _, _ := testutil.SetupTestDB(t)
	defer db.Close()

	sender := &fakeSender{}
	handler := newEventHandler(repositories.NewAuditRepository(db), sender)

	require.NoError(t, handler(context.Background(), triggerEvent(t, true)))
	assert.Empty(t, sender.sent, "Already delivered reminders must not be re-sent")
}

// 配送に失敗した発火イベントはフォールバックとして再配送すること。
func TestEventHandlerRedeliversFailedReminders(t *testing.T) {
	db, _, _, _ := testutil.SetupTestDB(t)
	defer db.Close()

	sender := &fakeSender{}
	handler := newEventHandler(repositories.NewAuditRepository(db), sender)

	require.NoError(t, handler(context.Background(), triggerEvent(t, false)))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, 1, sender.sent[0].UserID)
	assert.Equal(t, models.NotificationEmail, sender.sent[0].NotificationType)
	assert.Equal(t, "買い物", sender.sent[0].Title)
}

// 同じイベントが再配信されても一度しか処理しないこと。
func TestEventHandlerSkipsDuplicateEvents(t *testing.T) {
	db, _, _, _ := testutil.SetupTestDB(t)
	defer db.Close()

	sender := &fakeSender{}
	handler := newEventHandler(repositories.NewAuditRepository(db), sender)

	event := triggerEvent(t, false)
	require.NoError(t, handler(context.Background(), event))
	require.NoError(t, handler(context.Background(), event))

	assert.Len(t, sender.sent, 1, "A redelivered event must not trigger a second notification")
}
