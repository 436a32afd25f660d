package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-chatbot/backend/internal/events"
	"todo-chatbot/backend/internal/models"
)

type fakeStore struct {
	due          []*models.Reminder
	triggered    []int
	rescheduled  map[int]time.Time
	findDueError error
}

func newFakeStore(due ...*models.Reminder) *fakeStore {
	return &fakeStore{due: due, rescheduled: map[int]time.Time{}}
}

func (f *fakeStore) FindDue(now time.Time) ([]*models.Reminder, error) {
	if f.findDueError != nil {
		return nil, f.findDueError
	}
	return f.due, nil
}

func (f *fakeStore) MarkTriggered(id int, triggered time.Time) error {
	f.triggered = append(f.triggered, id)
	return nil
}

func (f *fakeStore) Reschedule(id int, next, triggered time.Time) error {
	f.rescheduled[id] = next
	return nil
}

type fakeSender struct {
	sent    []*models.Notification
	sendErr error
}

func (f *fakeSender) Send(_ context.Context, userID int, notificationType, title, message string) (*models.Notification, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
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

type fakePublisher struct {
	published []*models.Event
}

func (f *fakePublisher) Publish(_ context.Context, event *models.Event) error {
	f.published = append(f.published, event)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func TestTickTriggersOnceReminder(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	reminder := &models.Reminder{
		ID:               1,
		TaskID:           10,
		UserID:           3,
		NotificationType: models.NotificationInApp,
		RemindAt:         now.Add(-time.Minute),
		Title:            "買い物",
		Message:          "牛乳を買う",
		Frequency:        models.FrequencyOnce,
		Active:           true,
	}

	store := newFakeStore(reminder)
	sender := &fakeSender{}
	s := New(store, sender, events.NewLogPublisher(), time.Second)

	s.tick(context.Background(), now)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, 3, sender.sent[0].UserID)
	assert.Equal(t, "買い物", sender.sent[0].Title)

	assert.Equal(t, []int{1}, store.triggered)
	assert.Empty(t, store.rescheduled)
}

func TestTickReschedulesDailyReminder(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	remindAt := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	reminder := &models.Reminder{
		ID:               2,
		TaskID:           10,
		UserID:           3,
		NotificationType: models.NotificationInApp,
		RemindAt:         remindAt,
		Title:            "朝会",
		Frequency:        models.FrequencyDaily,
		Active:           true,
	}

	store := newFakeStore(reminder)
	sender := &fakeSender{}
	s := New(store, sender, events.NewLogPublisher(), time.Second)

	s.tick(context.Background(), now)

	assert.Empty(t, store.triggered)
	assert.Equal(t, remindAt.AddDate(0, 0, 1), store.rescheduled[2])
}

// 長時間停止していた場合、過去の発火予定はまとめて飛ばされること。
func TestTickSkipsMissedOccurrences(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	remindAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) // 5日前
	reminder := &models.Reminder{
		ID:               3,
		TaskID:           10,
		UserID:           3,
		NotificationType: models.NotificationInApp,
		RemindAt:         remindAt,
		Title:            "朝会",
		Frequency:        models.FrequencyDaily,
		Active:           true,
	}

	store := newFakeStore(reminder)
	sender := &fakeSender{}
	s := New(store, sender, events.NewLogPublisher(), time.Second)

	s.tick(context.Background(), now)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC), store.rescheduled[3])
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := newFakeStore()
	s := New(store, &fakeSender{}, events.NewLogPublisher(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}

// 配送に成功した発火イベントは delivered = true を載せること。
// コンシューマーはこのフラグで再配送をスキップします。
func TestTriggerMarksEventDelivered(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	reminder := &models.Reminder{
		ID:               4,
		TaskID:           10,
		UserID:           3,
		NotificationType: models.NotificationEmail,
		RemindAt:         now.Add(-time.Minute),
		Title:            "買い物",
		Frequency:        models.FrequencyOnce,
		Active:           true,
	}

	store := newFakeStore(reminder)
	sender := &fakeSender{}
	pub := &fakePublisher{}
	s := New(store, sender, pub, time.Second)

	s.tick(context.Background(), now)

	require.Len(t, pub.published, 1)
	event := pub.published[0]
	assert.Equal(t, models.EventReminderTriggered, event.EventType)

	var trigger models.ReminderTrigger
	require.NoError(t, event.DecodeData(&trigger))
	assert.True(t, trigger.Delivered)
	assert.Equal(t, 4, trigger.Reminder.ID)
}

// 配送に失敗した場合は delivered = false で発行され、
// コンシューマー側のフォールバック配送に委ねられること。
func TestTriggerMarksEventUndeliveredOnSendFailure(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	reminder := &models.Reminder{
		ID:               5,
		TaskID:           10,
		UserID:           3,
		NotificationType: models.NotificationEmail,
		RemindAt:         now.Add(-time.Minute),
		Title:            "買い物",
		Frequency:        models.FrequencyOnce,
		Active:           true,
	}

	store := newFakeStore(reminder)
	sender := &fakeSender{sendErr: errors.New("smtp unreachable")}
	pub := &fakePublisher{}
	s := New(store, sender, pub, time.Second)

	s.tick(context.Background(), now)

	require.Len(t, pub.published, 1)
	var trigger models.ReminderTrigger
	require.NoError(t, pub.published[0].DecodeData(&trigger))
	assert.False(t, trigger.Delivered)
}
