package models

import "time"

// 通知チャネル。
const (
	NotificationEmail = "email"
	NotificationSMS   = "sms"
	NotificationPush  = "push"
	NotificationInApp = "in_app"
)

// リマインダーの繰り返し頻度。
const (
	FrequencyOnce    = "once"
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Reminder はリマインダーのデータベース構造体を表します。
// RemindAt は「次に発火する時刻」を常に指します。繰り返しリマインダーは
// 発火のたびに RemindAt が次回分へ進められます。
type Reminder struct {
	ID     int `json:"id,omitempty"` // 主キー
	TaskID int `json:"task_id" binding:"required"`
	UserID int `json:"user_id"`

	// NotificationType: email / sms / push / in_app
	NotificationType string `json:"notification_type"`

	// RemindAt: 次回発火時刻
	RemindAt time.Time `json:"remind_at" binding:"required"`

	Title   string `json:"title"`
	Message string `json:"message"`

	// Frequency: once / daily / weekly / monthly
	Frequency string `json:"frequency"`

	// Active: falseのリマインダーは発火しない（キャンセル済み）
	Active bool `json:"active"`

	// Auto: タスクの期日から自動生成されたリマインダー。
	// 期日が変更されると作り直されます。
	Auto bool `json:"auto,omitempty"`

	LastTriggered *time.Time `json:"last_triggered,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ValidNotificationType は通知チャネルが定義済みのものか確認します。
func ValidNotificationType(t string) bool {
	switch t {
	case NotificationEmail, NotificationSMS, NotificationPush, NotificationInApp:
		return true
	}
	return false
}

// ValidFrequency は頻度が定義済みのものか確認します。
func ValidFrequency(f string) bool {
	switch f {
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// Normalize はゼロ値のフィールドにデフォルトを設定します。
// 通知チャネル未指定は in_app、頻度未指定は once。
func (r *Reminder) Normalize() {
	if r.NotificationType == "" {
		r.NotificationType = NotificationInApp
	}
	if r.Frequency == "" {
		r.Frequency = FrequencyOnce
	}
}

// ReminderStats はリマインダーの集計を表します。
type ReminderStats struct {
	Total       int            `json:"total"`
	Active      int            `json:"active"`
	Inactive    int            `json:"inactive"`
	ByFrequency map[string]int `json:"by_frequency"`
}

// ReminderTrigger は reminder_triggered イベントのペイロードです。
// Delivered はスケジューラー側で通知配送に成功したかを示します。
// コンシューマーは true のイベントを再配送してはいけません(二重送信になる)。
type ReminderTrigger struct {
	Reminder  Reminder `json:"reminder"`
	Delivered bool     `json:"delivered"`
}

// Notification は送信済み通知の記録を表します。
type Notification struct {
	ID               string    `json:"id"` // UUID
	UserID           int       `json:"user_id"`
	NotificationType string    `json:"notification_type"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	SentAt           time.Time `json:"sent_at"`
	Delivered        bool      `json:"delivered"`
}
