package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"todo-chatbot/backend/internal/models"
)

// ErrReminderNotFound はリマインダーが見つからない場合のエラーです。
var ErrReminderNotFound = errors.New("reminder not found")

// ReminderRepository はリマインダーのデータベース操作を行うための構造体です。
type ReminderRepository struct {
	DB *sql.DB
}

// NewReminderRepository は新しいReminderRepositoryインスタンスを作成します。
func NewReminderRepository(db *sql.DB) *ReminderRepository {
	return &ReminderRepository{DB: db}
}

const reminderColumns = "id, task_id, user_id, notification_type, remind_at, title, message, frequency, active, auto, last_triggered, created_at"

func scanReminder(row interface{ Scan(dest ...any) error }) (*models.Reminder, error) {
	var rem models.Reminder
	var title, message sql.NullString
	var lastTriggered sql.NullTime

	err := row.Scan(
		&rem.ID, &rem.TaskID, &rem.UserID, &rem.NotificationType, &rem.RemindAt,
		&title, &message, &rem.Frequency, &rem.Active, &rem.Auto, &lastTriggered, &rem.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rem.Title = title.String
	rem.Message = message.String
	if lastTriggered.Valid {
		rem.LastTriggered = &lastTriggered.Time
	}
	return &rem, nil
}

// Create は新しいリマインダーをデータベースに挿入します。
func (r *ReminderRepository) Create(rem *models.Reminder) (*models.Reminder, error) {
	query := `INSERT INTO reminders (task_id, user_id, notification_type, remind_at, title, message, frequency, active, auto)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.DB.Exec(query, rem.TaskID, rem.UserID, rem.NotificationType, rem.RemindAt, rem.Title, rem.Message, rem.Frequency, rem.Active, rem.Auto)
	if err != nil {
		log.Printf("Failed to insert reminder: %v", err)
		return nil, fmt.Errorf("could not insert reminder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("could not get last insert ID: %w", err)
	}
	rem.ID = int(id)

	return r.FindByID(rem.ID)
}

// FindByID は指定されたIDのリマインダーを取得します。
func (r *ReminderRepository) FindByID(id int) (*models.Reminder, error) {
	rem, err := scanReminder(r.DB.QueryRow("SELECT "+reminderColumns+" FROM reminders WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReminderNotFound
		}
		log.Printf("Failed to query reminder by ID: %v", err)
		return nil, fmt.Errorf("could not query reminder: %w", err)
	}
	return rem, nil
}

func (r *ReminderRepository) queryReminders(query string, args ...any) ([]*models.Reminder, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		log.Printf("Failed to query reminders: %v", err)
		return nil, fmt.Errorf("could not query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan reminder: %w", err)
		}
		reminders = append(reminders, rem)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminders: %w", err)
	}
	return reminders, nil
}

// FindByUserID は指定ユーザーのリマインダーを取得します。
func (r *ReminderRepository) FindByUserID(userID int) ([]*models.Reminder, error) {
	return r.queryReminders("SELECT "+reminderColumns+" FROM reminders WHERE user_id = ? ORDER BY remind_at", userID)
}

// FindByTaskID は指定タスクのリマインダーを取得します。
func (r *ReminderRepository) FindByTaskID(taskID int) ([]*models.Reminder, error) {
	return r.queryReminders("SELECT "+reminderColumns+" FROM reminders WHERE task_id = ? ORDER BY remind_at", taskID)
}

// FindDue は発火時刻を過ぎたアクティブなリマインダーを取得します。
// スケジューラのポーリングループから呼ばれます。
func (r *ReminderRepository) FindDue(now time.Time) ([]*models.Reminder, error) {
	return r.queryReminders("SELECT "+reminderColumns+" FROM reminders WHERE active = TRUE AND remind_at <= ? ORDER BY remind_at", now)
}

// FindUpcoming は指定時間内に発火予定のアクティブなリマインダーを取得します。
func (r *ReminderRepository) FindUpcoming(userID int, now time.Time, within time.Duration) ([]*models.Reminder, error) {
	return r.queryReminders(
		"SELECT "+reminderColumns+" FROM reminders WHERE user_id = ? AND active = TRUE AND remind_at > ? AND remind_at <= ? ORDER BY remind_at",
		userID, now, now.Add(within),
	)
}

// Deactivate はリマインダーを非アクティブにします（キャンセルまたは発火済み）。
func (r *ReminderRepository) Deactivate(id int) error {
	result, err := r.DB.Exec("UPDATE reminders SET active = FALSE WHERE id = ?", id)
	if err != nil {
		log.Printf("Failed to deactivate reminder: %v", err)
		return fmt.Errorf("could not deactivate reminder: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if n == 0 {
		return ErrReminderNotFound
	}
	return nil
}

// DeactivateByTaskID はタスクに紐づくすべてのリマインダーを非アクティブにし、件数を返します。
func (r *ReminderRepository) DeactivateByTaskID(taskID int) (int, error) {
	result, err := r.DB.Exec("UPDATE reminders SET active = FALSE WHERE task_id = ? AND active = TRUE", taskID)
	if err != nil {
		return 0, fmt.Errorf("could not deactivate reminders: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("could not get rows affected: %w", err)
	}
	return int(n), nil
}

// DeactivateAutoByTaskID はタスクの自動生成リマインダーのみ非アクティブにします。
// ユーザーが手動で作成したリマインダーには触れません。
func (r *ReminderRepository) DeactivateAutoByTaskID(taskID int) (int, error) {
	result, err := r.DB.Exec("UPDATE reminders SET active = FALSE WHERE task_id = ? AND auto = TRUE AND active = TRUE", taskID)
	if err != nil {
		return 0, fmt.Errorf("could not deactivate reminders: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("could not get rows affected: %w", err)
	}
	return int(n), nil
}

// Reschedule は繰り返しリマインダーの次回発火時刻と最終発火時刻を更新します。
func (r *ReminderRepository) Reschedule(id int, next, triggered time.Time) error {
	result, err := r.DB.Exec("UPDATE reminders SET remind_at = ?, last_triggered = ? WHERE id = ?", next, triggered, id)
	if err != nil {
		log.Printf("Failed to reschedule reminder: %v", err)
		return fmt.Errorf("could not reschedule reminder: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if n == 0 {
		return ErrReminderNotFound
	}
	return nil
}

// MarkTriggered は単発リマインダーを発火済みとして非アクティブにします。
func (r *ReminderRepository) MarkTriggered(id int, triggered time.Time) error {
	result, err := r.DB.Exec("UPDATE reminders SET active = FALSE, last_triggered = ? WHERE id = ?", triggered, id)
	if err != nil {
		log.Printf("Failed to mark reminder triggered: %v", err)
		return fmt.Errorf("could not mark reminder triggered: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if n == 0 {
		return ErrReminderNotFound
	}
	return nil
}

// CountStats はユーザーのリマインダーを頻度別に集計します。
func (r *ReminderRepository) CountStats(userID int) (*models.ReminderStats, error) {
	rows, err := r.DB.Query("SELECT frequency, active, COUNT(*) FROM reminders WHERE user_id = ? GROUP BY frequency, active", userID)
	if err != nil {
		return nil, fmt.Errorf("could not count reminders: %w", err)
	}
	defer rows.Close()

	stats := &models.ReminderStats{ByFrequency: map[string]int{}}
	for rows.Next() {
		var frequency string
		var active bool
		var count int
		if err := rows.Scan(&frequency, &active, &count); err != nil {
			return nil, fmt.Errorf("could not scan reminder count: %w", err)
		}
		stats.Total += count
		if active {
			stats.Active += count
		} else {
			stats.Inactive += count
		}
		stats.ByFrequency[frequency] += count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminder counts: %w", err)
	}
	return stats, nil
}
