package repositories

import (
	"database/sql"

	"todo-chatbot/backend/internal/models"
)

// AuditRepository は消費したイベントの監査ログを管理します。
// event_id の UNIQUE 制約で同一イベントの二重記録を防ぎます。
type AuditRepository struct {
	DB *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{DB: db}
}

// Record はイベントを監査ログに記録します。
// すでに同じ event_id が記録済みの場合は false を返します(再配信の検出)。
func (r *AuditRepository) Record(e *models.Event) (bool, error) {
	result, err := r.DB.Exec(
		"INSERT IGNORE INTO audit_events (event_id, event_type, task_id, user_id, payload) VALUES (?, ?, ?, ?, ?)",
		e.EventID, e.EventType, e.TaskID, e.UserID, string(e.Data),
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ListByUser はユーザーの監査ログを新しい順に取得します。
func (r *AuditRepository) ListByUser(userID int, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.DB.Query(
		"SELECT id, event_id, event_type, task_id, user_id, payload, created_at FROM audit_events WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var entry models.AuditEntry
		var taskID, uid sql.NullInt64
		var payload sql.NullString
		if err := rows.Scan(&entry.ID, &entry.EventID, &entry.EventType, &taskID, &uid, &payload, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.TaskID = int(taskID.Int64)
		entry.UserID = int(uid.Int64)
		entry.Payload = payload.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
