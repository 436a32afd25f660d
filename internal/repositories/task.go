// Package repositories はデータベース操作を行うリポジトリを提供します。
package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"todo-chatbot/backend/internal/models"
)

// ErrTaskNotFound はタスクが見つからない場合のエラーです。
var ErrTaskNotFound = errors.New("task not found")

// TaskRepository はタスクのデータベース操作を行うための構造体です。
type TaskRepository struct {
	DB *sql.DB
}

// NewTaskRepository は新しいTaskRepositoryインスタンスを作成します。
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

const taskColumns = "id, user_id, title, description, status, priority, due_date, tags, recurrence_pattern, created_at, updated_at, completed_at"

// marshalTags はタグのスライスをDB保存用のJSON文字列に変換します。
func marshalTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("could not marshal tags: %w", err)
	}
	return string(b), nil
}

// scanTask は1行をmodels.Taskへスキャンします。
func scanTask(row interface{ Scan(dest ...any) error }) (*models.Task, error) {
	var t models.Task
	var description sql.NullString
	var dueDate, completedAt sql.NullTime
	var tagsJSON sql.NullString

	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &description, &t.Status, &t.Priority,
		&dueDate, &tagsJSON, &t.RecurrencePattern, &t.CreatedAt, &t.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &t.Tags); err != nil {
			log.Printf("Failed to unmarshal tags for task %d: %v", t.ID, err)
		}
	}
	return &t, nil
}

// Create は新しいタスクをデータベースに挿入します。
func (r *TaskRepository) Create(t *models.Task) (*models.Task, error) {
	tags, err := marshalTags(t.Tags)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO tasks (user_id, title, description, status, priority, due_date, tags, recurrence_pattern)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.DB.Exec(query, t.UserID, t.Title, t.Description, t.Status, t.Priority, t.DueDate, tags, t.RecurrencePattern)
	if err != nil {
		log.Printf("Failed to insert task: %v", err)
		return nil, fmt.Errorf("could not insert task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("could not get last insert ID: %w", err)
	}
	t.ID = int(id)

	// created_at/updated_at はDB側で設定されるため、ここで取り直す
	return r.FindByID(t.ID)
}

// FindByID は指定されたIDのタスクをデータベースから取得します。
func (r *TaskRepository) FindByID(id int) (*models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE id = ?"
	t, err := scanTask(r.DB.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		log.Printf("Failed to query task by ID: %v", err)
		return nil, fmt.Errorf("could not query task: %w", err)
	}
	return t, nil
}

// queryTasks はクエリを実行し、複数タスクをスキャンします。
func (r *TaskRepository) queryTasks(query string, args ...any) ([]*models.Task, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		log.Printf("Failed to query tasks: %v", err)
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// FindAll はすべてのタスクを取得します（admin用）。
func (r *TaskRepository) FindAll() ([]*models.Task, error) {
	return r.queryTasks("SELECT " + taskColumns + " FROM tasks ORDER BY created_at DESC")
}

// FindByUserID は指定ユーザーのタスクを取得します。statusが空でなければ絞り込みます。
func (r *TaskRepository) FindByUserID(userID int, status string) ([]*models.Task, error) {
	if status != "" {
		return r.queryTasks("SELECT "+taskColumns+" FROM tasks WHERE user_id = ? AND status = ? ORDER BY created_at DESC", userID, status)
	}
	return r.queryTasks("SELECT "+taskColumns+" FROM tasks WHERE user_id = ? ORDER BY created_at DESC", userID)
}

// Update は指定されたIDのタスクを更新します。
func (r *TaskRepository) Update(id int, t *models.Task) (*models.Task, error) {
	tags, err := marshalTags(t.Tags)
	if err != nil {
		return nil, err
	}

	query := `UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, due_date = ?, tags = ?, recurrence_pattern = ?, completed_at = ?
		WHERE id = ?`
	result, err := r.DB.Exec(query, t.Title, t.Description, t.Status, t.Priority, t.DueDate, tags, t.RecurrencePattern, t.CompletedAt, id)
	if err != nil {
		log.Printf("Failed to update task: %v", err)
		return nil, fmt.Errorf("could not update task: %w", err)
	}

	if _, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("could not get rows affected: %w", err)
	}

	// 変更なしの更新でも RowsAffected は0になるため、存在確認はFindByIDに任せる
	return r.FindByID(id)
}

// Complete は指定されたIDのタスクを完了状態にします。
func (r *TaskRepository) Complete(id int, completedAt time.Time) (*models.Task, error) {
	query := "UPDATE tasks SET status = ?, completed_at = ? WHERE id = ?"
	result, err := r.DB.Exec(query, models.TaskStatusCompleted, completedAt, id)
	if err != nil {
		log.Printf("Failed to complete task: %v", err)
		return nil, fmt.Errorf("could not complete task: %w", err)
	}
	if _, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("could not get rows affected: %w", err)
	}
	return r.FindByID(id)
}

// Delete は指定されたIDのタスクを削除します。
func (r *TaskRepository) Delete(id int) error {
	result, err := r.DB.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		log.Printf("Failed to delete task: %v", err)
		return fmt.Errorf("could not delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Search はタイトルまたは説明にクエリ文字列を含むユーザーのタスクを検索します。
func (r *TaskRepository) Search(userID int, q string) ([]*models.Task, error) {
	pattern := "%" + q + "%"
	return r.queryTasks(
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? AND (title LIKE ? OR description LIKE ?) ORDER BY created_at DESC",
		userID, pattern, pattern,
	)
}

// FindOverdue は期限を過ぎた未完了タスクを取得します。
func (r *TaskRepository) FindOverdue(userID int, now time.Time) ([]*models.Task, error) {
	return r.queryTasks(
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? AND due_date IS NOT NULL AND due_date < ? AND status NOT IN (?, ?) ORDER BY due_date",
		userID, now, models.TaskStatusCompleted, models.TaskStatusCancelled,
	)
}

// CountByStatus はユーザーのタスクをステータス別に集計します。
func (r *TaskRepository) CountByStatus(userID int) (*models.TaskStats, error) {
	rows, err := r.DB.Query("SELECT status, COUNT(*) FROM tasks WHERE user_id = ? GROUP BY status", userID)
	if err != nil {
		return nil, fmt.Errorf("could not count tasks: %w", err)
	}
	defer rows.Close()

	stats := &models.TaskStats{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("could not scan task count: %w", err)
		}
		stats.Total += count
		switch status {
		case models.TaskStatusPending:
			stats.Pending = count
		case models.TaskStatusInProgress:
			stats.InProgress = count
		case models.TaskStatusCompleted:
			stats.Completed = count
		case models.TaskStatusCancelled:
			stats.Cancelled = count
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task counts: %w", err)
	}
	return stats, nil
}
