package repositories

import (
	"database/sql"
	"errors"
	"log"

	"todo-chatbot/backend/internal/models"
)

var ErrResetTokenNotFound = errors.New("reset token not found")

type ResetTokenRepository interface {
	Save(token *models.PasswordResetToken) error
	FindByToken(token string) (*models.PasswordResetToken, error)
	MarkUsed(id uint) error
	CleanupExpired() error
}

type MySQLResetTokenRepo struct {
	DB *sql.DB
}

func NewMySQLResetTokenRepo(db *sql.DB) *MySQLResetTokenRepo {
	return &MySQLResetTokenRepo{DB: db}
}

func (r *MySQLResetTokenRepo) Save(t *models.PasswordResetToken) error {
	_, err := r.DB.Exec(
		"INSERT INTO password_reset_tokens (user_id, token, expires_at) VALUES (?, ?, ?)",
		t.UserID, t.Token, t.ExpiresAt,
	)
	return err
}

func (r *MySQLResetTokenRepo) FindByToken(token string) (*models.PasswordResetToken, error) {
	query := "SELECT id, user_id, token, expires_at, used_at FROM password_reset_tokens WHERE token = ?"
	row := r.DB.QueryRow(query, token)

	var pr models.PasswordResetToken
	var usedAt sql.NullTime

	err := row.Scan(&pr.ID, &pr.UserID, &pr.Token, &pr.ExpiresAt, &usedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrResetTokenNotFound
		}
		log.Printf("Failed to scan reset token: %v", err)
		return nil, err
	}

	if usedAt.Valid {
		pr.UsedAt = &usedAt.Time
	}
	return &pr, nil
}

func (r *MySQLResetTokenRepo) CleanupExpired() error {
	_, err := r.DB.Exec(`
		DELETE FROM password_reset_tokens
		WHERE used_at IS NOT NULL
		   OR expires_at < NOW()
	`)
	if err != nil {
		log.Println("[CleanupExpired] ERROR:", err)
		return err
	}
	return nil
}

func (r *MySQLResetTokenRepo) MarkUsed(id uint) error {
	_, err := r.DB.Exec(
		"UPDATE password_reset_tokens SET used_at = NOW() WHERE id = ?",
		id,
	)
	return err
}
