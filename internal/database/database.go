package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// GetDSN は環境変数からMySQL接続文字列 (DSN) を構築します。
// DATABASE_URL が設定されていればそれをそのままDSNとして使います。
func GetDSN() string {
	// main.go で godotenv.Load() が呼び出されるため、ここでは省略
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASS")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	name := os.Getenv("DB_NAME")

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, pass, host, port, name)
}

// InitDB はデータベース接続を初期化します。
func InitDB() *sql.DB {
	dsn := GetDSN()
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("Fatal: Failed to open database connection: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		log.Fatalf("Fatal: Failed to ping database: %v", err)
	}
	log.Println("Successfully connected to MySQL database!")
	return db
}

// Migrate は必要なテーブルを作成します（存在すれば何もしない）。
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(255) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(50) DEFAULT 'user',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id INT AUTO_INCREMENT PRIMARY KEY,
			user_id INT NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			priority VARCHAR(20) NOT NULL DEFAULT 'medium',
			due_date DATETIME NULL,
			tags TEXT,
			recurrence_pattern VARCHAR(20) NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			completed_at DATETIME NULL,
			INDEX idx_tasks_user (user_id),
			INDEX idx_tasks_status (status),
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS reminders (
			id INT AUTO_INCREMENT PRIMARY KEY,
			task_id INT NOT NULL,
			user_id INT NOT NULL,
			notification_type VARCHAR(20) NOT NULL DEFAULT 'in_app',
			remind_at DATETIME NOT NULL,
			title VARCHAR(255),
			message TEXT,
			frequency VARCHAR(20) NOT NULL DEFAULT 'once',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			auto BOOLEAN NOT NULL DEFAULT FALSE,
			last_triggered DATETIME NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_reminders_due (active, remind_at),
			INDEX idx_reminders_task (task_id),
			FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS password_reset_tokens (
			id INT AUTO_INCREMENT PRIMARY KEY,
			user_id INT NOT NULL,
			token VARCHAR(255) NOT NULL UNIQUE,
			expires_at DATETIME NOT NULL,
			used_at DATETIME NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id INT AUTO_INCREMENT PRIMARY KEY,
			event_id VARCHAR(36) NOT NULL UNIQUE,
			event_type VARCHAR(50) NOT NULL,
			task_id INT,
			user_id INT,
			payload TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_audit_user (user_id)
		);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
