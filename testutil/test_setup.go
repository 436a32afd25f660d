package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"todo-chatbot/backend/internal/database"
	"todo-chatbot/backend/internal/events"
	"todo-chatbot/backend/internal/models"
	"todo-chatbot/backend/internal/notify"
	"todo-chatbot/backend/internal/repositories"
	"todo-chatbot/backend/internal/routes"

	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB はテスト用のデータベース接続を確立し、テーブルを作成し、テストデータを投入します。
// TEST_DB_HOST が未設定の環境ではテストをスキップします。
func SetupTestDB(t *testing.T) (*sql.DB, *gin.Engine, *repositories.TaskRepository, *repositories.UserRepository) {
	_ = godotenv.Load("../../../.env")

	dbUser := os.Getenv("TEST_DB_USER")
	dbPass := os.Getenv("TEST_DB_PASS")
	dbHost := os.Getenv("TEST_DB_HOST")
	dbPort := os.Getenv("TEST_DB_PORT")
	dbName := os.Getenv("TEST_DB_NAME")

	if dbHost == "" {
		t.Skip("TEST_DB_HOST not set, skipping database test")
	}

	// In Docker container, use "db" as hostname instead of 127.0.0.1
	if dbHost == "127.0.0.1" {
		dbHost = "db"
	}

	if os.Getenv("JWT_SECRET") == "" {
		os.Setenv("JWT_SECRET", "test-secret")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", dbUser, dbPass, dbHost, dbPort, dbName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("Failed to open database connection: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// 既存のデータを削除 (テストのたびにクリーンな状態にするため)
	// Foreign Key Constraint があるため外部キーチェックを一時的に無効化
	if _, err := db.Exec("SET FOREIGN_KEY_CHECKS=0;"); err != nil {
		log.Printf("Failed to disable foreign key checks: %v", err)
	}
	for _, table := range []string{"audit_events", "reminders", "tasks", "password_reset_tokens", "users"} {
		if _, err := db.Exec("TRUNCATE TABLE " + table); err != nil {
			log.Printf("Failed to truncate %s table (it might not exist yet): %v", table, err)
		}
	}
	if _, err := db.Exec("SET FOREIGN_KEY_CHECKS=1;"); err != nil {
		log.Printf("Failed to enable foreign key checks: %v", err)
	}

	// テストユーザーの挿入
	userRepo := repositories.NewUserRepository(db)
	hashedPasswordUser, _ := repositories.HashPassword("password123")
	normalUser := models.User{
		Username:     "normal_user",
		Email:        "normal_user@example.com",
		PasswordHash: hashedPasswordUser,
		Role:         "user",
	}
	if _, err := userRepo.Create(&normalUser); err != nil {
		log.Printf("Failed to create normal_user (might exist, or duplicate entry): %v", err)
	}

	hashedPasswordAdmin, _ := repositories.HashPassword("adminpass")
	adminUser := models.User{
		Username:     "admin_user",
		Email:        "admin@example.com",
		PasswordHash: hashedPasswordAdmin,
		Role:         "admin",
	}
	if _, err := userRepo.Create(&adminUser); err != nil {
		log.Printf("Failed to create admin_user (might exist, or duplicate entry): %v", err)
	}

	log.Println("Successfully set up test database!")

	// Ginルーターのセットアップ (イベントはログ出力のみ)
	gin.SetMode(gin.TestMode)
	router := routes.SetupRouter(db, events.NewLogPublisher(), notify.NewHub())
	taskRepo := repositories.NewTaskRepository(db)

	return db, router, taskRepo, userRepo
}

func CreateTestUser(t *testing.T, userRepo *repositories.UserRepository, username, email, password, role string) *models.User {
	hashedPassword, err := repositories.HashPassword(password)
	require.NoError(t, err)

	newUser := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         role,
	}

	createdUser, err := userRepo.Create(&newUser)
	require.NoError(t, err)
	require.NotNil(t, createdUser)
	require.NotEqual(t, 0, createdUser.ID)
	return createdUser
}

// CreateTestTask はテスト用のタスクをAPI経由で作成します。
func CreateTestTask(t *testing.T, router *gin.Engine, token string, payload map[string]interface{}) *models.Task {
	body, _ := json.Marshal(payload)

	req, _ := http.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBuffer(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, "タスク作成に失敗しました: %s", resp.Body.String())

	var createdTask models.Task
	err := json.Unmarshal(resp.Body.Bytes(), &createdTask)
	require.NoError(t, err)
	return &createdTask
}

func LoginAndGetToken(t *testing.T, router *gin.Engine, email, password string) (string, error) {
	loginPayload := map[string]string{
		"email":    email,
		"password": password,
	}
	body, _ := json.Marshal(loginPayload)

	req, _ := http.NewRequest(http.MethodPost, "/api/login", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d: %s", resp.Code, resp.Body.String())
	}

	var loginRes map[string]interface{}
	err := json.Unmarshal(resp.Body.Bytes(), &loginRes)
	if err != nil {
		return "", fmt.Errorf("failed to unmarshal login response: %w", err)
	}

	token, ok := loginRes["token"].(string)
	if !ok {
		return "", errors.New("token not found or not a string in login response")
	}
	return token, nil
}
