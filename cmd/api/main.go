package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"todo-chatbot/backend/internal/dapr"
	"todo-chatbot/backend/internal/database"
	"todo-chatbot/backend/internal/events"
	"todo-chatbot/backend/internal/notify"
	"todo-chatbot/backend/internal/repositories"
	"todo-chatbot/backend/internal/routes"
	"todo-chatbot/backend/internal/scheduler"
)

// newPublisher は環境変数からイベント発行先を選びます。
// KAFKA_BROKERS があればKafkaへ直接、なければDAPR_HTTP_PORTが設定されて
// いればDaprサイドカー経由、どちらもなければログ出力のみで動作します。
func newPublisher() events.Publisher {
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		log.Printf("Publishing events to Kafka brokers: %s", brokers)
		return events.NewKafkaPublisher(strings.Split(brokers, ","))
	}
	if os.Getenv("DAPR_HTTP_PORT") != "" {
		log.Println("Publishing events via Dapr sidecar")
		return dapr.NewClient()
	}
	log.Println("No message broker configured, events will be logged only")
	return events.NewLogPublisher()
}

func main() {
	// .envファイルを読み込み (存在しない場合は環境変数をそのまま使用)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db := database.InitDB()
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	publisher := newPublisher()
	defer publisher.Close()

	hub := notify.NewHub()
	userRepo := repositories.NewUserRepository(db)
	reminderRepo := repositories.NewReminderRepository(db)
	notifier := notify.NewNotifier(userRepo, hub, publisher)

	// リマインダースケジューラーをバックグラウンドで起動
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.New(reminderRepo, notifier, publisher, scheduler.DefaultInterval).Run(ctx)

	r := routes.SetupRouter(db, publisher, hub)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on port %s...", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
