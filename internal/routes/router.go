// Package routesはroutingを行います。
package routes

import (
	"database/sql"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"todo-chatbot/backend/internal/events"
	"todo-chatbot/backend/internal/handlers"
	"todo-chatbot/backend/internal/notify"
	"todo-chatbot/backend/internal/repositories"
	"todo-chatbot/backend/internal/services"
)

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(db *sql.DB, publisher events.Publisher, hub *notify.Hub) *gin.Engine {
	r := gin.Default()

	// CORS対策
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"http://localhost:3000"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = true
	r.Use(cors.New(config))

	// リポジトリ
	taskRepo := repositories.NewTaskRepository(db)
	reminderRepo := repositories.NewReminderRepository(db)
	userRepo := repositories.NewUserRepository(db)
	resetRepo := repositories.NewMySQLResetTokenRepo(db)
	auditRepo := repositories.NewAuditRepository(db)

	// サービス
	taskService := services.NewTaskService(taskRepo, reminderRepo, publisher)
	reminderService := services.NewReminderService(reminderRepo, taskRepo, publisher)
	chatService := services.NewChatService(taskService)
	userService := services.NewUserService(userRepo, resetRepo)
	jwtService := services.NewJWTService()

	// ハンドラー
	userHandler := handlers.NewUserHandler(userService, jwtService)
	taskHandler := handlers.NewTaskHandler(taskService)
	reminderHandler := handlers.NewReminderHandler(reminderService)
	chatHandler := handlers.NewChatHandler(chatService)
	wsHandler := handlers.NewWSHandler(hub)
	auditHandler := handlers.NewAuditHandler(auditRepo)

	// ルーティング
	r.GET("/api/hello", HelloHandler)
	r.GET("/api/health", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "Database connection failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/api/dbcheck", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database connection failed", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Database connection is healthy"})
	})
	r.POST("/api/register", userHandler.RegisterHandler)
	r.POST("/api/login", userHandler.LoginHandler)
	r.POST("/api/forgot-password", userHandler.ForgotPasswordHandler)
	r.POST("/api/reset-password/:token", userHandler.ResetPasswordHandler)

	authorized := r.Group("/")
	authorized.Use(AuthMiddleware(jwtService))
	{
		authorized.GET("/api/tasks", taskHandler.GetTasksHandler)
		authorized.GET("/api/tasks/overdue", taskHandler.GetOverdueTasksHandler)
		authorized.GET("/api/tasks/stats", taskHandler.GetTaskStatsHandler)
		authorized.GET("/api/tasks/:id", taskHandler.GetTaskByIDHandler)
		authorized.POST("/api/tasks", taskHandler.CreateTaskHandler)
		authorized.PUT("/api/tasks/:id", taskHandler.UpdateTaskHandler)
		authorized.POST("/api/tasks/:id/complete", taskHandler.CompleteTaskHandler)
		authorized.DELETE("/api/tasks/:id", taskHandler.DeleteTaskHandler)
		authorized.GET("/api/search", taskHandler.SearchTasksHandler)

		authorized.GET("/api/reminders", reminderHandler.GetRemindersHandler)
		authorized.GET("/api/reminders/stats", reminderHandler.GetReminderStatsHandler)
		authorized.POST("/api/reminders", reminderHandler.CreateReminderHandler)
		authorized.DELETE("/api/reminders/:id", reminderHandler.CancelReminderHandler)

		authorized.GET("/api/audit", auditHandler.GetAuditHandler)

		authorized.POST("/api/chat", chatHandler.ChatHandler)
		authorized.POST("/api/natural-language", chatHandler.NaturalLanguageHandler)
		authorized.GET("/api/ws", wsHandler.ConnectHandler)

		authorized.POST("/api/change-password", userHandler.ChangePasswordHandler)
		authorized.GET("/api/protected", userHandler.ProtectedHandler)
	}

	return r
}

func HelloHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello from Todo Chatbot Backend!"})
}
