package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/acskang/endless-openrouter/config"
	"github.com/acskang/endless-openrouter/controller"
	"github.com/acskang/endless-openrouter/dao"
	"github.com/acskang/endless-openrouter/logic"
	"github.com/acskang/endless-openrouter/middleware"
	"github.com/acskang/endless-openrouter/models"
	"github.com/acskang/endless-openrouter/pkg"
)

func main() {
	// Initialize config
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run main.go <config.yaml>")
	}
	configFile := os.Args[1]
	if err := config.LoadConfig(configFile); err != nil {
		log.Fatalf("Failed to load config from %s: %v", configFile, err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := gorm.Open(postgres.Open(config.GlobalConfig.DSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Question{}, &models.Response{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Fresh epoch every start: outstanding tokens go stale and every user
	// has to log in again.
	sessionEpoch := uuid.New().String()
	logger.Info("session epoch issued", zap.String("epoch", sessionEpoch))

	// Initialize completion client
	completionClient := pkg.NewCompletionClient(pkg.CompletionOptions{
		APIKey:        config.GlobalConfig.Chat.APIKey,
		BaseURL:       config.GlobalConfig.Chat.BaseURL,
		Model:         config.GlobalConfig.Chat.Model,
		SystemPrompt:  config.GlobalConfig.Chat.SystemPrompt,
		MaxTokens:     config.GlobalConfig.Chat.MaxTokens,
		Temperature:   config.GlobalConfig.Chat.Temperature,
		Timeout:       config.GlobalConfig.ChatTimeout(),
		HistoryWindow: config.GlobalConfig.Chat.HistoryWindow,
		MaxTurnChars:  config.GlobalConfig.Chat.MaxMessageLength,
	})

	// Initialize DAOs
	userDAO := dao.NewUserDAO(db)
	questionDAO := dao.NewQuestionDAO(db)
	responseDAO := dao.NewResponseDAO(db)

	// Initialize Logics
	userLogic := logic.NewUserLogic(userDAO, sessionEpoch, logger)
	chatLogic := logic.NewChatLogic(userDAO, questionDAO, responseDAO, completionClient,
		config.GlobalConfig.Chat.MaxMessageLength, logger)

	// Initialize Controllers
	hub := controller.NewHub()
	userCtrl := controller.NewUserController(userLogic)
	chatCtrl := controller.NewChatController(chatLogic)
	wsCtrl := controller.NewWSController(chatLogic, hub, sessionEpoch,
		config.GlobalConfig.Chat.MaxMessageLength, logger)

	// Setup Gin router
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     config.GlobalConfig.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	auth := middleware.Auth(sessionEpoch)
	r.POST("/user/signup", userCtrl.Signup)
	r.POST("/user/login", userCtrl.Login)
	r.GET("/user", auth, userCtrl.GetUser)
	r.POST("/user/quota/reset", auth, userCtrl.ResetQuota)
	r.POST("/chat", auth, chatCtrl.Chat)
	r.GET("/chat/history", auth, chatCtrl.ChatHistory)
	r.POST("/responses/:id/select", auth, chatCtrl.SelectResponse)
	r.POST("/responses/:id/rating", auth, chatCtrl.RateResponse)
	r.GET("/ws/chat", wsCtrl.HandleChat)

	// Run server
	if err := r.Run(fmt.Sprintf(":%d", config.GlobalConfig.Server.Port)); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
