package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/support-chat/backend/api/handlers"
	"github.com/support-chat/backend/internal/chat"
	"github.com/support-chat/backend/internal/db"
	"github.com/support-chat/backend/internal/history"
	"github.com/support-chat/backend/internal/registry"
	"github.com/support-chat/backend/internal/ws"
)

func main() {
	// Optional .env file; real environment variables win.
	godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		logger.SetLevel(level)
	}

	port := getEnv("PORT", "8080")
	dbPath := getEnv("DB_PATH", "data/chat.db")
	messageRate := getEnvFloat("CHAT_MESSAGE_RATE", 5)
	messageBurst := getEnvInt("CHAT_MESSAGE_BURST", 10)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}

	// Initialize database
	database, err := db.InitDB(dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.CloseDB()

	// History store and session registry
	store := history.NewSQLiteStore(database, logger)
	reg := registry.New(store, logger)

	// Chat core over the WebSocket gateway
	gateway := ws.NewGateway(logger)
	coordinator := chat.NewCoordinator(reg, gateway, logger)
	router := chat.NewRouter(reg, gateway, logger)
	wsHandler := ws.NewHandler(gateway, coordinator, router, ws.Config{
		MessageRate:  messageRate,
		MessageBurst: messageBurst,
	}, logger)

	// Handlers
	chatHandler := handlers.NewChatHandler(wsHandler)
	sessionHandler := handlers.NewSessionHandler(reg)
	historyHandler := handlers.NewHistoryHandler(store)

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for development
	r.Use(corsMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		chatHandler.RegisterRoutes(api)
		sessionHandler.RegisterRoutes(api)
		historyHandler.RegisterRoutes(api)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("Shutting down server...")
		reg.EndAll()
		gateway.Close()
		db.CloseDB()
		os.Exit(0)
	}()

	// Start server
	logger.WithField("port", port).Info("Starting server")
	if err := r.Run(":" + port); err != nil {
		logger.WithError(err).Fatal("Failed to start server")
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
