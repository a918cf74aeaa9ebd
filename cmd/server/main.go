package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/kurdai/kurdai-server/adapters/gemini"
	adaptermongo "github.com/kurdai/kurdai-server/adapters/mongo"
	"github.com/kurdai/kurdai-server/internal/api"
	"github.com/kurdai/kurdai-server/internal/auth"
	"github.com/kurdai/kurdai-server/internal/config"
	"github.com/kurdai/kurdai-server/internal/websocket"
	"github.com/kurdai/kurdai-server/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	ctx := context.Background()

	// Initialize adapters
	assistant, err := gemini.NewAssistant(ctx, cfg.GeminiAPIKey, logger)
	if err != nil {
		logger.Fatal("gemini assistant", zap.Error(err))
	}
	transport := gemini.NewLiveTransport(cfg.GeminiAPIKey, logger)

	mongoClient, err := adaptermongo.NewClient(cfg.MongoURI, cfg.MongoDatabase, logger)
	if err != nil {
		logger.Fatal("mongodb", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongoClient.Close(ctx)
	}()
	conversations := adaptermongo.NewConversationRepository(mongoClient.Database)

	systemInstruction := cfg.SystemInstruction
	if systemInstruction == "" {
		systemInstruction = usecase.DefaultSystemInstruction
	}

	// Initialize WebSocket hub
	hub := websocket.NewHub(transport, conversations, websocket.SessionDefaults{
		Model:             cfg.VoiceModel,
		Voice:             cfg.Voice,
		SystemInstruction: systemInstruction,
	}, logger)
	go hub.Run()

	janitor := websocket.NewConversationJanitor(conversations, logger)
	janitor.Start()
	defer janitor.Stop()

	// Initialize API routes
	api.InitRoutes(e, &api.Handlers{
		Assistant:     assistant,
		Conversations: conversations,
		Auth:          auth.NewManager(cfg.JWTSecret),
		Hub:           hub,
		Logger:        logger,
	})

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
