package main

import (
	"context"
	"log"

	"github.com/devlinkhq/backend/internal/cache"
	"github.com/devlinkhq/backend/internal/engine"
	"github.com/devlinkhq/backend/internal/notify"
	"github.com/devlinkhq/backend/internal/repositories"
	"github.com/devlinkhq/backend/internal/router"
	"github.com/devlinkhq/backend/internal/ws"
	"github.com/devlinkhq/backend/pkg/config"
	"github.com/devlinkhq/backend/pkg/firebase"
	"github.com/devlinkhq/backend/pkg/logger"
	"github.com/devlinkhq/backend/validators"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zapLogger, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB()

	// Initialize Redis for the cache layer
	redisClient, err := config.InitRedis(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Initialize Firebase
	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		zapLogger.Fatal("Failed to initialize Firebase", zap.Error(err))
	}

	appCache := cache.New(redisClient, cfg.CacheOpTimeout, zapLogger)
	counterEngine := engine.New(db.Postgres, cfg.StoreTimeout, zapLogger)

	// Notification pipeline: WebSocket hub and FCM behind a fanout, fed by
	// the batcher which reads fresh posts from the relational store.
	hub := ws.NewHub(zapLogger)
	fcm := notify.NewFCMPublisher(firebaseApp.MessagingClient, zapLogger)
	fanout := notify.NewFanout(zapLogger, hub, fcm)

	postRepo := repositories.NewPostgresPostRepository(db.Postgres)
	batcher := notify.New(postRepo, fanout, notify.Config{
		CountThreshold: cfg.BatchCountThreshold,
		TimeThreshold:  cfg.BatchTimeThreshold,
		SweepInterval:  cfg.BatchSweepInterval,
	}, zapLogger)
	defer batcher.Close()
	defer hub.Close()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	router.SetupMiddleware(e)

	err = router.SetupRoutes(e, router.Dependencies{
		Postgres:   db.Postgres,
		Mongo:      db.Mongo.Database(cfg.MongoDatabase),
		AuthClient: firebaseApp.AuthClient,
		Cache:      appCache,
		Engine:     counterEngine,
		Batcher:    batcher,
		Hub:        hub,
		Logger:     zapLogger,
	})
	if err != nil {
		zapLogger.Fatal("Failed to set up routes", zap.Error(err))
	}

	// Validator
	e.Validator = validators.NewValidator()

	// Start server
	zapLogger.Info("Starting HTTP server", zap.String("port", cfg.Port))
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
