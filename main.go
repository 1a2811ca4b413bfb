package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-reservations/config"
	"github.com/yeremiapane/restaurant-reservations/database"
	"github.com/yeremiapane/restaurant-reservations/notifications"
	"github.com/yeremiapane/restaurant-reservations/realtime"
	"github.com/yeremiapane/restaurant-reservations/router"
	"github.com/yeremiapane/restaurant-reservations/services"
	"github.com/yeremiapane/restaurant-reservations/storage"
	"github.com/yeremiapane/restaurant-reservations/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)

	if cfg.GinMode == gin.ReleaseMode || cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	images, err := newImageStore(ctx, cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to initialise image storage: %v", err)
	}

	hub := realtime.NewHub()
	sinks := []notifications.Sink{
		notifications.LogSink{},
		notifications.NewStoreSink(db),
		notifications.NewHubSink(hub),
	}
	var kafkaSink *notifications.KafkaSink
	if cfg.KafkaEnabled() {
		kafkaSink = notifications.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		sinks = append(sinks, kafkaSink)
		utils.InfoLogger.WithField("topic", cfg.KafkaTopic).Info("Publishing reservation events to Kafka")
	}

	dispatcher := notifications.NewDispatcher(cfg.EventBuffer, sinks...)
	dispatcher.Start()

	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		_, created, err := services.NewAuthService(db, tokens).EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to provision admin account: %v", err)
		}
		if created {
			utils.InfoLogger.WithField("email", cfg.AdminEmail).Info("Admin account created")
		}
	}

	r := router.SetupRouter(router.Dependencies{
		DB:        db,
		Config:    cfg,
		Tokens:    tokens,
		Blacklist: utils.NewTokenBlacklist(),
		Hub:       hub,
		Notifier:  dispatcher,
		Images:    images,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.WithError(err).Error("Graceful shutdown failed")
	}

	dispatcher.Stop()
	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			utils.ErrorLogger.WithError(err).Warn("Failed to close Kafka writer")
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func newImageStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.StorageBackend == "s3" {
		return storage.NewS3Store(ctx, cfg.AWSRegion, cfg.AWSS3Bucket, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
	}
	return storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
}
