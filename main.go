package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/NiranjanBhat123/what-connects/config"
	"github.com/NiranjanBhat123/what-connects/models"
	"github.com/NiranjanBhat123/what-connects/routes"
	"github.com/NiranjanBhat123/what-connects/services"
	"github.com/NiranjanBhat123/what-connects/store"
	"github.com/NiranjanBhat123/what-connects/utils"
)

func main() {
	cfg := config.Load()

	logger, err := utils.InitLogger(os.Getenv("APP_ENV"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	err = db.AutoMigrate(
		&models.Player{},
		&models.Room{},
		&models.RoomMembership{},
		&models.Game{},
		&models.Question{},
		&models.Answer{},
		&models.GameScore{},
	)
	if err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	rdb := config.InitRedis(cfg)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis unavailable, running single-process", zap.Error(err))
		rdb = nil
	}

	st := store.NewGormStore(db)
	scoring := services.NewScoringEngine(cfg.Game.Points)

	var source services.QuestionSource
	if cfg.GeminiKey != "" {
		source = services.NewGeminiSource(cfg.GeminiKey, cfg.GeminiModel, logger)
	} else {
		logger.Warn("no Gemini API key configured, serving sample questions")
	}

	hub := services.NewHub(rdb, services.NopMetrics{}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	registry := services.NewRegistry(st, hub, rdb, scoring, source, cfg.Game, logger)

	sweeper := utils.NewSweeper(st, logger, 24*time.Hour, time.Hour)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("failed to start sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	router := routes.Setup(st, hub, registry, logger)

	addr := fmt.Sprintf("%s:%s", cfg.BindAddress, cfg.Port)
	logger.Info("server listening", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
