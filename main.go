package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "chats/docs"
	"chats/internal/api"
	"chats/internal/cache"
	"chats/internal/config"
	"chats/internal/logger"
	"chats/internal/repository"
	"chats/internal/service"
)

// @title Chats API
// @version 1.0
// @description Ephemeral messages that expire after a timeout and are consumed when listed.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	gin.SetMode(cfg.Server.Mode)

	store, err := repository.Open(cfg.Database)
	if err != nil {
		logger.L().Fatal("failed to initialize database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer store.Close()
	logger.Info("connected to database", zap.String("driver", cfg.Database.Driver))

	var messageCache service.MessageCache
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err = cache.NewClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		cancel()
		if err != nil {
			logger.L().Fatal("failed to connect to redis", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
		}
		defer redisClient.Close()
		messageCache = cache.NewRedisCache(redisClient, cfg.Redis.CacheTTL)
		logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr()))
	}

	serv := service.NewMessageService(store, messageCache, service.WithDefaultTimeout(cfg.Chats.DefaultTimeout))
	sweeper := service.NewSweeper(serv, cfg.Chats.SweepInterval, cfg.Chats.Retention)
	if cfg.Chats.Retention > 0 {
		if err := sweeper.Start(); err != nil {
			logger.L().Fatal("failed to start sweeper", zap.Error(err))
		}
	}
	defer sweeper.Stop()

	router := api.NewRouter(api.NewAPIHandler(sweeper, serv), api.RouterOptions{
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
