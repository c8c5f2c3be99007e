// Package main runs the background job worker (recording asset deletion, notification emails).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/coursemeet/backend/config"
	"github.com/coursemeet/backend/internal/accounts"
	"github.com/coursemeet/backend/internal/emaillogs"
	"github.com/coursemeet/backend/internal/recordings"
	"github.com/coursemeet/backend/internal/worker"
	"github.com/coursemeet/backend/internal/youtube"
	"github.com/coursemeet/backend/pkg/database"
	"github.com/coursemeet/backend/pkg/mailer"
	"github.com/coursemeet/backend/pkg/queue"
	"github.com/coursemeet/backend/pkg/redis"
	"github.com/coursemeet/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	accountSvc := accounts.NewService(accounts.NewRepository(pool),
		accounts.NewOAuthRefresher(cfg.GoogleOAuth.ClientID, cfg.GoogleOAuth.ClientSecret), logger)
	assets := map[string]recordings.AssetStore{
		config.ProviderYouTube: youtube.NewAssetStore(accountSvc, logger),
	}
	// Sources uploaded while the site used S3 stay purgeable after a provider switch.
	if cfg.AWS.RecordingsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			RecordingsBucket:     cfg.AWS.RecordingsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 asset deletion disabled", zap.Error(err))
		} else {
			assets[config.ProviderS3] = s3Client
		}
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	recordingSvc := recordings.NewService(recordings.NewRepository(pool), assets, jobQueue, accountSvc, logger)
	smtp := mailer.NewSMTP(mailer.Config{
		Addr:     cfg.SMTP.Addr,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logger)
	if !smtp.Enabled() {
		logger.Warn("SMTP_ADDR not set, notification emails will be logged as skipped")
	}
	processor := worker.NewProcessor(recordingSvc, smtp, emaillogs.NewRepository(pool), jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
