// Package main runs the conferencing HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/coursemeet/backend/config"
	"github.com/coursemeet/backend/internal/accounts"
	"github.com/coursemeet/backend/internal/auth"
	"github.com/coursemeet/backend/internal/calendar"
	"github.com/coursemeet/backend/internal/capability"
	"github.com/coursemeet/backend/internal/emaillogs"
	"github.com/coursemeet/backend/internal/embed"
	"github.com/coursemeet/backend/internal/middleware"
	"github.com/coursemeet/backend/internal/notify"
	"github.com/coursemeet/backend/internal/privaterooms"
	"github.com/coursemeet/backend/internal/recordings"
	"github.com/coursemeet/backend/internal/sessionlog"
	"github.com/coursemeet/backend/internal/sessions"
	"github.com/coursemeet/backend/internal/users"
	"github.com/coursemeet/backend/internal/youtube"
	"github.com/coursemeet/backend/pkg/database"
	"github.com/coursemeet/backend/pkg/queue"
	"github.com/coursemeet/backend/pkg/redis"
	"github.com/coursemeet/backend/pkg/response"
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

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

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

	var s3Client *storage.S3
	if cfg.Recording.Provider == config.ProviderS3 {
		s3Client, err = storage.NewS3(ctx, s3Config(cfg), logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	checker := capability.NewRoleChecker()
	builder := embed.NewBuilder(cfg.Jitsi, cfg.Server.PublicURL)

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, cfg.JWT.ManagerEmails, logger)
	usersHandler := users.NewHandler(authRepo, checker, logger)

	// Service account and hosted recording assets
	accountSvc := accounts.NewService(accounts.NewRepository(pool),
		accounts.NewOAuthRefresher(cfg.GoogleOAuth.ClientID, cfg.GoogleOAuth.ClientSecret), logger)
	accountHandler := accounts.NewHandler(accountSvc, checker, logger)
	assets := map[string]recordings.AssetStore{
		config.ProviderYouTube: youtube.NewAssetStore(accountSvc, logger),
	}
	var files recordings.Files
	if s3Client != nil {
		assets[config.ProviderS3] = s3Client
		files = s3Client
	}

	// Sessions, attendance, calendar
	sessionLogSvc := sessionlog.NewService(sessionlog.NewRepository(pool), logger)
	calendarSync := calendar.NewSyncer(calendar.NewRepository(pool), logger)
	sessionSvc := sessions.NewService(sessions.NewRepository(pool), calendarSync, jobQueue, logger)
	sessionHandler := sessions.NewHandler(sessionSvc, builder, checker, sessionLogSvc, accountSvc,
		cfg.Jitsi.InviteButtons, cfg.Server.PublicURL, logger)
	sessionLogHandler := sessionlog.NewHandler(sessionLogSvc, sessionSvc, checker, logger)

	// Recordings
	recordingSvc := recordings.NewService(recordings.NewRepository(pool), assets, jobQueue, accountSvc, logger)
	recordingHandler := recordings.NewHandler(recordingSvc, sessionSvc, checker, files, cfg.Recording.Provider, logger)

	// Private rooms and notifications
	pubsub := notify.NewRedisPubSub(rdb.Client, logger)
	notifier := notify.NewNotifier(pubsub, jobQueue, cfg.Server.PublicURL, logger)
	notifyHandler := notify.NewHandler(pubsub, logger)
	privateHandler := privaterooms.NewHandler(authRepo, builder, checker, notifier, cfg.Jitsi.SiteName, cfg.Jitsi.PrivateSessions, logger)
	emailLogsHandler := emaillogs.NewHandler(emaillogs.NewRepository(pool), checker, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		if !rdb.Healthy(c.Request.Context()) {
			response.ServiceUnavailable(c, "redis unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	limiter := middleware.RateLimit(middleware.NewIPRateLimiter(cfg.Server.RateLimitPerMinute, time.Minute, cfg.Server.RateLimitPerMinute))

	// Auth (public)
	authGroup := router.Group("/auth", limiter)
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Notification socket (token in query; no Authorization header required)
	router.GET("/ws", notify.ServeWs(pubsub, jwtService, logger))

	// Guest links (public; token and code are the credentials)
	router.GET("/universal/:token", limiter, sessionHandler.Universal)

	view := middleware.RequireCapability(checker, capability.View, capability.ScopeModule)
	record := middleware.RequireCapability(checker, capability.Record, capability.ScopeModule)
	moderate := middleware.RequireCapability(checker, capability.Moderation, capability.ScopeModule)
	manage := middleware.RequireCapability(checker, capability.AddInstance, capability.ScopeModule)
	siteModerate := middleware.RequireCapability(checker, capability.Moderation, capability.ScopeSystem)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Courses
		api.GET("/courses/:id/sessions", view, sessionHandler.List)
		api.POST("/courses/:id/sessions", manage, sessionHandler.Create)
		api.POST("/courses/:id/refresh-events", manage, sessionHandler.RefreshEvents)

		// Sessions
		api.GET("/sessions/:id", view, sessionHandler.Get)
		api.PUT("/sessions/:id", manage, sessionHandler.Update)
		api.DELETE("/sessions/:id", manage, sessionHandler.Delete)
		api.GET("/sessions/:id/embed", sessionHandler.Embed)
		api.GET("/sessions/:id/invitation", moderate, sessionHandler.Invitation)
		api.GET("/sessions/:id/invitation/qr", moderate, sessionHandler.InvitationQR)

		// Attendance
		api.POST("/sessions/:id/participating", view, sessionLogHandler.Participating)
		api.GET("/sessions/:id/minutes", view, sessionLogHandler.Minutes)
		api.GET("/sessions/:id/attendees", moderate, sessionLogHandler.Attendees)

		// Recordings
		api.GET("/sessions/:id/recordings", view, recordingHandler.List)
		api.POST("/sessions/:id/recording-state", record, recordingHandler.State)
		api.POST("/sessions/:id/recordings/upload", record, recordingHandler.Upload)
		api.GET("/recordings/:id/download-url", view, recordingHandler.DownloadURL)
		api.PATCH("/recordings/:id/name", record, recordingHandler.Rename)
		api.POST("/recordings/:id/delete", record, recordingHandler.MarkForDeletion)
		api.GET("/sources/:id/deletable", record, recordingHandler.Deletable)
		api.POST("/sources/:id/purge", record, recordingHandler.Purge)

		// Site administration
		api.PUT("/users/:id/role", siteModerate, usersHandler.SetRole)
		api.GET("/accounts", siteModerate, accountHandler.List)
		api.POST("/accounts", siteModerate, accountHandler.Create)
		api.PUT("/accounts/:id/in-use", siteModerate, accountHandler.SetInUse)

		// Private rooms and notifications
		api.GET("/users/:id/private-room", privateHandler.Room)
		api.POST("/users/:id/call", privateHandler.Call)
		api.GET("/users/:id/email-logs", emailLogsHandler.ListByUser)
		api.GET("/notifications/stream", notifyHandler.Stream)
	}

	// No WriteTimeout: /notifications/stream stays open.
	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func s3Config(cfg *config.Config) storage.S3Config {
	return storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		RecordingsBucket:     cfg.AWS.RecordingsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
