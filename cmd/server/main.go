// Package main runs the interview form HTTP server with WebSocket clip
// ingest and graceful shutdown.
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

	"github.com/voiceform/backend/config"
	"github.com/voiceform/backend/internal/capture"
	"github.com/voiceform/backend/internal/forms"
	"github.com/voiceform/backend/internal/gateway"
	"github.com/voiceform/backend/internal/middleware"
	"github.com/voiceform/backend/internal/questionnaire"
	"github.com/voiceform/backend/internal/submission"
	"github.com/voiceform/backend/pkg/database"
	"github.com/voiceform/backend/pkg/redis"
	"github.com/voiceform/backend/pkg/response"
	"github.com/voiceform/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	qn := questionnaire.Default()
	if cfg.Questionnaire.Path != "" {
		qn, err = questionnaire.Load(cfg.Questionnaire.Path)
		if err != nil {
			logger.Fatal("load questionnaire", zap.Error(err))
		}
	}
	logger.Info("questionnaire loaded", zap.String("title", qn.Title()), zap.Int("questions", qn.Len()))

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		MediaBucket:     cfg.AWS.MediaBucket,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	// Drafts are optional; without Redis forms simply cannot be resumed
	// after a restart.
	var drafts forms.DraftStore = forms.NopDraftStore{}
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("drafts disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			drafts = forms.NewRedisDraftStore(rdb.Client, time.Duration(cfg.Redis.DraftTTLMinutes)*time.Minute)
		}
	}

	clipPolicy := forms.ClipPolicy(cfg.Capture.ClipPolicy)
	formStore := forms.NewStore(qn, clipPolicy, drafts, logger)
	captureMgr := capture.NewManager(cfg.Capture.MaxClipBytes, logger)
	coordinator := submission.NewCoordinator(
		gateway.NewS3BlobStore(s3Client),
		gateway.NewPostgresDocumentStore(pool),
		logger,
	)
	formHandler := forms.NewHandler(formStore, captureMgr, coordinator, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Forms
	router.POST("/forms", formHandler.Open)
	router.GET("/forms/:id", formHandler.Get)
	router.PUT("/forms/:id/answers/:questionId/text", formHandler.SetText)
	router.GET("/forms/:id/answers/:questionId/clips/:index", formHandler.ClipData)
	router.DELETE("/forms/:id/answers/:questionId/clips/:index", formHandler.DeleteClip)
	router.PUT("/forms/:id/consent", formHandler.SetConsent)
	router.GET("/forms/:id/progress", formHandler.GetProgress)
	router.POST("/forms/:id/submit", formHandler.Submit)

	// WebSocket clip ingest (binary chunks in, one clip per connection)
	router.GET("/ws/forms/:id/record", formHandler.Record)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
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

	// Release any microphone streams still held by open recordings.
	captureMgr.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
