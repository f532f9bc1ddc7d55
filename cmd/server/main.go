// Package main runs the live session HTTP server with WebSocket status push and graceful shutdown.
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
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/aura-webinar/liveclass/config"
	"github.com/aura-webinar/liveclass/internal/access"
	"github.com/aura-webinar/liveclass/internal/auth"
	"github.com/aura-webinar/liveclass/internal/courses"
	"github.com/aura-webinar/liveclass/internal/live"
	"github.com/aura-webinar/liveclass/internal/livestate"
	"github.com/aura-webinar/liveclass/internal/middleware"
	"github.com/aura-webinar/liveclass/internal/realtime"
	"github.com/aura-webinar/liveclass/internal/recordings"
	"github.com/aura-webinar/liveclass/internal/rtc"
	"github.com/aura-webinar/liveclass/internal/schedule"
	"github.com/aura-webinar/liveclass/pkg/database"
	"github.com/aura-webinar/liveclass/pkg/metrics"
	"github.com/aura-webinar/liveclass/pkg/queue"
	"github.com/aura-webinar/liveclass/pkg/redis"
	"github.com/aura-webinar/liveclass/pkg/response"
	"github.com/aura-webinar/liveclass/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.MigrateUp(cfg.Database.DSN(), logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.PoolOptions(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	issuer, err := rtc.New(cfg.RTC)
	if err != nil {
		logger.Fatal("rtc", zap.Error(err))
	}

	// Recordings: S3 is optional; without it references keep the caller's URL only.
	var (
		locator   recordings.Locator
		presigner recordings.Presigner
	)
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			RecordingsBucket:     cfg.AWS.RecordingsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			locator, presigner = s3Client, s3Client
		}
	}

	stateRepo := livestate.NewRepository(pool)
	courseRepo := courses.NewRepository(pool)
	recordingRepo := recordings.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	finalizer := recordings.NewFinalizer(recordingRepo, locator, jobQueue, cfg.Live.CallTimeout, logger)

	pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, pubsub)
	m := metrics.New()

	orch := live.New(live.Deps{
		Store:     stateRepo,
		Guard:     access.NewGuard(courseRepo),
		Schedules: courseRepo,
		Seats:     courseRepo,
		Issuer:    issuer,
		Recorder:  finalizer,
		Notifier:  pubsub,
		Observer:  m,
		Logger:    logger,
	}, live.Config{
		Window: schedule.Window{
			Lead:      cfg.Live.StartLead,
			Grace:     cfg.Live.StartGrace,
			Lookahead: cfg.Live.Lookahead,
		},
		CredentialTTL: cfg.Live.CredentialTTL,
		CallTimeout:   cfg.Live.CallTimeout,
	})

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	liveHandler := live.NewHandler(orch, courseRepo, cfg.Live.Lookahead, logger)
	recordingHandler := recordings.NewHandler(finalizer, orch, presigner, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(m.Middleware())

	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler(func() {
		gctx, cancel := context.WithTimeout(context.Background(), cfg.Live.CallTimeout)
		defer cancel()
		if n, err := stateRepo.CountActive(gctx); err == nil {
			m.SetActiveSessions(n)
		}
	})))

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	liveHandler.Register(api)
	api.GET("/courses/:id/live/recordings", recordingHandler.ListByCourse)

	// WebSocket (token in query; browsers cannot set headers on upgrade)
	router.GET("/ws", middleware.JWTQuery(jwtService), realtime.ServeWs(hub, orch, orch, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server", zap.Error(err))
		os.Exit(1)
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
