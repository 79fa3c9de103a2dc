package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kokoro/internal/ai"
	"kokoro/internal/auth"
	"kokoro/internal/comment"
	"kokoro/internal/config"
	"kokoro/internal/db"
	"kokoro/internal/diary"
	httpx "kokoro/internal/http"
	"kokoro/internal/knowledge"
	"kokoro/internal/settings"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	cfg, _ := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)

	aiClient := ai.NewHTTPClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, logger)
	orchestrator := &ai.Orchestrator{Client: aiClient, Log: logger}

	settingsStore := &settings.Store{DB: gdb}
	retriever := &knowledge.Retriever{DB: gdb}
	diarySvc := &diary.Service{DB: gdb}

	scheduler := &comment.Scheduler{DB: gdb, Settings: settingsStore, Log: logger}
	runner := &comment.Runner{
		ID:           "worker-" + uuid.NewString(),
		DB:           gdb,
		Retriever:    retriever,
		Conversation: orchestrator,
		Log:          logger,
	}

	r := httpx.NewRouter(cfg, httpx.Deps{
		DB:        gdb,
		JWT:       jwtSvc,
		Diary:     diarySvc,
		Scheduler: scheduler,
		Runner:    runner,
		Settings:  settingsStore,
		Knowledge: retriever,
		Log:       logger,
	})

	// In-process periodic trigger. The HTTP trigger under /admin may fire
	// concurrently; the conditional claim keeps both safe.
	c := cron.New()
	_, err = c.AddFunc(cfg.WorkerSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer cancel()
		sum, err := runner.RunDueJobs(ctx, cfg.WorkerBatchSize)
		if err != nil {
			logger.Error("worker sweep failed", zap.Error(err))
			return
		}
		if sum.Processed+sum.Skipped+sum.Failed > 0 {
			logger.Info("worker sweep",
				zap.Int("processed", sum.Processed),
				zap.Int("skipped", sum.Skipped),
				zap.Int("failed", sum.Failed))
		}
	})
	if err != nil {
		logger.Fatal("invalid WORKER_SCHEDULE", zap.Error(err))
	}
	c.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cronCtx := c.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	<-cronCtx.Done()
}
