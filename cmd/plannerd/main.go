package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"training-planner-backend/config"
	"training-planner-backend/internal/api"
	"training-planner-backend/internal/catalog"
	"training-planner-backend/internal/db"
	"training-planner-backend/internal/ledger"
	"training-planner-backend/internal/messagelog"
	"training-planner-backend/internal/notification"
	"training-planner-backend/internal/reservation"
	"training-planner-backend/internal/store"
	"training-planner-backend/internal/sweeper"
)

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal("failed to load configuration", "path", configPath, "error", err)
	}
	slog.Info("configuration loaded", "path", configPath)

	loc, err := time.LoadLocation(cfg.Planner.Timezone)
	if err != nil {
		fatal("invalid planner timezone", "timezone", cfg.Planner.Timezone, "error", err)
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		fatal("failed to initialize database", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Messages are pushed only when VAPID keys are configured.
	var webpushOptions *webpush.Options
	var notifier messagelog.Notifier
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
		notifier = pool
		slog.Info("web push enabled", "workers", cfg.WorkerPool.Size)
	} else {
		slog.Warn("VAPID keys are not configured; web push is disabled")
	}

	messages := messagelog.New(gormDB, notifier)
	appStore := store.NewGormStore(gormDB)

	planner := reservation.New(gormDB, messages, reservation.Options{
		ConfirmationDays: cfg.Planner.ConfirmationDays,
		TrainingTypes:    cfg.Planner.TrainingTypes,
		Transactional:    cfg.Database.Transactional(),
		Location:         loc,
	})
	slog.Info("reservation coordinator ready", "transactional", cfg.Database.Transactional())

	if cfg.Jobs.Enabled {
		sweep := sweeper.NewService(appStore, messages, sweeper.Options{
			Schedule:    cfg.Jobs.WarningsSchedule,
			WarningDays: cfg.Planner.WarningDays,
			Location:    loc,
		})
		go func() {
			if err := sweep.Run(ctx); err != nil {
				slog.Error("deadline sweeper stopped", "error", err)
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(api.Deps{
		Store:         appStore,
		Planner:       planner,
		Catalog:       catalog.New(gormDB),
		Ledger:        ledger.New(gormDB),
		Messages:      messages,
		WebPush:       webpushOptions,
		WarningDays:   cfg.Planner.WarningDays,
		TrainingTypes: cfg.Planner.TrainingTypes,
		Location:      loc,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handler, cfg.Server),
	}

	go func() {
		slog.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("HTTP server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	slog.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		fatal("HTTP server shutdown failed", "error", err)
	}

	slog.Info("server gracefully stopped")
}
