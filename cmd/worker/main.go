// Package main is the entry point for the habit tracker background worker.
//
// The worker runs the periodic jobs: the evening reminder push, the
// retroactive achievement backfill, and cleanup of completion records
// stranded outside re-anchored challenge windows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/habit-hub/habit-tracker-hub/config"
	"github.com/habit-hub/habit-tracker-hub/internal/application/saga"
	"github.com/habit-hub/habit-tracker-hub/internal/infrastructure/external/push"
	"github.com/habit-hub/habit-tracker-hub/internal/infrastructure/messaging"
	"github.com/habit-hub/habit-tracker-hub/internal/infrastructure/persistence/postgres"
	"github.com/habit-hub/habit-tracker-hub/internal/infrastructure/scheduler"
	"github.com/habit-hub/habit-tracker-hub/internal/infrastructure/scheduler/jobs"
	"github.com/habit-hub/habit-tracker-hub/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	logOpts := logger.DefaultOptions()
	logOpts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	log := logger.New(logOpts)

	log.Info("starting habit tracker worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	if !cfg.Scheduler.Enabled {
		log.Info("scheduler disabled, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// The worker needs the schema too; migrations are idempotent.
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	userRepo := postgres.NewUserRepository(dbConn)
	habitRepo := postgres.NewHabitRepository(dbConn)
	completionRepo := postgres.NewCompletionRepository(dbConn)
	achievementRepo := postgres.NewAchievementRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS & PUSH RELAY
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	eventBus := messaging.NewInMemoryEventBus(busCfg)
	defer func() { _ = eventBus.Close() }()

	var sender push.Sender
	if cfg.Push.Disabled {
		sender = push.NopSender{}
		log.Info("push delivery disabled")
	} else {
		sender = push.NewClient(cfg.Push, log)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. JOBS
	// ─────────────────────────────────────────────────────────────────────────
	unlockFlow := saga.NewUnlockFlow(userRepo, habitRepo, completionRepo, achievementRepo, eventBus, log)

	sched := scheduler.New(scheduler.Config{Logger: log})

	reminder := jobs.NewDailyReminder(userRepo, habitRepo, completionRepo, achievementRepo, sender, cfg.Features, log)
	if err := sched.Register(reminder, scheduler.NewDailySchedule(cfg.Scheduler.ReminderHour, cfg.Scheduler.ReminderMinute)); err != nil {
		return fmt.Errorf("failed to register reminder job: %w", err)
	}

	backfill := jobs.NewAchievementBackfill(userRepo, unlockFlow, cfg.Features, log)
	if err := sched.Register(backfill, scheduler.NewIntervalSchedule(cfg.Scheduler.BackfillInterval)); err != nil {
		return fmt.Errorf("failed to register backfill job: %w", err)
	}

	cleanup := jobs.NewCleanup(userRepo, completionRepo, log)
	if err := sched.Register(cleanup, scheduler.NewIntervalSchedule(cfg.Scheduler.CleanupInterval)); err != nil {
		return fmt.Errorf("failed to register cleanup job: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. RUN
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info("worker is running",
		logger.Int("reminder_hour", cfg.Scheduler.ReminderHour),
		logger.String("backfill_interval", cfg.Scheduler.BackfillInterval.String()),
		logger.String("cleanup_interval", cfg.Scheduler.CleanupInterval.String()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info("received shutdown signal", logger.String("signal", sig.String()))

	if err := sched.Stop(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}

	log.Info("shutdown completed")
	return nil
}
