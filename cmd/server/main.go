// Package main is the entry point for the habit tracker API server.
//
// The server exposes the REST API consumed by the PWA frontend: habit
// setup, daily completion toggles, stats, the 21-day calendar,
// achievements, and data export/import.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/habit-hub/habit-tracker-hub/config"
	"github.com/habit-hub/habit-tracker-hub/internal/application/command"
	"github.com/habit-hub/habit-tracker-hub/internal/application/eventhandler"
	"github.com/habit-hub/habit-tracker-hub/internal/application/query"
	"github.com/habit-hub/habit-tracker-hub/internal/application/saga"
	"github.com/habit-hub/habit-tracker-hub/internal/domain/habit"
	"github.com/habit-hub/habit-tracker-hub/internal/infrastructure/external/push"
	"github.com/habit-hub/habit-tracker-hub/internal/infrastructure/messaging"
	"github.com/habit-hub/habit-tracker-hub/internal/infrastructure/persistence/postgres"
	"github.com/habit-hub/habit-tracker-hub/internal/infrastructure/persistence/redis"
	httpiface "github.com/habit-hub/habit-tracker-hub/internal/interface/http"
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

	log.Info("starting habit tracker server",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Int("challenge_days", cfg.App.ChallengeDays),
	)

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

	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional stats cache)
	// ─────────────────────────────────────────────────────────────────────────
	var statsCache habit.StatsCache

	if !cfg.Redis.Disabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		cache, err := redis.NewCache(redisCfg)
		if err != nil {
			// The cache is an optimization; stats fall back to Postgres.
			log.Warn("redis unavailable, stats caching disabled", logger.Err(err))
		} else {
			defer cache.Close()
			statsCache = redis.NewStatsCache(cache)
			log.Info("redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	userRepo := postgres.NewUserRepository(dbConn)
	habitRepo := postgres.NewHabitRepository(dbConn)
	completionRepo := postgres.NewCompletionRepository(dbConn)
	achievementRepo := postgres.NewAchievementRepository(dbConn)
	uowFactory := postgres.NewUnitOfWorkFactory(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	eventBus := messaging.NewInMemoryEventBus(busCfg)
	defer func() { _ = eventBus.Close() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. PUSH RELAY
	// ─────────────────────────────────────────────────────────────────────────
	var sender push.Sender
	if cfg.Push.Disabled {
		sender = push.NopSender{}
		log.Info("push delivery disabled")
	} else {
		sender = push.NewClient(cfg.Push, log)
	}

	onUnlocked := eventhandler.NewOnAchievementUnlocked(sender, achievementRepo, cfg.Features, log)
	if err := eventBus.Subscribe(onUnlocked.EventType(), onUnlocked.Handle); err != nil {
		return fmt.Errorf("failed to subscribe unlock handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	unlockFlow := saga.NewUnlockFlow(userRepo, habitRepo, completionRepo, achievementRepo, eventBus, log)

	deps := httpiface.Dependencies{
		RegisterUser:     command.NewRegisterUserHandler(userRepo, log),
		SetupHabits:      command.NewSetupHabitsHandler(userRepo, habitRepo, statsCache, eventBus, log),
		ToggleCompletion: command.NewToggleCompletionHandler(userRepo, habitRepo, completionRepo, statsCache, unlockFlow, eventBus, log),
		ResetChallenge:   command.NewResetChallengeHandler(userRepo, completionRepo, achievementRepo, statsCache, eventBus, log),
		ImportData:       command.NewImportDataHandler(userRepo, uowFactory, statsCache, eventBus, log),
		MarkViewed:       command.NewMarkViewedHandler(achievementRepo, eventBus, log),

		GetStats:           query.NewGetStatsHandler(userRepo, habitRepo, completionRepo, statsCache, cfg.Redis.StatsTTL, log),
		GetDay:             query.NewGetDayHandler(userRepo, habitRepo, completionRepo),
		GetCalendar:        query.NewGetCalendarHandler(userRepo, habitRepo, completionRepo),
		GetNewAchievements: query.NewGetNewAchievementsHandler(achievementRepo),
		ExportData:         query.NewExportDataHandler(userRepo, habitRepo, completionRepo, achievementRepo),

		Database: dbConn,
		Logger:   log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpiface.DefaultConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	serverCfg.IdleTimeout = cfg.Server.IdleTimeout
	serverCfg.MaxRequestBytes = cfg.Server.MaxRequestBytes
	serverCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	serverCfg.RateLimitPerMinute = cfg.Server.RateLimit
	serverCfg.Version = cfg.App.Version

	server := httpiface.NewServer(serverCfg, deps)
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	log.Info("shutdown completed")
	return nil
}
