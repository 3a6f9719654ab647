package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"league-run-system/handlers"
	"league-run-system/logger"
	"league-run-system/middleware"
	"league-run-system/models"
	"league-run-system/services"
	"league-run-system/utils"
	"league-run-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		logger.Warn("invalid integer env value, using default", "key", key, "value", v, "default", def)
	}
	return def
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, reading environment variables directly")
	}
	logger.Init(envStr("APP_ENV", "development"), envStr("LOG_LEVEL", "info"))
	defer logger.Sync()

	var store services.RunStore
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := db.AutoMigrate(
			&models.Run{},
			&models.RunStart{},
			&models.PendingRequest{},
		); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		store = services.NewGormRunStore(db)
	} else {
		logger.Warn("DATABASE_URL not set — using in-memory store, state is lost on restart")
		store = services.NewMemoryRunStore()
	}

	gatewayURL := os.Getenv("GATEWAY_BASE_URL")
	gatewayToken := os.Getenv("GATEWAY_SERVICE_TOKEN")
	if gatewayURL == "" || gatewayToken == "" {
		logger.Error("GATEWAY_BASE_URL and GATEWAY_SERVICE_TOKEN environment variables must be set")
		os.Exit(1)
	}
	transport := services.NewGatewayTransport(gatewayURL, gatewayToken)

	artifacts, err := utils.NewR2Store()
	if err != nil {
		logger.Error("failed to initialize R2 client", "error", err)
		os.Exit(1)
	}

	limits, err := services.NewDailyLimitTracker(store,
		envStr("RESET_TIMEZONE", "America/Los_Angeles"),
		envInt("RESET_HOUR", 3), envInt("RESET_MINUTE", 0))
	if err != nil {
		logger.Error("failed to build daily limit tracker", "error", err)
		os.Exit(1)
	}

	basePath := envStr("BASE_DATA_PATH", "card_data_files/all_bases.json")
	decks := services.NewDeckParser(
		envStr("LEADER_DATA_PATH", "card_data_files/all_leaders.json"),
		basePath,
	)

	cfg := services.LifecycleConfig{
		AdminChannel:        os.Getenv("ADMIN_CHANNEL_ID"),
		TrophyChannel:       os.Getenv("TROPHY_CHANNEL_ID"),
		ReactivationChannel: os.Getenv("REACTIVATION_REQUEST_CHANNEL_ID"),
		LeaderboardChannel:  os.Getenv("LEADERBOARD_CHANNEL_ID"),
	}

	queue := services.NewQueueManager()
	lifecycle := services.NewRunLifecycle(store, queue, limits, transport, decks, cfg)
	sessions := services.NewSessionManager(transport, cfg.AdminChannel)
	sessions.SetRecorder(lifecycle)
	lifecycle.SetSessions(sessions)

	standings := services.NewStandingsService(store, services.CSVRenderer{}, artifacts,
		transport, cfg.LeaderboardChannel, basePath)
	exporter := services.NewExporter(store, artifacts, transport)
	admin := services.NewAdminService(store, lifecycle, sessions, transport)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cardSyncURL := os.Getenv("CARD_SYNC_URL"); cardSyncURL != "" {
		worker := workers.NewCardSyncWorker(decks, cardSyncURL,
			envStr("LEADER_DATA_PATH", "card_data_files/all_leaders.json"), basePath)
		worker.Start(ctx)
	}

	sched, err := services.StartHousekeeping(lifecycle, standings, limits,
		envInt("REPORT_HOUR", 8), envInt("REPORT_MINUTE", 30))
	if err != nil {
		logger.Error("failed to start housekeeping scheduler", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sched.Shutdown() }()

	app := fiber.New(fiber.Config{
		AppName: "league-run-system",
	})

	// 🔐 GLOBAL: only gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	handlers.SetupLeagueRoutes(app, &handlers.LeagueHandler{Lifecycle: lifecycle, Exporter: exporter})
	handlers.SetupEventRoutes(app, &handlers.EventsHandler{Lifecycle: lifecycle, Sessions: sessions})
	handlers.SetupAdminRoutes(app, &handlers.AdminHandler{Admin: admin, Standings: standings})

	addr := ":" + envStr("PORT", "5300")
	go func() {
		if err := app.Listen(addr); err != nil {
			logger.Error("server error", "error", err)
		}
	}()

	logger.Info("✅ league run system running", "addr", addr)
	logger.Info("✅ gateway auth enforced globally")

	<-ctx.Done()
	logger.Info("shutting down server...")
	_ = app.Shutdown()
}
