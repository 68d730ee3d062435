package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vkrlab/briefbot/internal/app"
	"github.com/vkrlab/briefbot/internal/bot"
	"github.com/vkrlab/briefbot/internal/clients/notion"
	"github.com/vkrlab/briefbot/internal/clients/telegram"
	"github.com/vkrlab/briefbot/internal/data/db"
	"github.com/vkrlab/briefbot/internal/data/repos"
	"github.com/vkrlab/briefbot/internal/handlers"
	"github.com/vkrlab/briefbot/internal/middleware"
	"github.com/vkrlab/briefbot/internal/outline"
	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/server"
	"github.com/vkrlab/briefbot/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading configuration from main...")
	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Error("Could not load config", "error", err)
		os.Exit(1)
	}

	// Database
	dbService, err := db.NewDatabaseService(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err = dbService.AutoMigrateAll(); err != nil {
		log.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}
	theDB := dbService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	studentRepo := repos.NewStudentRepo(theDB, log)
	checklistRepo := repos.NewChecklistRepo(theDB, log)
	requestRepo := repos.NewRequestRepo(theDB, log)

	// Clients
	log.Info("Setting up Clients from main...")
	notionClient, err := notion.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init NotionClient", "error", err)
		os.Exit(1)
	}
	tgClient, err := telegram.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init TelegramClient", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	catalog := outline.NewCatalog(log, notionClient, cfg.BriefsPageID)
	notifier := services.NewAdminNotifier(log, tgClient, cfg.AdminIDs)
	intakeService := services.NewIntakeService(theDB, log, studentRepo, requestRepo, notifier)
	progressService := services.NewProgressService(theDB, log, studentRepo, checklistRepo, catalog)
	reminderService, err := services.NewReminderService(log, intakeService, notifier, cfg.ReminderHour, cfg.ReminderMinute, cfg.ReminderTZ)
	if err != nil {
		log.Error("Could not init ReminderService", "error", err)
		os.Exit(1)
	}

	// Bot
	log.Info("Setting up bot from main...")
	sessions := bot.NewSessionStore()
	machine := bot.NewMachine(log, catalog, studentRepo, checklistRepo, intakeService, sessions, cfg.ExcludeTitlePrefix)
	dispatcher := bot.NewDispatcher(log, tgClient, machine, sessions, progressService, cfg.AdminIDs)

	// Handlers
	log.Info("Setting up handlers from main...")
	adminHandler := handlers.NewAdminHandler(log, intakeService, progressService, sessions)
	var webhookHandler *handlers.WebhookHandler
	if cfg.Mode == app.ModeWebhook {
		webhookHandler = handlers.NewWebhookHandler(log, dispatcher)
	}

	// Middleware
	adminMiddleware := middleware.NewAdminTokenMiddleware(log, cfg.AdminAPIToken)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		WebhookHandler:  webhookHandler,
		AdminHandler:    adminHandler,
		AdminMiddleware: adminMiddleware,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := reminderService.Start(ctx); err != nil {
		log.Error("Could not start reminder", "error", err)
		os.Exit(1)
	}
	defer reminderService.Stop()

	if cfg.Mode == app.ModePolling {
		go func() {
			if err := router.Run(":" + cfg.Port); err != nil {
				log.Error("Server failed", "error", err)
				stop()
			}
		}()
		fmt.Printf("Server listening on :%s (polling mode)\n", cfg.Port)
		if err := dispatcher.RunPolling(ctx); err != nil && ctx.Err() == nil {
			log.Error("Polling stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("Server listening on :%s (webhook mode)\n", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
