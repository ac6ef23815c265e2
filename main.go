package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/dietaryapp/dietary-bot/internal/bot"
	"github.com/dietaryapp/dietary-bot/internal/bot/dialog"
	"github.com/dietaryapp/dietary-bot/internal/bot/handlers"
	"github.com/dietaryapp/dietary-bot/internal/bot/state"
	"github.com/dietaryapp/dietary-bot/internal/config"
	"github.com/dietaryapp/dietary-bot/internal/database"
	"github.com/dietaryapp/dietary-bot/internal/logger"
	"github.com/dietaryapp/dietary-bot/internal/repository"
	"github.com/dietaryapp/dietary-bot/internal/scheduler"
	"github.com/dietaryapp/dietary-bot/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	logger.Info("Starting Dietary Bot...")

	db, err := database.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info("Database connection established and migrations completed")

	repos := repository.New(db)

	// Initialize services
	userService := services.NewUserService(repos.Users, cfg.DefaultTimezone)
	entryService := services.NewEntryService(repos.Entries)
	summaryService := services.NewSummaryService(repos.Entries)
	reminderService := services.NewReminderService(repos.Reminders)
	nutritionService := services.NewNutritionService(cfg.OpenAIAPIKey)
	dieticianService := services.NewDieticianService(cfg.OpenAIAPIKey)
	recipeService := services.NewRecipeService(repos.Recipes)
	logger.Info("Services initialized successfully")

	// Dialogue sessions live in Redis when it is configured, so state
	// survives restarts. Without Redis an in-memory store is used.
	var sessions state.Store
	if cfg.Redis.Host != "" {
		redisStore, err := state.NewRedisManager(cfg.Redis.Host, cfg.Redis.Port, cfg.Session.Timeout)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore
		logger.Info("Using Redis session store")
	} else {
		sessions = state.NewManager()
		logger.Info("Using in-memory session store")
	}

	machine := dialog.NewMachine(sessions, entryService, reminderService, nutritionService, dieticianService, recipeService, cfg.Session.Timeout)

	deps := handlers.Dependencies{
		UserService:     userService,
		EntryService:    entryService,
		SummaryService:  summaryService,
		ReminderService: reminderService,
		DieticianSvc:    dieticianService,
	}

	telegramBot, err := bot.NewBot(cfg.TelegramToken, deps, machine)
	if err != nil {
		logger.Fatalf("Failed to create bot: %v", err)
	}
	logger.Info("Bot initialized successfully")

	reminderScheduler := scheduler.New(reminderService, telegramBot, cfg.Reminders.TickInterval, cfg.Reminders.RetryWindow)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go reminderScheduler.Run(ctx)

	if err := telegramBot.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Errorf("Bot stopped with error: %v", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
