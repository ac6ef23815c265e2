package database

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dietaryapp/dietary-bot/internal/config"
	"github.com/dietaryapp/dietary-bot/internal/database/migrations"
	"github.com/dietaryapp/dietary-bot/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	TelegramID   int64 `gorm:"uniqueIndex"`
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string `gorm:"default:ru"`
	Timezone     string

	// Dietary profile used to tailor recommendations
	HasDiabetes bool `gorm:"default:false"`
	HasGout     bool `gorm:"default:false"`
	HasCeliac   bool `gorm:"default:false"`

	// Daily goals; nil until the user sets them
	DailyCalorieGoal *float64
	DailyProteinGoal *float64
	DailyFatGoal     *float64
	DailyCarbGoal    *float64
}

// Entry is a single confirmed food record. Entries are never updated
// in place: a correction inserts a replacement with the same ActionID
// and marks the old row superseded in the same transaction.
type Entry struct {
	gorm.Model
	UserID uint `gorm:"index"`
	User   User

	// ActionID groups an original entry with its corrections. At most
	// one row per ActionID has Superseded = false.
	ActionID string `gorm:"index;size:36"`

	Description string
	Quantity    float64
	Unit        string
	MealType    string `gorm:"default:snack"`
	EatenAt     time.Time

	// Nutrition values resolved from the description; nil when the
	// estimator could not resolve them
	Calories *float64
	Proteins *float64
	Fats     *float64
	Carbs    *float64

	Superseded bool `gorm:"default:false;index"`
}

// Reminder is a user-configured recurring notification. Disabled
// reminders keep their row with Active = false for history.
type Reminder struct {
	gorm.Model
	UserID uint `gorm:"index"`
	User   User

	TimeOfDay  string // Format: "HH:MM", user-local
	Recurrence string `gorm:"default:daily"`
	Message    string
	Active     bool `gorm:"default:true"`
}

// Recipe is a catalog dish offered through recipe search. The catalog
// is seeded by migration; GlycemicIndex and Purines drive the
// per-profile filtering.
type Recipe struct {
	gorm.Model
	Name        string `gorm:"uniqueIndex"`
	Description string

	Calories float64
	Proteins float64
	Fats     float64
	Carbs    float64

	GlycemicIndex float64
	Purines       float64
	GlutenFree    bool `gorm:"default:false"`

	// Ingredients is a comma-separated list; search matches against it
	// as well as the name.
	Ingredients  string
	Instructions string
}

const (
	DeliveryPending = "pending"
	DeliveryFired   = "fired"
	DeliveryMissed  = "missed"
)

// ReminderDelivery deduplicates reminder occurrences. One row per
// (reminder, occurrence date); the row survives even when delivery
// permanently fails so the occurrence is never retried past its window.
type ReminderDelivery struct {
	gorm.Model
	ReminderID     uint   `gorm:"uniqueIndex:idx_reminder_occurrence"`
	OccurrenceDate string `gorm:"uniqueIndex:idx_reminder_occurrence;size:10"` // Format: "2006-01-02"
	Status         string `gorm:"default:pending"`
	Attempts       int
	FirstAttemptAt time.Time
}

func NewPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get the directory of the current file
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("failed to get current file path")
	}
	migrationsDir := filepath.Join(filepath.Dir(filename), "migrations")

	// Load and run migrations
	if err := migrations.LoadSQLMigrations(db, migrationsDir); err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	// Auto-migrate first so SQL migrations can index the tables
	if err := db.AutoMigrate(&User{}, &Entry{}, &Reminder{}, &ReminderDelivery{}, &Recipe{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database connection established and migrations completed")
	return db, nil
}
