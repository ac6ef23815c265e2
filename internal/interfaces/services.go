package interfaces

import (
	"context"
	"time"

	"github.com/dietaryapp/dietary-bot/internal/database"
	"github.com/dietaryapp/dietary-bot/internal/domain"
)

// UserService defines the contract for user operations
type UserService interface {
	RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName, languageCode string) (*database.User, error)
	SetCalorieGoal(ctx context.Context, userID uint, kcal float64) error
	ToggleProfileFlag(ctx context.Context, userID uint, flag string) (bool, error)
}

// EntryService defines the contract for ledger operations
type EntryService interface {
	Add(ctx context.Context, userID uint, draft domain.EntryDraft) (*database.Entry, error)
	Correct(ctx context.Context, userID uint, actionID string, draft domain.EntryDraft) (*database.Entry, error)
	GetActive(ctx context.Context, userID uint, actionID string) (*database.Entry, error)
}

// SummaryService defines the contract for nutrition aggregation
type SummaryService interface {
	Today(ctx context.Context, user *database.User) (domain.DailySummary, error)
	Week(ctx context.Context, user *database.User) (domain.DailySummary, error)
}

// ReminderService defines the contract for reminder operations
type ReminderService interface {
	Create(ctx context.Context, userID uint, timeOfDay string, recurrence domain.Recurrence, message string) (*database.Reminder, error)
	List(ctx context.Context, userID uint) ([]database.Reminder, error)
	SetActive(ctx context.Context, userID, reminderID uint, active bool) error

	// Scheduler-facing operations
	Due(ctx context.Context, now time.Time) ([]domain.DueReminder, error)
	Delivery(ctx context.Context, reminderID uint, occurrence string) (*database.ReminderDelivery, error)
	RecordAttempt(ctx context.Context, reminderID uint, occurrence string, now time.Time) error
	MarkFired(ctx context.Context, reminderID uint, occurrence string, now time.Time) error
	MarkMissed(ctx context.Context, reminderID uint, occurrence string, now time.Time) error
}

// NutritionService resolves calories and macros from a described portion
type NutritionService interface {
	Estimate(ctx context.Context, description string, quantity float64, unit string) (*domain.MacroEstimate, error)
}

// RecipeService searches the recipe catalog with profile filtering
type RecipeService interface {
	Search(ctx context.Context, user *database.User, query string) ([]database.Recipe, error)
}

// DieticianService answers free-form nutrition questions
type DieticianService interface {
	Ask(ctx context.Context, user *database.User, question string) (string, error)
}

// Sender is the outbound half of the gateway adapter
type Sender interface {
	Send(chatID int64, text string) error
}
