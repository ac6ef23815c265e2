package services

import (
	"context"
	"time"

	"github.com/dietaryapp/dietary-bot/internal/database"
	"github.com/dietaryapp/dietary-bot/internal/domain"
	apperrors "github.com/dietaryapp/dietary-bot/internal/errors"
	"github.com/dietaryapp/dietary-bot/internal/utils"
)

// reminderStore is the slice of the persistence adapter the reminder
// subsystem needs.
type reminderStore interface {
	Create(ctx context.Context, reminder *database.Reminder) error
	ListByUser(ctx context.Context, userID uint) ([]database.Reminder, error)
	SetActive(ctx context.Context, userID, reminderID uint, active bool) error
	ListActiveWithUsers(ctx context.Context) ([]database.Reminder, error)
	Delivery(ctx context.Context, reminderID uint, occurrence string) (*database.ReminderDelivery, error)
	RecordAttempt(ctx context.Context, reminderID uint, occurrence string, now time.Time) error
	SetDeliveryStatus(ctx context.Context, reminderID uint, occurrence, status string, now time.Time) error
}

// ReminderService manages reminders and the per-occurrence dedup
// records the scheduler relies on.
type ReminderService struct {
	store reminderStore
}

func NewReminderService(store reminderStore) *ReminderService {
	return &ReminderService{store: store}
}

// Create validates and stores a new reminder
func (s *ReminderService) Create(ctx context.Context, userID uint, timeOfDay string, recurrence domain.Recurrence, message string) (*database.Reminder, error) {
	normalized, err := utils.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return nil, apperrors.NewValidationError("время напоминания должно быть в формате ЧЧ:ММ")
	}

	switch recurrence {
	case domain.RecurDaily, domain.RecurWeekdays, domain.RecurWeekends:
	case "":
		recurrence = domain.RecurDaily
	default:
		return nil, apperrors.NewValidationError("неизвестное правило повторения")
	}

	if message == "" {
		message = "⏰ Напоминание: не забудьте записать приём пищи!"
	}

	reminder := &database.Reminder{
		UserID:     userID,
		TimeOfDay:  normalized,
		Recurrence: string(recurrence),
		Message:    message,
		Active:     true,
	}

	if err := s.store.Create(ctx, reminder); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}

	return reminder, nil
}

// List returns all of the user's reminders
func (s *ReminderService) List(ctx context.Context, userID uint) ([]database.Reminder, error) {
	reminders, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return reminders, nil
}

// SetActive enables or disables a reminder without deleting it
func (s *ReminderService) SetActive(ctx context.Context, userID, reminderID uint, active bool) error {
	if err := s.store.SetActive(ctx, userID, reminderID, active); err != nil {
		return apperrors.NewPersistenceError(err)
	}
	return nil
}

// Matches reports whether a reminder with the given rule fires at the
// user-local time, at minute precision.
func Matches(recurrence domain.Recurrence, timeOfDay string, local time.Time) bool {
	if local.Format("15:04") != timeOfDay {
		return false
	}

	weekday := local.Weekday()
	switch recurrence {
	case domain.RecurWeekdays:
		return weekday != time.Saturday && weekday != time.Sunday
	case domain.RecurWeekends:
		return weekday == time.Saturday || weekday == time.Sunday
	default:
		return true
	}
}

// Due returns the reminder occurrences matching now that have not been
// finalized yet. Occurrences with pending delivery records stay due so
// failed sends retry on subsequent ticks.
func (s *ReminderService) Due(ctx context.Context, now time.Time) ([]domain.DueReminder, error) {
	reminders, err := s.store.ListActiveWithUsers(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}

	var due []domain.DueReminder
	for _, reminder := range reminders {
		local := now.In(utils.Location(reminder.User.Timezone))
		occurrence := local.Format("2006-01-02")

		delivery, err := s.store.Delivery(ctx, reminder.ID, occurrence)
		if err != nil {
			return nil, apperrors.NewPersistenceError(err)
		}
		if delivery != nil && delivery.Status != database.DeliveryPending {
			continue
		}

		// A pending record means a failed send is waiting for retry;
		// it stays due regardless of the current minute.
		if delivery == nil && !Matches(domain.Recurrence(reminder.Recurrence), reminder.TimeOfDay, local) {
			continue
		}

		due = append(due, domain.DueReminder{
			ReminderID: reminder.ID,
			ChatID:     reminder.User.TelegramID,
			Message:    reminder.Message,
			Occurrence: occurrence,
		})
	}

	return due, nil
}

// Delivery exposes the dedup record of an occurrence
func (s *ReminderService) Delivery(ctx context.Context, reminderID uint, occurrence string) (*database.ReminderDelivery, error) {
	delivery, err := s.store.Delivery(ctx, reminderID, occurrence)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return delivery, nil
}

// RecordAttempt notes one failed delivery attempt
func (s *ReminderService) RecordAttempt(ctx context.Context, reminderID uint, occurrence string, now time.Time) error {
	if err := s.store.RecordAttempt(ctx, reminderID, occurrence, now); err != nil {
		return apperrors.NewPersistenceError(err)
	}
	return nil
}

// MarkFired finalizes an occurrence as delivered
func (s *ReminderService) MarkFired(ctx context.Context, reminderID uint, occurrence string, now time.Time) error {
	if err := s.store.SetDeliveryStatus(ctx, reminderID, occurrence, database.DeliveryFired, now); err != nil {
		return apperrors.NewPersistenceError(err)
	}
	return nil
}

// MarkMissed finalizes an occurrence as permanently missed. The dedup
// record stays so the occurrence never floods later ticks.
func (s *ReminderService) MarkMissed(ctx context.Context, reminderID uint, occurrence string, now time.Time) error {
	if err := s.store.SetDeliveryStatus(ctx, reminderID, occurrence, database.DeliveryMissed, now); err != nil {
		return apperrors.NewPersistenceError(err)
	}
	return nil
}
