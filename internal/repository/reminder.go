package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dietaryapp/dietary-bot/internal/database"
	"gorm.io/gorm"
)

// ReminderRepository handles reminder and delivery-dedup persistence
type ReminderRepository struct {
	db *gorm.DB
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Create stores a new reminder
func (r *ReminderRepository) Create(ctx context.Context, reminder *database.Reminder) error {
	return r.db.WithContext(ctx).Create(reminder).Error
}

// ListByUser returns all of the user's reminders, active and disabled
func (r *ReminderRepository) ListByUser(ctx context.Context, userID uint) ([]database.Reminder, error) {
	var reminders []database.Reminder
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("time_of_day ASC").
		Find(&reminders).Error
	if err != nil {
		return nil, err
	}
	return reminders, nil
}

// SetActive enables or disables a reminder. Disabled reminders are
// kept for history, never deleted.
func (r *ReminderRepository) SetActive(ctx context.Context, userID, reminderID uint, active bool) error {
	result := r.db.WithContext(ctx).Model(&database.Reminder{}).
		Where("id = ? AND user_id = ?", reminderID, userID).
		Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListActiveWithUsers returns all active reminders with their owners
// preloaded, for scheduler matching.
func (r *ReminderRepository) ListActiveWithUsers(ctx context.Context) ([]database.Reminder, error) {
	var reminders []database.Reminder
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("active = ?", true).
		Find(&reminders).Error
	if err != nil {
		return nil, err
	}
	return reminders, nil
}

// Delivery returns the dedup record of an occurrence, or nil when the
// occurrence has not been attempted yet.
func (r *ReminderRepository) Delivery(ctx context.Context, reminderID uint, occurrence string) (*database.ReminderDelivery, error) {
	var delivery database.ReminderDelivery
	err := r.db.WithContext(ctx).
		Where("reminder_id = ? AND occurrence_date = ?", reminderID, occurrence).
		First(&delivery).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// RecordAttempt upserts the pending dedup row of an occurrence and
// increments its attempt counter.
func (r *ReminderRepository) RecordAttempt(ctx context.Context, reminderID uint, occurrence string, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var delivery database.ReminderDelivery
		err := tx.Where("reminder_id = ? AND occurrence_date = ?", reminderID, occurrence).
			First(&delivery).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			delivery = database.ReminderDelivery{
				ReminderID:     reminderID,
				OccurrenceDate: occurrence,
				Status:         database.DeliveryPending,
				Attempts:       1,
				FirstAttemptAt: now,
			}
			return tx.Create(&delivery).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&delivery).Update("attempts", delivery.Attempts+1).Error
	})
}

// SetDeliveryStatus finalizes an occurrence as fired or missed,
// creating the dedup row if the first send already succeeded.
func (r *ReminderRepository) SetDeliveryStatus(ctx context.Context, reminderID uint, occurrence, status string, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var delivery database.ReminderDelivery
		err := tx.Where("reminder_id = ? AND occurrence_date = ?", reminderID, occurrence).
			First(&delivery).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			delivery = database.ReminderDelivery{
				ReminderID:     reminderID,
				OccurrenceDate: occurrence,
				Status:         status,
				Attempts:       1,
				FirstAttemptAt: now,
			}
			return tx.Create(&delivery).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&delivery).Update("status", status).Error
	})
}
