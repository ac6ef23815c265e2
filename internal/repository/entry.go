package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dietaryapp/dietary-bot/internal/database"
	"gorm.io/gorm"
)

// EntryRepository handles diary entry persistence
type EntryRepository struct {
	db *gorm.DB
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Insert stores a new confirmed entry
func (r *EntryRepository) Insert(ctx context.Context, entry *database.Entry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Replace supersedes the active entry of the given log action and
// inserts its replacement. Both writes happen in one transaction so a
// concurrent correction can never leave two active rows.
func (r *EntryRepository) Replace(ctx context.Context, userID uint, actionID string, replacement *database.Entry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&database.Entry{}).
			Where("user_id = ? AND action_id = ? AND superseded = ?", userID, actionID, false).
			Update("superseded", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("no active entry for action %s: %w", actionID, gorm.ErrRecordNotFound)
		}

		replacement.ActionID = actionID
		replacement.Superseded = false
		return tx.Create(replacement).Error
	})
}

// FindActive returns the non-superseded entry of a log action
func (r *EntryRepository) FindActive(ctx context.Context, userID uint, actionID string) (*database.Entry, error) {
	var entry database.Entry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND action_id = ? AND superseded = ?", userID, actionID, false).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListRange returns the user's non-superseded entries eaten in
// [from, to), oldest first.
func (r *EntryRepository) ListRange(ctx context.Context, userID uint, from, to time.Time) ([]database.Entry, error) {
	var entries []database.Entry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND superseded = ? AND eaten_at >= ? AND eaten_at < ?", userID, false, from, to).
		Order("eaten_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
