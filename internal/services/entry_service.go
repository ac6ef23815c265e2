package services

import (
	"context"
	"strings"
	"time"

	"github.com/dietaryapp/dietary-bot/internal/database"
	"github.com/dietaryapp/dietary-bot/internal/domain"
	apperrors "github.com/dietaryapp/dietary-bot/internal/errors"
	"github.com/dietaryapp/dietary-bot/internal/logger"
	"github.com/google/uuid"
)

// clockSkewTolerance allows entry timestamps slightly in the future,
// covering clients with drifting clocks.
const clockSkewTolerance = 2 * time.Minute

// entryStore is the slice of the persistence adapter the ledger needs.
type entryStore interface {
	Insert(ctx context.Context, entry *database.Entry) error
	Replace(ctx context.Context, userID uint, actionID string, replacement *database.Entry) error
	FindActive(ctx context.Context, userID uint, actionID string) (*database.Entry, error)
}

// EntryService validates and persists diary entries. Confirmed writes
// are retried with bounded backoff before the failure is surfaced.
type EntryService struct {
	store       entryStore
	maxAttempts int
	retryDelay  time.Duration
	now         func() time.Time
}

func NewEntryService(store entryStore) *EntryService {
	return &EntryService{
		store:       store,
		maxAttempts: 3,
		retryDelay:  200 * time.Millisecond,
		now:         time.Now,
	}
}

// Add persists a new entry under a fresh log action
func (s *EntryService) Add(ctx context.Context, userID uint, draft domain.EntryDraft) (*database.Entry, error) {
	entry, err := s.buildEntry(userID, draft)
	if err != nil {
		return nil, err
	}
	entry.ActionID = uuid.NewString()

	if err := s.withRetry(ctx, func() error {
		return s.store.Insert(ctx, entry)
	}); err != nil {
		return nil, err
	}

	return entry, nil
}

// Correct replaces the active entry of an existing log action. The
// supersede and the insert are one transactional unit in the store.
func (s *EntryService) Correct(ctx context.Context, userID uint, actionID string, draft domain.EntryDraft) (*database.Entry, error) {
	entry, err := s.buildEntry(userID, draft)
	if err != nil {
		return nil, err
	}

	if err := s.withRetry(ctx, func() error {
		return s.store.Replace(ctx, userID, actionID, entry)
	}); err != nil {
		return nil, err
	}

	return entry, nil
}

// GetActive returns the non-superseded entry of a log action
func (s *EntryService) GetActive(ctx context.Context, userID uint, actionID string) (*database.Entry, error) {
	entry, err := s.store.FindActive(ctx, userID, actionID)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return entry, nil
}

func (s *EntryService) buildEntry(userID uint, draft domain.EntryDraft) (*database.Entry, error) {
	if strings.TrimSpace(draft.Description) == "" {
		return nil, apperrors.NewValidationError("описание не может быть пустым")
	}
	if draft.Quantity <= 0 {
		return nil, apperrors.NewValidationError("количество должно быть больше нуля")
	}

	eatenAt := draft.EatenAt
	if eatenAt.IsZero() {
		eatenAt = s.now()
	}
	if eatenAt.After(s.now().Add(clockSkewTolerance)) {
		return nil, apperrors.NewValidationError("время приёма пищи не может быть в будущем")
	}

	mealType := draft.MealType
	if mealType == "" {
		mealType = domain.MealSnack
	}

	return &database.Entry{
		UserID:      userID,
		Description: strings.TrimSpace(draft.Description),
		Quantity:    draft.Quantity,
		Unit:        draft.Unit,
		MealType:    string(mealType),
		EatenAt:     eatenAt,
		Calories:    draft.Calories,
		Proteins:    draft.Proteins,
		Fats:        draft.Fats,
		Carbs:       draft.Carbs,
	}, nil
}

// withRetry runs a persistence write up to maxAttempts times with
// linear backoff. Exhaustion surfaces a persistence error; nothing
// partial remains because each attempt is its own transaction.
func (s *EntryService) withRetry(ctx context.Context, write func() error) error {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		lastErr = write()
		if lastErr == nil {
			return nil
		}

		logger.Warningf("Entry write attempt %d/%d failed: %v", attempt, s.maxAttempts, lastErr)
		if attempt == s.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return apperrors.NewPersistenceError(ctx.Err())
		case <-time.After(s.retryDelay * time.Duration(attempt)):
		}
	}
	return apperrors.NewPersistenceError(lastErr)
}
