package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dietaryapp/dietary-bot/internal/database"
	"github.com/dietaryapp/dietary-bot/internal/domain"
	apperrors "github.com/dietaryapp/dietary-bot/internal/errors"
)

type stubEntryStore struct {
	failures int // number of writes that fail before one succeeds

	inserted      []*database.Entry
	replaced      []*database.Entry
	replaceAction string
	active        *database.Entry
	findErr       error
	attempts      int
}

func (s *stubEntryStore) Insert(ctx context.Context, entry *database.Entry) error {
	s.attempts++
	if s.failures > 0 {
		s.failures--
		return errors.New("connection reset")
	}
	s.inserted = append(s.inserted, entry)
	return nil
}

func (s *stubEntryStore) Replace(ctx context.Context, userID uint, actionID string, replacement *database.Entry) error {
	s.attempts++
	if s.failures > 0 {
		s.failures--
		return errors.New("connection reset")
	}
	s.replaceAction = actionID
	replacement.ActionID = actionID
	s.replaced = append(s.replaced, replacement)
	return nil
}

func (s *stubEntryStore) FindActive(ctx context.Context, userID uint, actionID string) (*database.Entry, error) {
	return s.active, s.findErr
}

func newTestEntryService(store *stubEntryStore) *EntryService {
	svc := NewEntryService(store)
	svc.retryDelay = time.Millisecond
	return svc
}

func validDraft() domain.EntryDraft {
	return domain.EntryDraft{
		Description: "рис отварной",
		Quantity:    200,
		Unit:        "г",
	}
}

func TestAddRejectsEmptyDescription(t *testing.T) {
	svc := newTestEntryService(&stubEntryStore{})

	draft := validDraft()
	draft.Description = "   "
	_, err := svc.Add(context.Background(), 1, draft)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	svc := newTestEntryService(&stubEntryStore{})

	for _, quantity := range []float64{0, -1} {
		draft := validDraft()
		draft.Quantity = quantity
		_, err := svc.Add(context.Background(), 1, draft)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	}
}

func TestAddRejectsFutureTimestamp(t *testing.T) {
	svc := newTestEntryService(&stubEntryStore{})

	draft := validDraft()
	draft.EatenAt = time.Now().Add(time.Hour)
	_, err := svc.Add(context.Background(), 1, draft)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAddToleratesClockSkew(t *testing.T) {
	store := &stubEntryStore{}
	svc := newTestEntryService(store)

	draft := validDraft()
	draft.EatenAt = time.Now().Add(time.Minute)
	_, err := svc.Add(context.Background(), 1, draft)

	require.NoError(t, err)
}

func TestAddAssignsActionID(t *testing.T) {
	store := &stubEntryStore{}
	svc := newTestEntryService(store)

	entry, err := svc.Add(context.Background(), 7, validDraft())
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ActionID)
	assert.Equal(t, uint(7), entry.UserID)
	assert.Equal(t, string(domain.MealSnack), entry.MealType)
	assert.False(t, entry.EatenAt.IsZero())
	require.Len(t, store.inserted, 1)

	second, err := svc.Add(context.Background(), 7, validDraft())
	require.NoError(t, err)
	assert.NotEqual(t, entry.ActionID, second.ActionID)
}

func TestAddRetriesTransientFailure(t *testing.T) {
	store := &stubEntryStore{failures: 2}
	svc := newTestEntryService(store)

	_, err := svc.Add(context.Background(), 1, validDraft())

	require.NoError(t, err)
	assert.Equal(t, 3, store.attempts)
	assert.Len(t, store.inserted, 1)
}

func TestAddSurfacesPersistenceErrorAfterExhaustion(t *testing.T) {
	store := &stubEntryStore{failures: 10}
	svc := newTestEntryService(store)

	_, err := svc.Add(context.Background(), 1, validDraft())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersistence))
	assert.Equal(t, 3, store.attempts)
	assert.Empty(t, store.inserted)
}

func TestCorrectReplacesUnderSameAction(t *testing.T) {
	store := &stubEntryStore{}
	svc := newTestEntryService(store)

	draft := validDraft()
	draft.Description = "гречка"
	entry, err := svc.Correct(context.Background(), 1, "action-123", draft)

	require.NoError(t, err)
	assert.Equal(t, "action-123", store.replaceAction)
	assert.Equal(t, "action-123", entry.ActionID)
	require.Len(t, store.replaced, 1)
	assert.Equal(t, "гречка", store.replaced[0].Description)
}

func TestCorrectValidatesBeforeWriting(t *testing.T) {
	store := &stubEntryStore{}
	svc := newTestEntryService(store)

	draft := validDraft()
	draft.Quantity = 0
	_, err := svc.Correct(context.Background(), 1, "action-123", draft)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Zero(t, store.attempts)
}

func TestGetActiveWrapsStoreError(t *testing.T) {
	store := &stubEntryStore{findErr: errors.New("boom")}
	svc := newTestEntryService(store)

	_, err := svc.GetActive(context.Background(), 1, "action-123")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersistence))
}
