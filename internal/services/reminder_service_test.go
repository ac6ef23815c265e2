package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dietaryapp/dietary-bot/internal/database"
	"github.com/dietaryapp/dietary-bot/internal/domain"
	apperrors "github.com/dietaryapp/dietary-bot/internal/errors"
)

type stubReminderStore struct {
	created    []*database.Reminder
	active     []database.Reminder
	deliveries map[string]*database.ReminderDelivery
	statuses   map[string]string
	attempts   map[string]int
}

func newStubReminderStore() *stubReminderStore {
	return &stubReminderStore{
		deliveries: make(map[string]*database.ReminderDelivery),
		statuses:   make(map[string]string),
		attempts:   make(map[string]int),
	}
}

func deliveryKey(reminderID uint, occurrence string) string {
	return fmt.Sprintf("%d|%s", reminderID, occurrence)
}

func (s *stubReminderStore) Create(ctx context.Context, reminder *database.Reminder) error {
	s.created = append(s.created, reminder)
	return nil
}

func (s *stubReminderStore) ListByUser(ctx context.Context, userID uint) ([]database.Reminder, error) {
	return nil, nil
}

func (s *stubReminderStore) SetActive(ctx context.Context, userID, reminderID uint, active bool) error {
	return nil
}

func (s *stubReminderStore) ListActiveWithUsers(ctx context.Context) ([]database.Reminder, error) {
	return s.active, nil
}

func (s *stubReminderStore) Delivery(ctx context.Context, reminderID uint, occurrence string) (*database.ReminderDelivery, error) {
	return s.deliveries[deliveryKey(reminderID, occurrence)], nil
}

func (s *stubReminderStore) RecordAttempt(ctx context.Context, reminderID uint, occurrence string, now time.Time) error {
	s.attempts[deliveryKey(reminderID, occurrence)]++
	return nil
}

func (s *stubReminderStore) SetDeliveryStatus(ctx context.Context, reminderID uint, occurrence, status string, now time.Time) error {
	s.statuses[deliveryKey(reminderID, occurrence)] = status
	return nil
}

func TestCreateReminderDefaults(t *testing.T) {
	store := newStubReminderStore()
	svc := NewReminderService(store)

	reminder, err := svc.Create(context.Background(), 1, "8:5", "", "")
	require.NoError(t, err)

	assert.Equal(t, "08:05", reminder.TimeOfDay)
	assert.Equal(t, string(domain.RecurDaily), reminder.Recurrence)
	assert.NotEmpty(t, reminder.Message)
	assert.True(t, reminder.Active)
	require.Len(t, store.created, 1)
}

func TestCreateReminderRejectsBadTime(t *testing.T) {
	svc := NewReminderService(newStubReminderStore())

	for _, input := range []string{"25:00", "12:60", "", "утром", "12"} {
		_, err := svc.Create(context.Background(), 1, input, domain.RecurDaily, "")
		require.Error(t, err, "input %q", input)
		assert.True(t, apperrors.IsValidation(err))
	}
}

func TestCreateReminderRejectsUnknownRecurrence(t *testing.T) {
	svc := NewReminderService(newStubReminderStore())

	_, err := svc.Create(context.Background(), 1, "08:00", "fortnightly", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestMatches(t *testing.T) {
	monday := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	saturday := time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		recurrence domain.Recurrence
		timeOfDay  string
		local      time.Time
		want       bool
	}{
		{"daily at the minute", domain.RecurDaily, "08:00", monday, true},
		{"daily off the minute", domain.RecurDaily, "08:00", monday.Add(time.Minute), false},
		{"weekdays on monday", domain.RecurWeekdays, "08:00", monday, true},
		{"weekdays on saturday", domain.RecurWeekdays, "08:00", saturday, false},
		{"weekends on saturday", domain.RecurWeekends, "08:00", saturday, true},
		{"weekends on monday", domain.RecurWeekends, "08:00", monday, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.recurrence, tt.timeOfDay, tt.local))
		})
	}
}

func activeReminder(id uint, timeOfDay, timezone string) database.Reminder {
	reminder := database.Reminder{
		TimeOfDay:  timeOfDay,
		Recurrence: string(domain.RecurDaily),
		Message:    "пора поесть",
		Active:     true,
		User:       database.User{TelegramID: int64(id) * 100, Timezone: timezone},
	}
	reminder.ID = id
	return reminder
}

func TestDueReturnsMatchingOccurrences(t *testing.T) {
	store := newStubReminderStore()
	store.active = []database.Reminder{
		activeReminder(1, "08:00", "UTC"),
		activeReminder(2, "09:30", "UTC"),
	}
	svc := NewReminderService(store)

	now := time.Date(2024, 3, 4, 8, 0, 30, 0, time.UTC)
	due, err := svc.Due(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, due, 1)
	assert.Equal(t, uint(1), due[0].ReminderID)
	assert.Equal(t, int64(100), due[0].ChatID)
	assert.Equal(t, "2024-03-04", due[0].Occurrence)
}

func TestDueSkipsFinalizedOccurrences(t *testing.T) {
	store := newStubReminderStore()
	store.active = []database.Reminder{
		activeReminder(1, "08:00", "UTC"),
		activeReminder(2, "08:00", "UTC"),
	}
	store.deliveries[deliveryKey(1, "2024-03-04")] = &database.ReminderDelivery{Status: database.DeliveryFired}
	store.deliveries[deliveryKey(2, "2024-03-04")] = &database.ReminderDelivery{Status: database.DeliveryMissed}
	svc := NewReminderService(store)

	now := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	due, err := svc.Due(context.Background(), now)
	require.NoError(t, err)

	// Both occurrences already have a terminal dedup record
	assert.Empty(t, due)
}

func TestDueKeepsPendingOccurrencesForRetry(t *testing.T) {
	store := newStubReminderStore()
	store.active = []database.Reminder{activeReminder(1, "08:00", "UTC")}
	store.deliveries[deliveryKey(1, "2024-03-04")] = &database.ReminderDelivery{
		Status:         database.DeliveryPending,
		Attempts:       1,
		FirstAttemptAt: time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC),
	}
	svc := NewReminderService(store)

	// Well past 08:00, but the pending record keeps it due
	now := time.Date(2024, 3, 4, 8, 7, 0, 0, time.UTC)
	due, err := svc.Due(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, due, 1)
	assert.Equal(t, uint(1), due[0].ReminderID)
}

func TestDueUsesUserLocalOccurrenceDate(t *testing.T) {
	store := newStubReminderStore()
	store.active = []database.Reminder{activeReminder(1, "01:00", "Europe/Moscow")}
	svc := NewReminderService(store)

	// 22:00 UTC March 4th is 01:00 March 5th in Moscow
	now := time.Date(2024, 3, 4, 22, 0, 0, 0, time.UTC)
	due, err := svc.Due(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, due, 1)
	assert.Equal(t, "2024-03-05", due[0].Occurrence)
}
