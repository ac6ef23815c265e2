package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dietaryapp/dietary-bot/internal/database"
	"github.com/dietaryapp/dietary-bot/internal/domain"
)

type fakeReminderService struct {
	due        []domain.DueReminder
	deliveries map[string]*database.ReminderDelivery
	fired      []string
	missed     []string
	attempts   []string
}

func newFakeReminderService() *fakeReminderService {
	return &fakeReminderService{deliveries: make(map[string]*database.ReminderDelivery)}
}

func key(reminderID uint, occurrence string) string {
	return fmt.Sprintf("%d|%s", reminderID, occurrence)
}

func (f *fakeReminderService) Create(ctx context.Context, userID uint, timeOfDay string, recurrence domain.Recurrence, message string) (*database.Reminder, error) {
	return nil, nil
}

func (f *fakeReminderService) List(ctx context.Context, userID uint) ([]database.Reminder, error) {
	return nil, nil
}

func (f *fakeReminderService) SetActive(ctx context.Context, userID, reminderID uint, active bool) error {
	return nil
}

func (f *fakeReminderService) Due(ctx context.Context, now time.Time) ([]domain.DueReminder, error) {
	return f.due, nil
}

func (f *fakeReminderService) Delivery(ctx context.Context, reminderID uint, occurrence string) (*database.ReminderDelivery, error) {
	return f.deliveries[key(reminderID, occurrence)], nil
}

func (f *fakeReminderService) RecordAttempt(ctx context.Context, reminderID uint, occurrence string, now time.Time) error {
	f.attempts = append(f.attempts, key(reminderID, occurrence))
	return nil
}

func (f *fakeReminderService) MarkFired(ctx context.Context, reminderID uint, occurrence string, now time.Time) error {
	f.fired = append(f.fired, key(reminderID, occurrence))
	return nil
}

func (f *fakeReminderService) MarkMissed(ctx context.Context, reminderID uint, occurrence string, now time.Time) error {
	f.missed = append(f.missed, key(reminderID, occurrence))
	return nil
}

type fakeSender struct {
	err  error
	sent []string
}

func (f *fakeSender) Send(chatID int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, fmt.Sprintf("%d:%s", chatID, text))
	return nil
}

func dueReminder() domain.DueReminder {
	return domain.DueReminder{ReminderID: 1, ChatID: 100, Message: "пора поесть", Occurrence: "2024-03-04"}
}

func TestTickDeliversAndFinalizes(t *testing.T) {
	service := newFakeReminderService()
	service.due = []domain.DueReminder{dueReminder()}
	sender := &fakeSender{}
	s := New(service, sender, time.Minute, 10*time.Minute)

	s.Tick(context.Background(), time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "100:пора поесть", sender.sent[0])
	assert.Equal(t, []string{"1|2024-03-04"}, service.fired)
	assert.Empty(t, service.missed)
	assert.Empty(t, service.attempts)
}

func TestTickRecordsFailedAttempt(t *testing.T) {
	service := newFakeReminderService()
	service.due = []domain.DueReminder{dueReminder()}
	sender := &fakeSender{err: errors.New("network down")}
	s := New(service, sender, time.Minute, 10*time.Minute)

	s.Tick(context.Background(), time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC))

	// The occurrence stays pending so a later tick retries it
	assert.Equal(t, []string{"1|2024-03-04"}, service.attempts)
	assert.Empty(t, service.fired)
	assert.Empty(t, service.missed)
}

func TestTickRetriesWithinWindow(t *testing.T) {
	service := newFakeReminderService()
	service.due = []domain.DueReminder{dueReminder()}
	firstAttempt := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	service.deliveries[key(1, "2024-03-04")] = &database.ReminderDelivery{
		Status:         database.DeliveryPending,
		Attempts:       2,
		FirstAttemptAt: firstAttempt,
	}
	sender := &fakeSender{}
	s := New(service, sender, time.Minute, 10*time.Minute)

	s.Tick(context.Background(), firstAttempt.Add(5*time.Minute))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"1|2024-03-04"}, service.fired)
}

func TestTickMarksMissedAfterRetryWindow(t *testing.T) {
	service := newFakeReminderService()
	service.due = []domain.DueReminder{dueReminder()}
	firstAttempt := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	service.deliveries[key(1, "2024-03-04")] = &database.ReminderDelivery{
		Status:         database.DeliveryPending,
		Attempts:       5,
		FirstAttemptAt: firstAttempt,
	}
	sender := &fakeSender{}
	s := New(service, sender, time.Minute, 10*time.Minute)

	s.Tick(context.Background(), firstAttempt.Add(11*time.Minute))

	// No send once the window elapsed; the occurrence is terminal
	assert.Empty(t, sender.sent)
	assert.Equal(t, []string{"1|2024-03-04"}, service.missed)
	assert.Empty(t, service.fired)
}
