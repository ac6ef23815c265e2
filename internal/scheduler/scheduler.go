// Package scheduler delivers reminder occurrences independently of the
// inbound message flow.
package scheduler

import (
	"context"
	"time"

	"github.com/dietaryapp/dietary-bot/internal/domain"
	"github.com/dietaryapp/dietary-bot/internal/interfaces"
	"github.com/dietaryapp/dietary-bot/internal/logger"
)

// Scheduler periodically queries due reminder occurrences and pushes
// them through the gateway. It shares no locks with message handling.
type Scheduler struct {
	reminders   interfaces.ReminderService
	sender      interfaces.Sender
	interval    time.Duration
	retryWindow time.Duration
	now         func() time.Time
}

func New(reminders interfaces.ReminderService, sender interfaces.Sender, interval, retryWindow time.Duration) *Scheduler {
	return &Scheduler{
		reminders:   reminders,
		sender:      sender,
		interval:    interval,
		retryWindow: retryWindow,
		now:         time.Now,
	}
}

// Run ticks until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Infof("Reminder scheduler started, tick interval %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Reminder scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx, s.now())
		}
	}
}

// Tick processes every due occurrence once. Failed sends keep their
// dedup record pending and retry on later ticks until the retry window
// elapses; then the occurrence is recorded as permanently missed so it
// can never flood a later tick.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	due, err := s.reminders.Due(ctx, now)
	if err != nil {
		logger.Errorf("Failed to query due reminders: %v", err)
		return
	}

	for _, occurrence := range due {
		s.deliver(ctx, occurrence, now)
	}
}

func (s *Scheduler) deliver(ctx context.Context, due domain.DueReminder, now time.Time) {
	delivery, err := s.reminders.Delivery(ctx, due.ReminderID, due.Occurrence)
	if err != nil {
		logger.Errorf("Failed to load delivery record for reminder %d: %v", due.ReminderID, err)
		return
	}

	if delivery != nil && now.Sub(delivery.FirstAttemptAt) > s.retryWindow {
		logger.Errorf("Reminder %d occurrence %s permanently missed after %d attempts",
			due.ReminderID, due.Occurrence, delivery.Attempts)
		if err := s.reminders.MarkMissed(ctx, due.ReminderID, due.Occurrence, now); err != nil {
			logger.Errorf("Failed to mark occurrence missed: %v", err)
		}
		return
	}

	if err := s.sender.Send(due.ChatID, due.Message); err != nil {
		// The occurrence stays pending; the next tick retries it
		logger.Warningf("Reminder %d delivery failed, will retry: %v", due.ReminderID, err)
		if err := s.reminders.RecordAttempt(ctx, due.ReminderID, due.Occurrence, now); err != nil {
			logger.Errorf("Failed to record delivery attempt: %v", err)
		}
		return
	}

	if err := s.reminders.MarkFired(ctx, due.ReminderID, due.Occurrence, now); err != nil {
		logger.Errorf("Failed to mark occurrence fired: %v", err)
	}
}
