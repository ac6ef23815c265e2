package services

import (
	"context"
	"time"

	"github.com/dietaryapp/dietary-bot/internal/database"
	"github.com/dietaryapp/dietary-bot/internal/domain"
	apperrors "github.com/dietaryapp/dietary-bot/internal/errors"
	"github.com/dietaryapp/dietary-bot/internal/utils"
)

// entryLister is the read-only slice of the persistence adapter the
// aggregation engine needs.
type entryLister interface {
	ListRange(ctx context.Context, userID uint, from, to time.Time) ([]database.Entry, error)
}

// SummaryService computes nutrition summaries over the ledger.
type SummaryService struct {
	entries entryLister
	now     func() time.Time
}

func NewSummaryService(entries entryLister) *SummaryService {
	return &SummaryService{entries: entries, now: time.Now}
}

// Summarize aggregates non-superseded entries eaten in [from, to).
// It is pure: identical entry sets yield identical summaries in any
// order. Entries with unresolved nutrition contribute zero to the
// totals and flag the summary incomplete.
func Summarize(entries []database.Entry, goals domain.Goals, from, to time.Time) domain.DailySummary {
	summary := domain.DailySummary{From: from, To: to}

	for _, entry := range entries {
		if entry.Superseded {
			continue
		}
		if entry.EatenAt.Before(from) || !entry.EatenAt.Before(to) {
			continue
		}

		summary.EntryCount++

		// Even one missing macro means the totals undercount; flag it
		// but keep adding whatever values the entry does carry.
		if entry.Calories == nil || entry.Proteins == nil || entry.Fats == nil || entry.Carbs == nil {
			summary.Incomplete = true
		}

		summary.Calories += deref(entry.Calories)
		summary.Proteins += deref(entry.Proteins)
		summary.Fats += deref(entry.Fats)
		summary.Carbs += deref(entry.Carbs)
	}

	summary.CalorieDelta = delta(summary.Calories, goals.Calories)
	summary.ProteinDelta = delta(summary.Proteins, goals.Proteins)
	summary.FatDelta = delta(summary.Fats, goals.Fats)
	summary.CarbDelta = delta(summary.Carbs, goals.Carbs)

	return summary
}

// Today summarizes the current calendar day in the user's timezone
func (s *SummaryService) Today(ctx context.Context, user *database.User) (domain.DailySummary, error) {
	loc := utils.Location(user.Timezone)
	from := utils.StartOfDay(s.now().In(loc))
	return s.summarizeRange(ctx, user, from, from.AddDate(0, 0, 1))
}

// Week summarizes the last seven calendar days in the user's timezone
func (s *SummaryService) Week(ctx context.Context, user *database.User) (domain.DailySummary, error) {
	loc := utils.Location(user.Timezone)
	to := utils.StartOfDay(s.now().In(loc)).AddDate(0, 0, 1)
	return s.summarizeRange(ctx, user, to.AddDate(0, 0, -7), to)
}

func (s *SummaryService) summarizeRange(ctx context.Context, user *database.User, from, to time.Time) (domain.DailySummary, error) {
	entries, err := s.entries.ListRange(ctx, user.ID, from, to)
	if err != nil {
		return domain.DailySummary{}, apperrors.NewPersistenceError(err)
	}
	return Summarize(entries, goalsOf(user), from, to), nil
}

func goalsOf(user *database.User) domain.Goals {
	return domain.Goals{
		Calories: user.DailyCalorieGoal,
		Proteins: user.DailyProteinGoal,
		Fats:     user.DailyFatGoal,
		Carbs:    user.DailyCarbGoal,
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// delta returns actual - goal, or nil when no goal is set
func delta(actual float64, goal *float64) *float64 {
	if goal == nil {
		return nil
	}
	d := actual - *goal
	return &d
}
