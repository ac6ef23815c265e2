package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dietaryapp/dietary-bot/internal/database"
	"github.com/dietaryapp/dietary-bot/internal/domain"
)

func ptr(v float64) *float64 {
	return &v
}

func entryAt(eatenAt time.Time, calories float64) database.Entry {
	return database.Entry{
		Description: "тест",
		Quantity:    100,
		Unit:        "г",
		EatenAt:     eatenAt,
		Calories:    ptr(calories),
		Proteins:    ptr(10),
		Fats:        ptr(5),
		Carbs:       ptr(20),
	}
}

func TestSummarizeTotals(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	entries := []database.Entry{
		entryAt(from.Add(8*time.Hour), 300),
		entryAt(from.Add(13*time.Hour), 500),
	}

	summary := Summarize(entries, domain.Goals{}, from, to)

	assert.Equal(t, 2, summary.EntryCount)
	assert.InDelta(t, 800, summary.Calories, 0.001)
	assert.InDelta(t, 20, summary.Proteins, 0.001)
	assert.InDelta(t, 10, summary.Fats, 0.001)
	assert.InDelta(t, 40, summary.Carbs, 0.001)
	assert.False(t, summary.Incomplete)
	assert.Nil(t, summary.CalorieDelta)
}

func TestSummarizeIsOrderIndependent(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	entries := []database.Entry{
		entryAt(from.Add(8*time.Hour), 300),
		entryAt(from.Add(13*time.Hour), 500),
		entryAt(from.Add(19*time.Hour), 700),
	}
	reversed := []database.Entry{entries[2], entries[1], entries[0]}

	assert.Equal(t, Summarize(entries, domain.Goals{}, from, to), Summarize(reversed, domain.Goals{}, from, to))
	// Repeated calls over the same set yield the same summary
	assert.Equal(t, Summarize(entries, domain.Goals{}, from, to), Summarize(entries, domain.Goals{}, from, to))
}

func TestSummarizeSkipsSuperseded(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	old := entryAt(from.Add(8*time.Hour), 900)
	old.Superseded = true
	corrected := entryAt(from.Add(8*time.Hour), 300)

	summary := Summarize([]database.Entry{old, corrected}, domain.Goals{}, from, to)

	assert.Equal(t, 1, summary.EntryCount)
	assert.InDelta(t, 300, summary.Calories, 0.001)
}

func TestSummarizeSkipsOutOfRange(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	entries := []database.Entry{
		entryAt(from.Add(-time.Minute), 100), // day before
		entryAt(from, 200),                   // inclusive lower bound
		entryAt(to, 400),                     // exclusive upper bound
	}

	summary := Summarize(entries, domain.Goals{}, from, to)

	assert.Equal(t, 1, summary.EntryCount)
	assert.InDelta(t, 200, summary.Calories, 0.001)
}

func TestSummarizeFlagsIncomplete(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	unresolved := database.Entry{
		Description: "домашний суп",
		Quantity:    300,
		Unit:        "г",
		EatenAt:     from.Add(12 * time.Hour),
	}
	entries := []database.Entry{unresolved, entryAt(from.Add(8*time.Hour), 300)}

	summary := Summarize(entries, domain.Goals{}, from, to)

	// The unresolved entry is counted but contributes zero
	assert.Equal(t, 2, summary.EntryCount)
	assert.True(t, summary.Incomplete)
	assert.InDelta(t, 300, summary.Calories, 0.001)
}

func TestSummarizeFlagsPartialEstimate(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	// Calories resolved but macros missing: the totals undercount the
	// macros, so the summary must say so.
	partial := database.Entry{
		Description: "бульон",
		Quantity:    250,
		Unit:        "мл",
		EatenAt:     from.Add(12 * time.Hour),
		Calories:    ptr(80),
	}
	entries := []database.Entry{partial, entryAt(from.Add(8*time.Hour), 300)}

	summary := Summarize(entries, domain.Goals{}, from, to)

	assert.True(t, summary.Incomplete)
	// The resolved values still count
	assert.InDelta(t, 380, summary.Calories, 0.001)
	assert.InDelta(t, 10, summary.Proteins, 0.001)
}

func TestSummarizeGoalDeltas(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	entries := []database.Entry{entryAt(from.Add(8*time.Hour), 1500)}
	goals := domain.Goals{Calories: ptr(2000)}

	summary := Summarize(entries, goals, from, to)

	require.NotNil(t, summary.CalorieDelta)
	assert.InDelta(t, -500, *summary.CalorieDelta, 0.001)
	// Unset goals never produce a delta
	assert.Nil(t, summary.ProteinDelta)
	assert.Nil(t, summary.FatDelta)
	assert.Nil(t, summary.CarbDelta)
}

type stubEntryLister struct {
	entries []database.Entry
	err     error
	from    time.Time
	to      time.Time
}

func (s *stubEntryLister) ListRange(ctx context.Context, userID uint, from, to time.Time) ([]database.Entry, error) {
	s.from, s.to = from, to
	return s.entries, s.err
}

func TestSummaryServiceTodayUsesUserTimezone(t *testing.T) {
	lister := &stubEntryLister{}
	svc := NewSummaryService(lister)
	// 22:30 UTC on March 1st is already March 2nd in Moscow
	svc.now = func() time.Time {
		return time.Date(2024, 3, 1, 22, 30, 0, 0, time.UTC)
	}

	user := &database.User{Timezone: "Europe/Moscow"}
	_, err := svc.Today(context.Background(), user)
	require.NoError(t, err)

	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, moscow), lister.from.In(moscow))
	assert.Equal(t, 24*time.Hour, lister.to.Sub(lister.from))
}

func TestSummaryServiceWeekCoversSevenDays(t *testing.T) {
	lister := &stubEntryLister{}
	svc := NewSummaryService(lister)
	svc.now = func() time.Time {
		return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	}

	user := &database.User{Timezone: "UTC"}
	_, err := svc.Week(context.Background(), user)
	require.NoError(t, err)

	assert.Equal(t, 7*24*time.Hour, lister.to.Sub(lister.from))
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), lister.to)
}
