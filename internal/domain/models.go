package domain

import (
	"time"
)

// MealType classifies a diary entry by meal of the day.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// Recurrence is the repetition rule of a reminder.
type Recurrence string

const (
	RecurDaily    Recurrence = "daily"
	RecurWeekdays Recurrence = "weekdays"
	RecurWeekends Recurrence = "weekends"
)

// Confidence grades a nutrition estimate.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// EntryDraft carries the fields of a diary entry collected across a
// dialogue before it is validated and persisted.
type EntryDraft struct {
	Description string
	Quantity    float64
	Unit        string
	MealType    MealType
	EatenAt     time.Time
	Calories    *float64
	Proteins    *float64
	Fats        *float64
	Carbs       *float64
}

// MacroEstimate is the nutrition breakdown returned by the estimator
// for a described portion.
type MacroEstimate struct {
	Calories   float64
	Proteins   float64
	Fats       float64
	Carbs      float64
	Confidence Confidence
}

// Goals are the user's daily targets. A nil field means no goal is set.
type Goals struct {
	Calories *float64
	Proteins *float64
	Fats     *float64
	Carbs    *float64
}

// DailySummary is computed on demand from non-superseded entries in a
// range. It is never persisted, so it cannot drift from the ledger.
type DailySummary struct {
	From       time.Time
	To         time.Time
	EntryCount int

	Calories float64
	Proteins float64
	Fats     float64
	Carbs    float64

	// Deltas are actual minus goal; nil when the goal is not set.
	CalorieDelta *float64
	ProteinDelta *float64
	FatDelta     *float64
	CarbDelta    *float64

	// Incomplete is set when at least one entry in the range has
	// unresolved nutrition values, so its macros counted as zero.
	Incomplete bool
}

// DueReminder is one reminder occurrence the scheduler should deliver.
type DueReminder struct {
	ReminderID uint
	ChatID     int64
	Message    string
	// Occurrence is the dedup date key in the user's timezone,
	// formatted as 2006-01-02.
	Occurrence string
}
