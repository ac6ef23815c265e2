// Package state keeps per-user dialogue sessions: the current state of
// the finite-state machine plus the transient buffer collected across
// turns. Backends: process memory or Redis.
package state

import "time"

// State enumerates the dialogue states
type State string

const (
	Idle                 State = "idle"
	AwaitingDescription  State = "awaiting_description"
	AwaitingQuantity     State = "awaiting_quantity"
	AwaitingConfirmation State = "awaiting_confirmation"
	AwaitingReminderTime State = "awaiting_reminder_time"
	AwaitingQuestion     State = "awaiting_question"
	AwaitingRecipeQuery  State = "awaiting_recipe_query"
)

// Buffer holds the partially-entered fields of an in-progress flow.
// It is discarded on completion, cancellation and timeout.
type Buffer struct {
	Description string   `json:"description,omitempty"`
	Quantity    float64  `json:"quantity,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	MealType    string   `json:"meal_type,omitempty"`
	Calories    *float64 `json:"calories,omitempty"`
	Proteins    *float64 `json:"proteins,omitempty"`
	Fats        *float64 `json:"fats,omitempty"`
	Carbs       *float64 `json:"carbs,omitempty"`
	Confidence  string   `json:"confidence,omitempty"`

	// CorrectsActionID is set when the flow corrects an existing entry
	// instead of creating a new one.
	CorrectsActionID string `json:"corrects_action_id,omitempty"`
}

// Session is one user's current dialogue state
type Session struct {
	State     State     `json:"state"`
	Buffer    Buffer    `json:"buffer"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store abstracts the session backend. Implementations must be safe
// for concurrent use; per-user serialization is the dispatcher's job.
type Store interface {
	Get(userID int64) (Session, bool)
	Set(userID int64, session Session)
	Clear(userID int64)
}
