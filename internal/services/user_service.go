package services

import (
	"context"
	"fmt"

	"github.com/dietaryapp/dietary-bot/internal/database"
	apperrors "github.com/dietaryapp/dietary-bot/internal/errors"
)

type userStore interface {
	GetOrCreate(ctx context.Context, telegramID int64, username, firstName, lastName, languageCode, timezone string) (*database.User, error)
	SetCalorieGoal(ctx context.Context, userID uint, kcal float64) error
	ToggleProfileFlag(ctx context.Context, userID uint, flag string) (bool, error)
}

// UserService manages user registration, goals and the dietary profile.
type UserService struct {
	store           userStore
	defaultTimezone string
}

func NewUserService(store userStore, defaultTimezone string) *UserService {
	return &UserService{store: store, defaultTimezone: defaultTimezone}
}

// RegisterUser gets an existing user or creates a new one with the
// configured default timezone.
func (s *UserService) RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName, languageCode string) (*database.User, error) {
	user, err := s.store.GetOrCreate(ctx, telegramID, username, firstName, lastName, languageCode, s.defaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

// SetCalorieGoal sets the user's daily calorie target
func (s *UserService) SetCalorieGoal(ctx context.Context, userID uint, kcal float64) error {
	if kcal <= 0 {
		return apperrors.NewValidationError("цель по калориям должна быть больше нуля")
	}
	if err := s.store.SetCalorieGoal(ctx, userID, kcal); err != nil {
		return apperrors.NewPersistenceError(err)
	}
	return nil
}

// ToggleProfileFlag flips a dietary profile flag and returns the new value
func (s *UserService) ToggleProfileFlag(ctx context.Context, userID uint, flag string) (bool, error) {
	value, err := s.store.ToggleProfileFlag(ctx, userID, flag)
	if err != nil {
		return false, apperrors.NewPersistenceError(err)
	}
	return value, nil
}
