package repository

import (
	"context"
	"fmt"

	"github.com/dietaryapp/dietary-bot/internal/database"
	"gorm.io/gorm"
)

// UserRepository handles user data operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreate gets an existing user or creates a new one
func (r *UserRepository) GetOrCreate(ctx context.Context, telegramID int64, username, firstName, lastName, languageCode, timezone string) (*database.User, error) {
	var user database.User
	result := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user)
	if result.Error == nil {
		return &user, nil
	}

	if result.Error != gorm.ErrRecordNotFound {
		return nil, result.Error
	}

	if languageCode == "" {
		languageCode = "ru"
	}

	user = database.User{
		TelegramID:   telegramID,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		LanguageCode: languageCode,
		Timezone:     timezone,
	}

	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// GetByTelegramID gets a user by their Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*database.User, error) {
	var user database.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetCalorieGoal updates the user's daily calorie goal
func (r *UserRepository) SetCalorieGoal(ctx context.Context, userID uint, kcal float64) error {
	return r.db.WithContext(ctx).Model(&database.User{}).
		Where("id = ?", userID).
		Update("daily_calorie_goal", kcal).Error
}

// SetTimezone updates the user's IANA timezone
func (r *UserRepository) SetTimezone(ctx context.Context, userID uint, timezone string) error {
	return r.db.WithContext(ctx).Model(&database.User{}).
		Where("id = ?", userID).
		Update("timezone", timezone).Error
}

// ToggleProfileFlag flips one of the dietary profile flags and returns
// the new value.
func (r *UserRepository) ToggleProfileFlag(ctx context.Context, userID uint, flag string) (bool, error) {
	column, ok := map[string]string{
		"diabetes": "has_diabetes",
		"gout":     "has_gout",
		"celiac":   "has_celiac",
	}[flag]
	if !ok {
		return false, fmt.Errorf("unknown profile flag: %s", flag)
	}

	var user database.User
	if err := r.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return false, err
	}

	current := map[string]bool{
		"has_diabetes": user.HasDiabetes,
		"has_gout":     user.HasGout,
		"has_celiac":   user.HasCeliac,
	}[column]

	if err := r.db.WithContext(ctx).Model(&database.User{}).
		Where("id = ?", userID).
		Update(column, !current).Error; err != nil {
		return false, err
	}

	return !current, nil
}
