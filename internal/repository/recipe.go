package repository

import (
	"context"

	"github.com/dietaryapp/dietary-bot/internal/database"
	"gorm.io/gorm"
)

// RecipeRepository handles recipe catalog reads
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// Search returns catalog recipes whose name or ingredient list matches
// the query, up to limit rows. Matching is case-insensitive.
func (r *RecipeRepository) Search(ctx context.Context, query string, limit int) ([]database.Recipe, error) {
	pattern := "%" + query + "%"
	var recipes []database.Recipe
	err := r.db.WithContext(ctx).
		Where("name ILIKE ? OR ingredients ILIKE ?", pattern, pattern).
		Order("name ASC").
		Limit(limit).
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	return recipes, nil
}
