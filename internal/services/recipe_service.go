package services

import (
	"context"
	"strings"

	"github.com/dietaryapp/dietary-bot/internal/database"
	apperrors "github.com/dietaryapp/dietary-bot/internal/errors"
)

// Thresholds above which a recipe is excluded for the matching
// diagnosis. High-GI dishes spike blood sugar; purine-rich food
// provokes gout attacks.
const (
	maxGlycemicIndexForDiabetes = 60
	maxPurinesForGout           = 100
)

const maxRecipeResults = 10

// recipeStore is the slice of the persistence adapter recipe search needs.
type recipeStore interface {
	Search(ctx context.Context, query string, limit int) ([]database.Recipe, error)
}

// RecipeService searches the recipe catalog, dropping dishes that
// conflict with the user's dietary profile.
type RecipeService struct {
	store recipeStore
}

func NewRecipeService(store recipeStore) *RecipeService {
	return &RecipeService{store: store}
}

// Search returns catalog recipes matching the query and safe for the
// user's profile, at most maxRecipeResults of them.
func (s *RecipeService) Search(ctx context.Context, user *database.User, query string) ([]database.Recipe, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("запрос не может быть пустым")
	}

	recipes, err := s.store.Search(ctx, query, maxRecipeResults)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}

	filtered := recipes[:0]
	for _, recipe := range recipes {
		if suitsProfile(user, recipe) {
			filtered = append(filtered, recipe)
		}
	}
	return filtered, nil
}

// suitsProfile reports whether a recipe is safe for every diagnosis in
// the user's profile.
func suitsProfile(user *database.User, recipe database.Recipe) bool {
	if user.HasDiabetes && recipe.GlycemicIndex > maxGlycemicIndexForDiabetes {
		return false
	}
	if user.HasGout && recipe.Purines > maxPurinesForGout {
		return false
	}
	if user.HasCeliac && !recipe.GlutenFree {
		return false
	}
	return true
}
