package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dietaryapp/dietary-bot/internal/database"
	apperrors "github.com/dietaryapp/dietary-bot/internal/errors"
)

type stubRecipeStore struct {
	recipes []database.Recipe
	err     error
	queries []string
}

func (s *stubRecipeStore) Search(ctx context.Context, query string, limit int) ([]database.Recipe, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.recipes, nil
}

func catalogFixture() []database.Recipe {
	return []database.Recipe{
		{Name: "Курица на пару", GlycemicIndex: 35, Purines: 45, GlutenFree: true},
		{Name: "Паста с томатами", GlycemicIndex: 65, Purines: 25, GlutenFree: false},
		{Name: "Рыба на гриле", GlycemicIndex: 10, Purines: 120, GlutenFree: true},
	}
}

func TestRecipeSearchWithoutDiagnosesReturnsAll(t *testing.T) {
	store := &stubRecipeStore{recipes: catalogFixture()}
	svc := NewRecipeService(store)

	recipes, err := svc.Search(context.Background(), &database.User{}, "на")
	require.NoError(t, err)
	assert.Len(t, recipes, 3)
	assert.Equal(t, []string{"на"}, store.queries)
}

func TestRecipeSearchFiltersByDiagnosis(t *testing.T) {
	tests := []struct {
		name     string
		user     database.User
		expected []string
	}{
		{
			name:     "diabetes drops high glycemic index",
			user:     database.User{HasDiabetes: true},
			expected: []string{"Курица на пару", "Рыба на гриле"},
		},
		{
			name:     "gout drops purine-rich dishes",
			user:     database.User{HasGout: true},
			expected: []string{"Курица на пару", "Паста с томатами"},
		},
		{
			name:     "celiac keeps only gluten-free",
			user:     database.User{HasCeliac: true},
			expected: []string{"Курица на пару", "Рыба на гриле"},
		},
		{
			name:     "combined profile applies every filter",
			user:     database.User{HasDiabetes: true, HasGout: true, HasCeliac: true},
			expected: []string{"Курица на пару"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubRecipeStore{recipes: catalogFixture()}
			svc := NewRecipeService(store)

			recipes, err := svc.Search(context.Background(), &tt.user, "на")
			require.NoError(t, err)

			var names []string
			for _, recipe := range recipes {
				names = append(names, recipe.Name)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestRecipeSearchBoundaryValuesPass(t *testing.T) {
	// Exactly at the thresholds is still allowed
	store := &stubRecipeStore{recipes: []database.Recipe{
		{Name: "На границе", GlycemicIndex: 60, Purines: 100, GlutenFree: true},
	}}
	svc := NewRecipeService(store)

	recipes, err := svc.Search(context.Background(), &database.User{HasDiabetes: true, HasGout: true}, "границе")
	require.NoError(t, err)
	assert.Len(t, recipes, 1)
}

func TestRecipeSearchRejectsEmptyQuery(t *testing.T) {
	store := &stubRecipeStore{}
	svc := NewRecipeService(store)

	_, err := svc.Search(context.Background(), &database.User{}, "   ")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Empty(t, store.queries, "the store must not be hit for an empty query")
}

func TestRecipeSearchWrapsStoreFailure(t *testing.T) {
	store := &stubRecipeStore{err: errors.New("db down")}
	svc := NewRecipeService(store)

	_, err := svc.Search(context.Background(), &database.User{}, "курица")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersistence))
}
