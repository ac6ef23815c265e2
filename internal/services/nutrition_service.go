package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dietaryapp/dietary-bot/internal/domain"
	apperrors "github.com/dietaryapp/dietary-bot/internal/errors"
	"github.com/sashabaranov/go-openai"
)

// chatCompleter is the slice of the OpenAI client used by the AI
// services, extracted so tests can substitute it.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NutritionService estimates calories and macros for a described
// portion. Failures are expected and non-fatal: the entry is then
// stored with unresolved values and summaries flag themselves
// incomplete.
type NutritionService struct {
	client chatCompleter
}

func NewNutritionService(apiKey string) *NutritionService {
	return &NutritionService{client: openai.NewClient(apiKey)}
}

const nutritionPrompt = `Вы диетолог, рассчитывающий пищевую ценность блюд.

ЗАДАЧА: оцените пищевую ценность порции "%s" количеством %.1f %s.

ТРЕБОВАНИЯ К ОТВЕТУ:
- Ответ ДОЛЖЕН быть валидным JSON объектом без пояснений и без markdown
- Поля строго такие:
  {
    "calories": 123.4,
    "proteins": 12.3,
    "fats": 4.5,
    "carbs": 67.8,
    "confidence": "low|medium|high"
  }
- Значения в ккал и граммах на всю указанную порцию`

type nutritionPayload struct {
	Calories   float64 `json:"calories"`
	Proteins   float64 `json:"proteins"`
	Fats       float64 `json:"fats"`
	Carbs      float64 `json:"carbs"`
	Confidence string  `json:"confidence"`
}

// Estimate resolves the nutrition values of one described portion
func (s *NutritionService) Estimate(ctx context.Context, description string, quantity float64, unit string) (*domain.MacroEstimate, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(nutritionPrompt, description, quantity, unit),
			},
		},
	})
	if err != nil {
		return nil, apperrors.NewExternalAPIError(err, "openai")
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewExternalAPIError(fmt.Errorf("empty response"), "openai")
	}

	return parseEstimate(resp.Choices[0].Message.Content)
}

func parseEstimate(raw string) (*domain.MacroEstimate, error) {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return nil, apperrors.NewExternalAPIError(fmt.Errorf("no valid JSON in response"), "openai")
	}

	var payload nutritionPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, apperrors.NewExternalAPIError(fmt.Errorf("failed to parse response: %w", err), "openai")
	}
	if payload.Calories < 0 || payload.Proteins < 0 || payload.Fats < 0 || payload.Carbs < 0 {
		return nil, apperrors.NewExternalAPIError(fmt.Errorf("negative nutrition values"), "openai")
	}

	confidence := domain.Confidence(payload.Confidence)
	switch confidence {
	case domain.ConfidenceHigh, domain.ConfidenceMedium, domain.ConfidenceLow:
	default:
		confidence = domain.ConfidenceLow
	}

	return &domain.MacroEstimate{
		Calories:   payload.Calories,
		Proteins:   payload.Proteins,
		Fats:       payload.Fats,
		Carbs:      payload.Carbs,
		Confidence: confidence,
	}, nil
}

// extractJSON attempts to extract a valid JSON object from the given
// string, handling code blocks and surrounding text.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
