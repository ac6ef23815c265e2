package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dietaryapp/dietary-bot/internal/domain"
	apperrors "github.com/dietaryapp/dietary-bot/internal/errors"
)

type stubChatCompleter struct {
	content string
	err     error
	request openai.ChatCompletionRequest
}

func (s *stubChatCompleter) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.request = request
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.content}},
		},
	}, nil
}

func TestEstimateParsesResponse(t *testing.T) {
	client := &stubChatCompleter{
		content: `{"calories": 260, "proteins": 5.2, "fats": 0.6, "carbs": 56.1, "confidence": "high"}`,
	}
	svc := &NutritionService{client: client}

	estimate, err := svc.Estimate(context.Background(), "рис отварной", 200, "г")
	require.NoError(t, err)

	assert.InDelta(t, 260, estimate.Calories, 0.001)
	assert.InDelta(t, 5.2, estimate.Proteins, 0.001)
	assert.Equal(t, domain.ConfidenceHigh, estimate.Confidence)
	assert.Contains(t, client.request.Messages[0].Content, "рис отварной")
}

func TestEstimateWrapsAPIError(t *testing.T) {
	svc := &NutritionService{client: &stubChatCompleter{err: errors.New("rate limited")}}

	_, err := svc.Estimate(context.Background(), "рис", 200, "г")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}

func TestParseEstimateHandlesMarkdownFences(t *testing.T) {
	raw := "```json\n{\"calories\": 100, \"proteins\": 1, \"fats\": 2, \"carbs\": 3, \"confidence\": \"medium\"}\n```"

	estimate, err := parseEstimate(raw)
	require.NoError(t, err)

	assert.InDelta(t, 100, estimate.Calories, 0.001)
	assert.Equal(t, domain.ConfidenceMedium, estimate.Confidence)
}

func TestParseEstimateDefaultsUnknownConfidenceToLow(t *testing.T) {
	estimate, err := parseEstimate(`{"calories": 100, "proteins": 1, "fats": 2, "carbs": 3, "confidence": "sure"}`)
	require.NoError(t, err)

	assert.Equal(t, domain.ConfidenceLow, estimate.Confidence)
}

func TestParseEstimateRejectsNegativeValues(t *testing.T) {
	_, err := parseEstimate(`{"calories": -100, "proteins": 1, "fats": 2, "carbs": 3, "confidence": "high"}`)
	assert.Error(t, err)
}

func TestParseEstimateRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "не могу оценить", "{broken", "}{"} {
		_, err := parseEstimate(raw)
		assert.Error(t, err, "raw %q", raw)
	}
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON(`вот ответ: {"a":1} готово`))
	assert.Equal(t, "", extractJSON("no json here"))
	assert.Equal(t, "", extractJSON("} {"))
}
