package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dietaryapp/dietary-bot/internal/database"
	apperrors "github.com/dietaryapp/dietary-bot/internal/errors"
	"github.com/dietaryapp/dietary-bot/internal/logger"
	"github.com/sashabaranov/go-openai"
)

const dieticianSystemPrompt = `Вы профессиональный диетолог с 20-летним опытом. ` +
	`Отвечайте на вопросы о питании кратко, ясно и научно обоснованно. ` +
	`Всегда рекомендуйте консультацию с врачом для серьёзных проблем. ` +
	`Ответы должны быть на русском языке.`

// DieticianService answers nutrition questions with GPT, tailoring the
// context to the user's dietary profile.
type DieticianService struct {
	client      chatCompleter
	maxAttempts int
	retryDelay  time.Duration
}

func NewDieticianService(apiKey string) *DieticianService {
	return &DieticianService{
		client:      openai.NewClient(apiKey),
		maxAttempts: 3,
		retryDelay:  2 * time.Second,
	}
}

// Ask sends the question to the model, retrying transient API failures
// with exponential backoff.
func (s *DieticianService) Ask(ctx context.Context, user *database.User, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", apperrors.NewValidationError("вопрос не может быть пустым")
	}

	request := openai.ChatCompletionRequest{
		Model:     openai.GPT4oMini,
		MaxTokens: 500,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPromptFor(user)},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	}

	var lastErr error
	delay := s.retryDelay
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err := s.client.CreateChatCompletion(ctx, request)
		if err == nil && len(resp.Choices) > 0 {
			return resp.Choices[0].Message.Content, nil
		}
		if err == nil {
			err = fmt.Errorf("empty response")
		}
		lastErr = err

		logger.Warningf("Dietician request attempt %d/%d failed: %v", attempt, s.maxAttempts, err)
		if attempt == s.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", apperrors.NewExternalAPIError(ctx.Err(), "openai")
		case <-time.After(delay):
			delay *= 2
		}
	}

	return "", apperrors.NewExternalAPIError(lastErr, "openai")
}

func systemPromptFor(user *database.User) string {
	prompt := dieticianSystemPrompt

	var conditions []string
	if user.HasDiabetes {
		conditions = append(conditions, "сахарный диабет")
	}
	if user.HasGout {
		conditions = append(conditions, "подагра")
	}
	if user.HasCeliac {
		conditions = append(conditions, "целиакия")
	}

	if len(conditions) > 0 {
		prompt += " У пользователя диагностированы: " + strings.Join(conditions, ", ") +
			". Учитывайте это в рекомендациях."
	}

	return prompt
}
