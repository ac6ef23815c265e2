package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/dietaryapp/dietary-bot/internal/errors"
)

func TestGoalErrorText(t *testing.T) {
	// A rejected value blames the input, a storage failure does not
	validation := apperrors.NewValidationError("цель по калориям должна быть больше нуля")
	assert.Equal(t, "Цель должна быть числом больше нуля.", goalErrorText(validation))

	persistence := apperrors.NewPersistenceError(errors.New("db down"))
	assert.Equal(t, "⚠️ Не удалось сохранить цель. Попробуйте позже.", goalErrorText(persistence))

	assert.Equal(t, "⚠️ Не удалось сохранить цель. Попробуйте позже.", goalErrorText(errors.New("plain")))
}
