package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/dietaryapp/dietary-bot/internal/bot/dialog"
	"github.com/dietaryapp/dietary-bot/internal/database"
	"github.com/dietaryapp/dietary-bot/internal/logger"
)

// TextHandler feeds free-form text into the dialogue machine
type TextHandler struct {
	api     *tgbotapi.BotAPI
	machine *dialog.Machine
}

// NewTextHandler creates a new text handler
func NewTextHandler(api *tgbotapi.BotAPI, machine *dialog.Machine) *TextHandler {
	return &TextHandler{
		api:     api,
		machine: machine,
	}
}

// Handle processes a text message
func (h *TextHandler) Handle(ctx context.Context, message *tgbotapi.Message, user *database.User) error {
	reply, err := h.machine.Handle(ctx, user, message.Text)
	if err != nil {
		// The machine already produced user-facing text for the
		// failure; log the cause and still deliver the reply.
		logger.Errorf("Dialog error for user %d: %v", user.ID, err)
	}
	return sendReply(h.api, message.Chat.ID, reply)
}
