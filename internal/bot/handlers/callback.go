package handlers

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/dietaryapp/dietary-bot/internal/bot/dialog"
	"github.com/dietaryapp/dietary-bot/internal/bot/menus"
	"github.com/dietaryapp/dietary-bot/internal/database"
	"github.com/dietaryapp/dietary-bot/internal/logger"
)

// CallbackHandler handles callback query messages
type CallbackHandler struct {
	api     *tgbotapi.BotAPI
	deps    Dependencies
	machine *dialog.Machine
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(api *tgbotapi.BotAPI, deps Dependencies, machine *dialog.Machine) *CallbackHandler {
	return &CallbackHandler{
		api:     api,
		deps:    deps,
		machine: machine,
	}
}

// Handle processes a callback query
func (h *CallbackHandler) Handle(ctx context.Context, query *tgbotapi.CallbackQuery, user *database.User) error {
	// Answer the callback query first
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := h.api.Request(callback); err != nil {
		return err
	}

	if query.Message == nil {
		return nil
	}
	chatID := query.Message.Chat.ID

	if actionID, ok := strings.CutPrefix(query.Data, "edit_entry:"); ok {
		return h.handleEditEntry(ctx, chatID, user, actionID)
	}
	if rest, ok := strings.CutPrefix(query.Data, "toggle_reminder:"); ok {
		return h.handleToggleReminder(ctx, chatID, user, rest)
	}
	if flag, ok := strings.CutPrefix(query.Data, "toggle_profile:"); ok {
		return h.handleToggleProfile(ctx, chatID, user, flag)
	}

	switch query.Data {
	case "log_meal":
		return sendReply(h.api, chatID, h.machine.StartLogging(user.TelegramID))
	case "summary_today":
		return h.handleSummaryToday(ctx, chatID, user)
	case "summary_week":
		return h.handleSummaryWeek(ctx, chatID, user)
	case "reminders":
		return h.handleReminders(ctx, chatID, user)
	case "add_reminder":
		return sendReply(h.api, chatID, h.machine.StartReminderDialog(user.TelegramID))
	case "ask_dietician":
		return sendReply(h.api, chatID, h.machine.StartQuestion(user.TelegramID))
	case "search_recipe":
		return sendReply(h.api, chatID, h.machine.StartRecipeSearch(user.TelegramID))
	case "settings":
		return menus.SendSettingsMenu(h.api, chatID, user)
	case "confirm_yes":
		return h.forward(ctx, chatID, user, "да")
	case "confirm_no":
		return h.forward(ctx, chatID, user, "нет")
	case "main_menu":
		h.machine.Reset(user.TelegramID)
		return menus.SendMainMenu(h.api, chatID)
	default:
		return h.handleUnknownCallback(chatID)
	}
}

// forward passes a button press into the dialogue machine as if the
// user had typed it.
func (h *CallbackHandler) forward(ctx context.Context, chatID int64, user *database.User, text string) error {
	reply, err := h.machine.Handle(ctx, user, text)
	if err != nil {
		logger.Errorf("Dialog error for user %d: %v", user.ID, err)
	}
	return sendReply(h.api, chatID, reply)
}

func (h *CallbackHandler) handleEditEntry(ctx context.Context, chatID int64, user *database.User, actionID string) error {
	reply, err := h.machine.StartCorrection(ctx, user, actionID)
	if err != nil {
		logger.Warningf("Correction start failed for user %d: %v", user.ID, err)
	}
	return sendReply(h.api, chatID, reply)
}

func (h *CallbackHandler) handleToggleReminder(ctx context.Context, chatID int64, user *database.User, rest string) error {
	parts := strings.Split(rest, ":")
	if len(parts) != 2 {
		return h.handleUnknownCallback(chatID)
	}
	reminderID, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return h.handleUnknownCallback(chatID)
	}
	active := parts[1] == "1"

	if err := h.deps.ReminderService.SetActive(ctx, user.ID, uint(reminderID), active); err != nil {
		msg := tgbotapi.NewMessage(chatID, "⚠️ Не удалось изменить напоминание.")
		_, sendErr := h.api.Send(msg)
		if sendErr != nil {
			return sendErr
		}
		return err
	}
	return h.handleReminders(ctx, chatID, user)
}

func (h *CallbackHandler) handleToggleProfile(ctx context.Context, chatID int64, user *database.User, flag string) error {
	enabled, err := h.deps.UserService.ToggleProfileFlag(ctx, user.ID, flag)
	if err != nil {
		msg := tgbotapi.NewMessage(chatID, "⚠️ Не удалось обновить профиль.")
		_, sendErr := h.api.Send(msg)
		if sendErr != nil {
			return sendErr
		}
		return err
	}

	// Re-read not needed: flip the local copy so the refreshed menu
	// shows the new value.
	switch flag {
	case "diabetes":
		user.HasDiabetes = enabled
	case "gout":
		user.HasGout = enabled
	case "celiac":
		user.HasCeliac = enabled
	}
	return menus.SendSettingsMenu(h.api, chatID, user)
}

func (h *CallbackHandler) handleSummaryToday(ctx context.Context, chatID int64, user *database.User) error {
	summary, err := h.deps.SummaryService.Today(ctx, user)
	if err != nil {
		msg := tgbotapi.NewMessage(chatID, "⚠️ Не удалось получить сводку. Попробуйте позже.")
		_, sendErr := h.api.Send(msg)
		if sendErr != nil {
			return sendErr
		}
		return err
	}
	msg := tgbotapi.NewMessage(chatID, formatSummary("📊 Сводка за сегодня", summary))
	_, err = h.api.Send(msg)
	return err
}

func (h *CallbackHandler) handleSummaryWeek(ctx context.Context, chatID int64, user *database.User) error {
	summary, err := h.deps.SummaryService.Week(ctx, user)
	if err != nil {
		msg := tgbotapi.NewMessage(chatID, "⚠️ Не удалось получить сводку. Попробуйте позже.")
		_, sendErr := h.api.Send(msg)
		if sendErr != nil {
			return sendErr
		}
		return err
	}
	msg := tgbotapi.NewMessage(chatID, formatSummary("📅 Сводка за неделю", summary))
	_, err = h.api.Send(msg)
	return err
}

func (h *CallbackHandler) handleReminders(ctx context.Context, chatID int64, user *database.User) error {
	reminders, err := h.deps.ReminderService.List(ctx, user.ID)
	if err != nil {
		msg := tgbotapi.NewMessage(chatID, "⚠️ Не удалось получить список напоминаний.")
		_, sendErr := h.api.Send(msg)
		if sendErr != nil {
			return sendErr
		}
		return err
	}
	return menus.SendRemindersMenu(h.api, chatID, reminders)
}

// handleUnknownCallback handles unknown callbacks
func (h *CallbackHandler) handleUnknownCallback(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Неизвестное действие. Используйте /start для возврата в меню.")
	_, err := h.api.Send(msg)
	return err
}
