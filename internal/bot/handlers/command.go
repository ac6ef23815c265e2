package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/dietaryapp/dietary-bot/internal/bot/dialog"
	"github.com/dietaryapp/dietary-bot/internal/bot/menus"
	"github.com/dietaryapp/dietary-bot/internal/database"
	apperrors "github.com/dietaryapp/dietary-bot/internal/errors"
	"github.com/dietaryapp/dietary-bot/internal/logger"
)

// CommandHandler handles bot commands
type CommandHandler struct {
	api     *tgbotapi.BotAPI
	deps    Dependencies
	machine *dialog.Machine
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(api *tgbotapi.BotAPI, deps Dependencies, machine *dialog.Machine) *CommandHandler {
	return &CommandHandler{
		api:     api,
		deps:    deps,
		machine: machine,
	}
}

// Handle processes a command message
func (h *CommandHandler) Handle(ctx context.Context, message *tgbotapi.Message, user *database.User) error {
	logger.Infof("Handling command %s from user %d", message.Command(), user.ID)

	switch message.Command() {
	case "start":
		h.machine.Reset(user.TelegramID)
		return menus.SendMainMenu(h.api, message.Chat.ID)
	case "help":
		return h.handleHelp(message.Chat.ID)
	case "cancel":
		reply, err := h.machine.Handle(ctx, user, "/cancel")
		if err != nil {
			return err
		}
		return sendReply(h.api, message.Chat.ID, reply)
	case "log":
		return h.handleLog(ctx, message, user)
	case "summary":
		return h.handleSummary(ctx, message.Chat.ID, user)
	case "week":
		return h.handleWeek(ctx, message.Chat.ID, user)
	case "goal":
		return h.handleGoal(ctx, message, user)
	case "remind":
		return h.handleRemind(ctx, message, user)
	case "recipe":
		return h.handleRecipe(ctx, message, user)
	case "reminders":
		return h.handleReminders(ctx, message.Chat.ID, user)
	default:
		return h.handleUnknownCommand(message.Chat.ID)
	}
}

// handleLog starts the logging dialogue; a description given right
// after the command skips the first prompt.
func (h *CommandHandler) handleLog(ctx context.Context, message *tgbotapi.Message, user *database.User) error {
	args := strings.TrimSpace(message.CommandArguments())

	reply := h.machine.StartLogging(user.TelegramID)
	if args != "" {
		var err error
		reply, err = h.machine.Handle(ctx, user, args)
		if err != nil {
			logger.Errorf("Failed to handle /log input for user %d: %v", user.ID, err)
		}
	}
	return sendReply(h.api, message.Chat.ID, reply)
}

func (h *CommandHandler) handleSummary(ctx context.Context, chatID int64, user *database.User) error {
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

func (h *CommandHandler) handleWeek(ctx context.Context, chatID int64, user *database.User) error {
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

func (h *CommandHandler) handleGoal(ctx context.Context, message *tgbotapi.Message, user *database.User) error {
	args := strings.TrimSpace(message.CommandArguments())
	if args == "" {
		msg := tgbotapi.NewMessage(message.Chat.ID, "Укажите дневную цель по калориям, например: /goal 2000")
		_, err := h.api.Send(msg)
		return err
	}

	kcal, err := strconv.ParseFloat(strings.Replace(args, ",", ".", 1), 64)
	if err != nil {
		msg := tgbotapi.NewMessage(message.Chat.ID, "Пожалуйста, введите корректное число (например: 2000)")
		_, err := h.api.Send(msg)
		return err
	}

	if err := h.deps.UserService.SetCalorieGoal(ctx, user.ID, kcal); err != nil {
		msg := tgbotapi.NewMessage(message.Chat.ID, goalErrorText(err))
		_, sendErr := h.api.Send(msg)
		return sendErr
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("🎯 Цель установлена: %.0f ккал в день", kcal))
	_, err = h.api.Send(msg)
	return err
}

// goalErrorText tells a rejected value apart from a storage failure:
// only validation errors mean the number itself was wrong.
func goalErrorText(err error) string {
	if apperrors.IsValidation(err) {
		return "Цель должна быть числом больше нуля."
	}
	return "⚠️ Не удалось сохранить цель. Попробуйте позже."
}

// handleRemind starts the reminder dialogue; arguments like
// "09:00 будни" are fed straight into it.
func (h *CommandHandler) handleRemind(ctx context.Context, message *tgbotapi.Message, user *database.User) error {
	args := strings.TrimSpace(message.CommandArguments())

	reply := h.machine.StartReminderDialog(user.TelegramID)
	if args != "" {
		var err error
		reply, err = h.machine.Handle(ctx, user, args)
		if err != nil {
			logger.Errorf("Failed to handle /remind input for user %d: %v", user.ID, err)
		}
	}
	return sendReply(h.api, message.Chat.ID, reply)
}

// handleRecipe starts the recipe search dialogue; a query given right
// after the command skips the prompt.
func (h *CommandHandler) handleRecipe(ctx context.Context, message *tgbotapi.Message, user *database.User) error {
	args := strings.TrimSpace(message.CommandArguments())

	reply := h.machine.StartRecipeSearch(user.TelegramID)
	if args != "" {
		var err error
		reply, err = h.machine.Handle(ctx, user, args)
		if err != nil {
			logger.Errorf("Failed to handle /recipe input for user %d: %v", user.ID, err)
		}
	}
	return sendReply(h.api, message.Chat.ID, reply)
}

func (h *CommandHandler) handleReminders(ctx context.Context, chatID int64, user *database.User) error {
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

// handleHelp handles the /help command
func (h *CommandHandler) handleHelp(chatID int64) error {
	text := `Доступные команды:
/start - Показать главное меню
/help - Показать это сообщение
/log - Записать приём пищи (например: /log 200г риса)
/summary - Сводка за сегодня
/week - Сводка за неделю
/goal - Установить цель по калориям (например: /goal 2000)
/remind - Добавить напоминание (например: /remind 09:00 будни)
/reminders - Управление напоминаниями
/recipe - Найти рецепт с учётом профиля (например: /recipe курица)
/cancel - Отменить текущее действие

Как записать приём пищи:
1. Нажмите кнопку "🍽️ Записать приём пищи" или отправьте /log
2. Опишите блюдо и количество (например: "рис 200 г")
3. Подтвердите запись

Отмена работает на любом шаге: отправьте "отмена" или /cancel.`

	msg := tgbotapi.NewMessage(chatID, text)
	_, err := h.api.Send(msg)
	return err
}

// handleUnknownCommand handles unknown commands
func (h *CommandHandler) handleUnknownCommand(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Неизвестная команда. Используйте /help для просмотра доступных команд.")
	_, err := h.api.Send(msg)
	return err
}
