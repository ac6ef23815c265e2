package keyboards

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/dietaryapp/dietary-bot/internal/database"
)

// MainMenu creates the main menu keyboard
func MainMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🍽️ Записать приём пищи", "log_meal"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Сводка за день", "summary_today"),
			tgbotapi.NewInlineKeyboardButtonData("📅 За неделю", "summary_week"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏰ Напоминания", "reminders"),
			tgbotapi.NewInlineKeyboardButtonData("🤖 Спросить диетолога", "ask_dietician"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 Найти рецепт", "search_recipe"),
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Настройки", "settings"),
		),
	)
}

// ConfirmMenu creates the entry confirmation keyboard
func ConfirmMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Да", "confirm_yes"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Нет", "confirm_no"),
		),
	)
}

// EntrySavedMenu creates the keyboard attached to a saved entry
func EntrySavedMenu(actionID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Исправить", "edit_entry:"+actionID),
			tgbotapi.NewInlineKeyboardButtonData("📊 Сводка", "summary_today"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Главное меню", "main_menu"),
		),
	)
}

// SettingsMenu creates the dietary profile keyboard
func SettingsMenu(user *database.User) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(flagLabel("🩺 Диабет", user.HasDiabetes), "toggle_profile:diabetes"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(flagLabel("🦶 Подагра", user.HasGout), "toggle_profile:gout"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(flagLabel("🌾 Целиакия", user.HasCeliac), "toggle_profile:celiac"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Главное меню", "main_menu"),
		),
	)
}

// RemindersMenu creates the reminder management keyboard
func RemindersMenu(reminders []database.Reminder) tgbotapi.InlineKeyboardMarkup {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Добавить", "add_reminder"),
		),
	)

	for _, reminder := range reminders {
		label := fmt.Sprintf("🔔 %s — выключить", reminder.TimeOfDay)
		next := "0"
		if !reminder.Active {
			label = fmt.Sprintf("🔕 %s — включить", reminder.TimeOfDay)
			next = "1"
		}
		keyboard.InlineKeyboard = append(keyboard.InlineKeyboard,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("toggle_reminder:%d:%s", reminder.ID, next)),
			),
		)
	}

	keyboard.InlineKeyboard = append(keyboard.InlineKeyboard,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Главное меню", "main_menu"),
		),
	)

	return keyboard
}

func flagLabel(name string, enabled bool) string {
	if enabled {
		return name + ": ✅"
	}
	return name + ": ☐"
}
