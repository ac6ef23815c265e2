package menus

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/dietaryapp/dietary-bot/internal/bot/keyboards"
	"github.com/dietaryapp/dietary-bot/internal/database"
)

// SendMainMenu sends the main menu to a chat
func SendMainMenu(api *tgbotapi.BotAPI, chatID int64) error {
	text := `🥗 *Дневник питания* — твой помощник в учёте рациона

🍽️ Опиши, что ты съел, и я:
• Запишу приём пищи в дневник
• Оценю калории и БЖУ
• Посчитаю сводку за день и неделю

⏰ Настрой напоминания, чтобы не забывать вести дневник.

⚠️ *Важно:* Это справочная информация, всегда консультируйтесь с врачом!

Выберите действие:`

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboards.MainMenu()
	_, err := api.Send(msg)
	return err
}

// SendSettingsMenu sends the dietary profile menu to a chat
func SendSettingsMenu(api *tgbotapi.BotAPI, chatID int64, user *database.User) error {
	var b strings.Builder
	b.WriteString("⚙️ *Профиль питания*\n\n")
	b.WriteString("Отметьте диагнозы, чтобы диетолог учитывал их в ответах:\n")
	if user.DailyCalorieGoal != nil {
		b.WriteString(fmt.Sprintf("\n🎯 Цель: %.0f ккал/день (изменить: /goal)", *user.DailyCalorieGoal))
	} else {
		b.WriteString("\n🎯 Цель по калориям не задана (задать: /goal)")
	}

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboards.SettingsMenu(user)
	_, err := api.Send(msg)
	return err
}

// SendRemindersMenu sends the reminder management menu
func SendRemindersMenu(api *tgbotapi.BotAPI, chatID int64, reminders []database.Reminder) error {
	var text string
	if len(reminders) == 0 {
		text = "У вас пока нет напоминаний. Нажмите 'Добавить' чтобы создать новое."
	} else {
		var b strings.Builder
		b.WriteString("⏰ Ваши напоминания:\n\n")
		for _, r := range reminders {
			status := "🔔"
			if !r.Active {
				status = "🔕"
			}
			b.WriteString(fmt.Sprintf("%s %s (%s) — %s\n", status, r.TimeOfDay, recurrenceLabel(r.Recurrence), r.Message))
		}
		text = b.String()
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboards.RemindersMenu(reminders)
	_, err := api.Send(msg)
	return err
}

func recurrenceLabel(recurrence string) string {
	switch recurrence {
	case "weekdays":
		return "будни"
	case "weekends":
		return "выходные"
	default:
		return "ежедневно"
	}
}
