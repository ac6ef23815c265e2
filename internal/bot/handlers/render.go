package handlers

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/dietaryapp/dietary-bot/internal/bot/dialog"
	"github.com/dietaryapp/dietary-bot/internal/bot/keyboards"
	"github.com/dietaryapp/dietary-bot/internal/domain"
)

// sendReply renders a dialog reply into a telegram message with the
// keyboard the dialog asked for.
func sendReply(api *tgbotapi.BotAPI, chatID int64, reply dialog.Reply) error {
	if reply.Text == "" {
		return nil
	}

	msg := tgbotapi.NewMessage(chatID, reply.Text)
	switch {
	case reply.SavedActionID != "":
		msg.ReplyMarkup = keyboards.EntrySavedMenu(reply.SavedActionID)
	case reply.Confirming:
		msg.ReplyMarkup = keyboards.ConfirmMenu()
	case reply.ShowMenu:
		msg.ReplyMarkup = keyboards.MainMenu()
	}
	_, err := api.Send(msg)
	return err
}

func formatSummary(title string, summary domain.DailySummary) string {
	var b strings.Builder
	b.WriteString(title + "\n\n")

	if summary.EntryCount == 0 {
		b.WriteString("Записей пока нет. Опишите, что вы съели, и я добавлю первую.")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("🍽️ Приёмов пищи: %d\n", summary.EntryCount))
	b.WriteString(fmt.Sprintf("🔥 Калории: %.0f ккал\n", summary.Calories))
	b.WriteString(fmt.Sprintf("🥩 Белки: %.1f г\n", summary.Proteins))
	b.WriteString(fmt.Sprintf("🧈 Жиры: %.1f г\n", summary.Fats))
	b.WriteString(fmt.Sprintf("🍞 Углеводы: %.1f г\n", summary.Carbs))

	if summary.CalorieDelta != nil {
		delta := *summary.CalorieDelta
		if delta <= 0 {
			b.WriteString(fmt.Sprintf("\n🎯 До цели осталось %.0f ккал", -delta))
		} else {
			b.WriteString(fmt.Sprintf("\n🎯 Цель превышена на %.0f ккал", delta))
		}
	}

	if summary.Incomplete {
		b.WriteString("\n\n⚠️ Для части записей нет оценки КБЖУ, итоги могут быть занижены.")
	}

	return b.String()
}
