// Package dialog implements the multi-turn dialogue state machine. It
// is transport-free: handlers feed it message text and render its
// replies, so every transition is testable without Telegram.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dietaryapp/dietary-bot/internal/bot/state"
	"github.com/dietaryapp/dietary-bot/internal/database"
	"github.com/dietaryapp/dietary-bot/internal/domain"
	apperrors "github.com/dietaryapp/dietary-bot/internal/errors"
	"github.com/dietaryapp/dietary-bot/internal/interfaces"
	"github.com/dietaryapp/dietary-bot/internal/logger"
	"github.com/dietaryapp/dietary-bot/internal/parser"
	"github.com/dietaryapp/dietary-bot/internal/utils"
)

// Reply is the machine's answer to one inbound message, plus rendering
// hints for the transport layer.
type Reply struct {
	Text string

	// ShowMenu asks the transport to attach the main menu keyboard
	ShowMenu bool
	// Confirming asks for the yes/no/cancel keyboard
	Confirming bool
	// SavedActionID is set right after an entry was stored, so the
	// transport can attach a correction button.
	SavedActionID string
}

var affirmativeTokens = map[string]bool{
	"да": true, "yes": true, "y": true, "+": true, "ок": true, "ok": true, "конечно": true, "👍": true,
}

var negativeTokens = map[string]bool{
	"нет": true, "no": true, "n": true, "-": true,
}

var cancelTokens = map[string]bool{
	"отмена": true, "cancel": true, "отменить": true, "/cancel": true, "stop": true,
}

var logPrefixes = []string{"log ", "запиши ", "запись "}

const helpText = `👋 Я помогу вести дневник питания.

Напишите, что вы съели (например: «рис 200 г» или «log 200g rice»),
или используйте меню:`

// Machine drives the per-user dialogue. Callers must serialize calls
// for the same user; the machine itself holds no locks.
type Machine struct {
	sessions  state.Store
	entries   interfaces.EntryService
	reminders interfaces.ReminderService
	nutrition interfaces.NutritionService
	dietician interfaces.DieticianService
	recipes   interfaces.RecipeService
	timeout   time.Duration
	now       func() time.Time
}

func NewMachine(
	sessions state.Store,
	entries interfaces.EntryService,
	reminders interfaces.ReminderService,
	nutrition interfaces.NutritionService,
	dietician interfaces.DieticianService,
	recipes interfaces.RecipeService,
	timeout time.Duration,
) *Machine {
	return &Machine{
		sessions:  sessions,
		entries:   entries,
		reminders: reminders,
		nutrition: nutrition,
		dietician: dietician,
		recipes:   recipes,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Handle routes one inbound text message through the state machine
func (m *Machine) Handle(ctx context.Context, user *database.User, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{Text: helpText, ShowMenu: true}, nil
	}

	session := m.session(user.TelegramID)

	if cancelTokens[strings.ToLower(text)] {
		return m.cancel(user.TelegramID, session), nil
	}

	// Any message inside an active flow counts as activity: re-saving
	// the session here pushes the timeout forward even when the handler
	// only re-prompts.
	if session.State != state.Idle {
		m.sessions.Set(user.TelegramID, session)
	}

	switch session.State {
	case state.AwaitingDescription:
		return m.handleDescription(ctx, user, session, text)
	case state.AwaitingQuantity:
		return m.handleQuantity(ctx, user, session, text)
	case state.AwaitingConfirmation:
		return m.handleConfirmation(ctx, user, session, text)
	case state.AwaitingReminderTime:
		return m.handleReminderTime(ctx, user, session, text)
	case state.AwaitingQuestion:
		return m.handleQuestion(ctx, user, text)
	case state.AwaitingRecipeQuery:
		return m.handleRecipeQuery(ctx, user, text)
	default:
		return m.handleIdle(ctx, user, text)
	}
}

// StartLogging begins the meal logging flow (menu button entry point)
func (m *Machine) StartLogging(userID int64) Reply {
	m.sessions.Set(userID, state.Session{State: state.AwaitingDescription})
	return Reply{Text: "🍽️ Что вы съели? Опишите блюдо, можно сразу с количеством (например: «рис 200 г»):"}
}

// StartCorrection begins a correction flow for an existing entry
func (m *Machine) StartCorrection(ctx context.Context, user *database.User, actionID string) (Reply, error) {
	entry, err := m.entries.GetActive(ctx, user.ID, actionID)
	if err != nil || entry == nil {
		return Reply{Text: "Эта запись уже исправлена или не найдена.", ShowMenu: true}, err
	}

	m.sessions.Set(user.TelegramID, state.Session{
		State:  state.AwaitingDescription,
		Buffer: state.Buffer{CorrectsActionID: actionID},
	})
	return Reply{Text: fmt.Sprintf("✏️ Исправляем «%s». Опишите блюдо заново:", entry.Description)}, nil
}

// StartRecipeSearch begins the recipe search flow
func (m *Machine) StartRecipeSearch(userID int64) Reply {
	m.sessions.Set(userID, state.Session{State: state.AwaitingRecipeQuery})
	return Reply{Text: "🔍 Какой рецепт ищем? Назовите блюдо или ингредиент (например: «курица»):"}
}

// StartReminderDialog begins the reminder creation flow
func (m *Machine) StartReminderDialog(userID int64) Reply {
	m.sessions.Set(userID, state.Session{State: state.AwaitingReminderTime})
	return Reply{Text: "⏰ Введите время напоминания в формате ЧЧ:ММ, при желании добавьте правило: «будни» или «выходные» (например: «08:00 будни»):"}
}

// StartQuestion begins the AI dietician flow
func (m *Machine) StartQuestion(userID int64) Reply {
	m.sessions.Set(userID, state.Session{State: state.AwaitingQuestion})
	return Reply{Text: "🤖 Задайте вопрос диетологу:"}
}

// Reset discards the user's session
func (m *Machine) Reset(userID int64) {
	m.sessions.Clear(userID)
}

// session returns the current session, discarding it when it idled
// past the timeout so a stale buffer can never complete a fresh flow.
func (m *Machine) session(userID int64) state.Session {
	session, exists := m.sessions.Get(userID)
	if !exists {
		return state.Session{State: state.Idle}
	}
	if session.State != state.Idle && m.now().Sub(session.UpdatedAt) > m.timeout {
		m.sessions.Clear(userID)
		return state.Session{State: state.Idle}
	}
	return session
}

func (m *Machine) cancel(userID int64, session state.Session) Reply {
	if session.State == state.Idle {
		return Reply{Text: "Сейчас нечего отменять.", ShowMenu: true}
	}
	m.sessions.Clear(userID)
	return Reply{Text: "❌ Действие отменено.", ShowMenu: true}
}

func (m *Machine) handleIdle(ctx context.Context, user *database.User, text string) (Reply, error) {
	lower := strings.ToLower(text)
	for _, prefix := range logPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return m.beginLog(ctx, user, strings.TrimSpace(text[len(prefix):]), "")
		}
	}
	// Unrecognized input from idle: help, no state change
	return Reply{Text: helpText, ShowMenu: true}, nil
}

// beginLog starts a logging flow from free text, skipping the steps
// the text already answers.
func (m *Machine) beginLog(ctx context.Context, user *database.User, raw, correctsActionID string) (Reply, error) {
	session := state.Session{
		State:  state.AwaitingDescription,
		Buffer: state.Buffer{CorrectsActionID: correctsActionID},
	}

	if raw == "" {
		m.sessions.Set(user.TelegramID, session)
		return Reply{Text: "🍽️ Что вы съели? Опишите блюдо:"}, nil
	}

	return m.handleDescription(ctx, user, session, raw)
}

func (m *Machine) handleDescription(ctx context.Context, user *database.User, session state.Session, text string) (Reply, error) {
	description, quantity, unit, ok := parser.ParseMeal(text)
	if !ok {
		// Keep waiting for a description: the session must survive the
		// re-prompt even when this flow started from free idle text and
		// was never stored.
		session.State = state.AwaitingDescription
		m.sessions.Set(user.TelegramID, session)
		return Reply{Text: "Не понял, что это за блюдо. Опишите словами, например: «овсяная каша»."}, nil
	}

	session.Buffer.Description = description
	if quantity > 0 {
		session.Buffer.Quantity = quantity
		session.Buffer.Unit = unit
		return m.toConfirmation(ctx, user, session)
	}

	session.State = state.AwaitingQuantity
	m.sessions.Set(user.TelegramID, session)
	return Reply{Text: fmt.Sprintf("⚖️ Сколько «%s»? Укажите количество (например: «200», «1.5» или «2 cups»):", description)}, nil
}

func (m *Machine) handleQuantity(ctx context.Context, user *database.User, session state.Session, text string) (Reply, error) {
	quantity, unit, err := parser.ParseQuantity(text)
	if err != nil {
		// Re-prompt without advancing; retries are unlimited
		return Reply{Text: "Не удалось распознать количество. Введите положительное число, можно с единицей (например: «200 г»):"}, nil
	}

	session.Buffer.Quantity = quantity
	session.Buffer.Unit = unit
	return m.toConfirmation(ctx, user, session)
}

// toConfirmation resolves the nutrition estimate and asks the user to
// confirm. Estimation failure is non-fatal: the entry will be stored
// unresolved and the summary will flag itself incomplete.
func (m *Machine) toConfirmation(ctx context.Context, user *database.User, session state.Session) (Reply, error) {
	estimate, err := m.nutrition.Estimate(ctx, session.Buffer.Description, session.Buffer.Quantity, session.Buffer.Unit)
	if err != nil {
		logger.Warningf("Nutrition estimate failed for user %d: %v", user.ID, err)
	} else {
		session.Buffer.Calories = &estimate.Calories
		session.Buffer.Proteins = &estimate.Proteins
		session.Buffer.Fats = &estimate.Fats
		session.Buffer.Carbs = &estimate.Carbs
		session.Buffer.Confidence = string(estimate.Confidence)
	}

	session.State = state.AwaitingConfirmation
	m.sessions.Set(user.TelegramID, session)

	return Reply{Text: previewText(session.Buffer), Confirming: true}, nil
}

func (m *Machine) handleConfirmation(ctx context.Context, user *database.User, session state.Session, text string) (Reply, error) {
	switch token := strings.ToLower(text); {
	case affirmativeTokens[token]:
		return m.saveEntry(ctx, user, session)
	case negativeTokens[token]:
		m.sessions.Clear(user.TelegramID)
		return Reply{Text: "Запись отменена.", ShowMenu: true}, nil
	default:
		return Reply{Text: "Пожалуйста, ответьте «да», «нет» или «отмена».", Confirming: true}, nil
	}
}

// saveEntry is the only place an entry write happens: side effects
// fire on the transition out of confirmation, never earlier.
func (m *Machine) saveEntry(ctx context.Context, user *database.User, session state.Session) (Reply, error) {
	draft := domain.EntryDraft{
		Description: session.Buffer.Description,
		Quantity:    session.Buffer.Quantity,
		Unit:        session.Buffer.Unit,
		MealType:    mealTypeAt(m.now().In(utils.Location(user.Timezone))),
		EatenAt:     m.now(),
		Calories:    session.Buffer.Calories,
		Proteins:    session.Buffer.Proteins,
		Fats:        session.Buffer.Fats,
		Carbs:       session.Buffer.Carbs,
	}

	var entry *database.Entry
	var err error
	if session.Buffer.CorrectsActionID != "" {
		entry, err = m.entries.Correct(ctx, user.ID, session.Buffer.CorrectsActionID, draft)
	} else {
		entry, err = m.entries.Add(ctx, user.ID, draft)
	}

	if err != nil {
		m.sessions.Clear(user.TelegramID)
		if apperrors.IsValidation(err) {
			return Reply{Text: "Запись не прошла проверку: " + validationMessage(err), ShowMenu: true}, nil
		}
		// Retries are already exhausted inside the service
		return Reply{Text: "⚠️ Не удалось сохранить запись. Попробуйте позже.", ShowMenu: true}, err
	}

	m.sessions.Clear(user.TelegramID)
	reply := Reply{
		Text:          fmt.Sprintf("✅ Записано: %s — %s.", entry.Description, formatQuantity(entry.Quantity, entry.Unit)),
		SavedActionID: entry.ActionID,
	}
	return reply, nil
}

func (m *Machine) handleReminderTime(ctx context.Context, user *database.User, session state.Session, text string) (Reply, error) {
	timeOfDay, recurrence, err := parseReminderInput(text)
	if err != nil {
		return Reply{Text: "Не удалось распознать время. Введите его в формате ЧЧ:ММ (например: «08:00» или «08:00 будни»):"}, nil
	}

	reminder, err := m.reminders.Create(ctx, user.ID, timeOfDay, recurrence, "")
	if err != nil {
		if apperrors.IsValidation(err) {
			return Reply{Text: "Не удалось распознать время. Введите его в формате ЧЧ:ММ (например: «08:00» или «08:00 будни»):"}, nil
		}
		m.sessions.Clear(user.TelegramID)
		return Reply{Text: "⚠️ Не удалось сохранить напоминание. Попробуйте позже.", ShowMenu: true}, err
	}

	m.sessions.Clear(user.TelegramID)
	return Reply{
		Text:     fmt.Sprintf("⏰ Напоминание установлено на %s (%s).", reminder.TimeOfDay, recurrenceLabel(domain.Recurrence(reminder.Recurrence))),
		ShowMenu: true,
	}, nil
}

func (m *Machine) handleQuestion(ctx context.Context, user *database.User, text string) (Reply, error) {
	answer, err := m.dietician.Ask(ctx, user, text)
	m.sessions.Clear(user.TelegramID)
	if err != nil {
		return Reply{Text: "🤖 Диетолог сейчас недоступен. Попробуйте позже.", ShowMenu: true}, err
	}
	return Reply{Text: answer, ShowMenu: true}, nil
}

// handleRecipeQuery searches the catalog with the user's profile
// filter applied; recipes that conflict with a diagnosis never show up.
func (m *Machine) handleRecipeQuery(ctx context.Context, user *database.User, text string) (Reply, error) {
	recipes, err := m.recipes.Search(ctx, user, text)
	m.sessions.Clear(user.TelegramID)
	if err != nil {
		return Reply{Text: "⚠️ Не удалось найти рецепты. Попробуйте позже.", ShowMenu: true}, err
	}
	if len(recipes) == 0 {
		return Reply{Text: "❌ Рецепты не найдены. Попробуйте другой запрос.", ShowMenu: true}, nil
	}
	return Reply{Text: recipesText(recipes), ShowMenu: true}, nil
}

func recipesText(recipes []database.Recipe) string {
	var b strings.Builder
	b.WriteString("✅ Найденные рецепты:\n\n")
	for i, recipe := range recipes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, recipe.Name)
		fmt.Fprintf(&b, "🔥 %.0f ккал · ГИ: %.0f · Б: %.0f г · Ж: %.0f г · У: %.0f г\n",
			recipe.Calories, recipe.GlycemicIndex, recipe.Proteins, recipe.Fats, recipe.Carbs)
		if recipe.Description != "" {
			b.WriteString(recipe.Description + "\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func parseReminderInput(text string) (string, domain.Recurrence, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 || len(fields) > 2 {
		return "", "", fmt.Errorf("invalid reminder input: %q", text)
	}

	timeOfDay, err := utils.ParseTimeOfDay(fields[0])
	if err != nil {
		return "", "", err
	}

	recurrence := domain.RecurDaily
	if len(fields) == 2 {
		switch strings.ToLower(fields[1]) {
		case "ежедневно", "daily":
			recurrence = domain.RecurDaily
		case "будни", "weekdays":
			recurrence = domain.RecurWeekdays
		case "выходные", "weekends":
			recurrence = domain.RecurWeekends
		default:
			return "", "", fmt.Errorf("unknown recurrence: %q", fields[1])
		}
	}

	return timeOfDay, recurrence, nil
}

func recurrenceLabel(r domain.Recurrence) string {
	switch r {
	case domain.RecurWeekdays:
		return "по будням"
	case domain.RecurWeekends:
		return "по выходным"
	default:
		return "ежедневно"
	}
}

// mealTypeAt classifies an entry by local hour when the user did not
// say otherwise.
func mealTypeAt(local time.Time) domain.MealType {
	switch hour := local.Hour(); {
	case hour >= 6 && hour < 11:
		return domain.MealBreakfast
	case hour >= 11 && hour < 16:
		return domain.MealLunch
	case hour >= 16 && hour < 21:
		return domain.MealDinner
	default:
		return domain.MealSnack
	}
}

func previewText(buffer state.Buffer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🍽️ %s — %s\n", buffer.Description, formatQuantity(buffer.Quantity, buffer.Unit))

	if buffer.Calories != nil {
		fmt.Fprintf(&b, "🔥 Калории: %.0f ккал\n", *buffer.Calories)
		fmt.Fprintf(&b, "🥩 Б: %.1f г · 🧈 Ж: %.1f г · 🍞 У: %.1f г\n",
			floatOrZero(buffer.Proteins), floatOrZero(buffer.Fats), floatOrZero(buffer.Carbs))
		if buffer.Confidence == string(domain.ConfidenceLow) {
			b.WriteString("⚠️ Оценка приблизительная\n")
		}
	} else {
		b.WriteString("⚠️ Пищевую ценность определить не удалось, запись будет сохранена без неё\n")
	}

	b.WriteString("\nСохранить запись? (да/нет)")
	return b.String()
}

func formatQuantity(quantity float64, unit string) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.1f", quantity), "0"), ".") + " " + unit
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func validationMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
