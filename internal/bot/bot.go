package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/dietaryapp/dietary-bot/internal/bot/dialog"
	"github.com/dietaryapp/dietary-bot/internal/bot/handlers"
	apperrors "github.com/dietaryapp/dietary-bot/internal/errors"
	"github.com/dietaryapp/dietary-bot/internal/logger"
)

// Bot owns the telegram connection and dispatches updates. Updates
// from different users run concurrently; updates from the same user
// are serialized so dialogue state never sees interleaved writes.
type Bot struct {
	api        *tgbotapi.BotAPI
	handler    *handlers.UpdateHandler
	errHandler *apperrors.Handler
	locks      *userLocks
}

// NewBot creates a new bot instance
func NewBot(token string, deps handlers.Dependencies, machine *dialog.Machine) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Infof("Bot authorized on account %s", api.Self.UserName)
	return &Bot{
		api:        api,
		handler:    handlers.NewUpdateHandler(api, deps, machine),
		errHandler: apperrors.NewHandler(logger.GetLogger()),
		locks:      newUserLocks(),
	}, nil
}

// Send delivers a plain text message to a chat. It is the outbound
// path used by the reminder scheduler.
func (b *Bot) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeDelivery, "SEND_FAILED", "failed to send message")
	}
	return nil
}

// Start runs the long-polling loop until the context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	logger.Info("Bot is now listening for updates...")

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			logger.Info("Bot is shutting down...")
			b.api.StopReceivingUpdates()
			wg.Wait()
			return ctx.Err()
		case update := <-updates:
			userID := updateUserID(update)
			if userID == 0 {
				continue
			}

			wg.Add(1)
			go func(update tgbotapi.Update) {
				defer wg.Done()
				unlock := b.locks.lock(userID)
				defer unlock()

				if err := b.handler.Handle(ctx, update); err != nil {
					b.errHandler.Handle(ctx, err)
				}
			}(update)
		}
	}
}

func updateUserID(update tgbotapi.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// userLocks hands out one mutex per telegram user. Entries are
// reference-counted and removed once the last holder releases, so the
// map never grows with the set of users ever seen.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*userLock)}
}

// lock acquires the user's mutex and returns the release func.
func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[userID]
	if !ok {
		entry = &userLock{}
		l.locks[userID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
