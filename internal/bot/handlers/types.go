package handlers

import (
	"github.com/dietaryapp/dietary-bot/internal/interfaces"
)

// Dependencies holds all service dependencies for handlers
type Dependencies struct {
	UserService     interfaces.UserService
	EntryService    interfaces.EntryService
	SummaryService  interfaces.SummaryService
	ReminderService interfaces.ReminderService
	DieticianSvc    interfaces.DieticianService
}
