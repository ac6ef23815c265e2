// Package repository is the persistence adapter: all reads and writes
// against the PostgreSQL ledger go through it.
package repository

import (
	"gorm.io/gorm"
)

// Repositories bundles the per-aggregate repositories over one
// database handle.
type Repositories struct {
	Users     *UserRepository
	Entries   *EntryRepository
	Reminders *ReminderRepository
	Recipes   *RecipeRepository
}

// New creates all repositories over the given database connection.
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:     NewUserRepository(db),
		Entries:   NewEntryRepository(db),
		Reminders: NewReminderRepository(db),
		Recipes:   NewRecipeRepository(db),
	}
}
