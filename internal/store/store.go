package store

import (
	"context"

	"github.com/starford/recall/internal/models"
)

// Repository defines the persistence operations consumed by the services.
// Consumers should depend on this (or a narrower) interface rather than the
// concrete *DB type to facilitate testing with fakes.
type Repository interface {
	InsertMemory(ctx context.Context, m *models.Memory) error
	GetMemory(ctx context.Context, id string) (*models.Memory, error)
	UpdateMemory(ctx context.Context, m *models.Memory) error
	DeleteMemory(ctx context.Context, id string) error
	ListMemories(ctx context.Context, ownerID string) ([]models.Memory, error)
	SearchMemories(ctx context.Context, p models.SearchParams) ([]models.Memory, error)
	ListMemoriesAwaitingReminder(ctx context.Context) ([]models.Memory, error)
	CountMemoriesByAudioRef(ctx context.Context, ref string) (int, error)

	InsertReminder(ctx context.Context, r *models.Reminder) error
	GetReminder(ctx context.Context, id string) (*models.Reminder, error)
	FindReminderByMemoryID(ctx context.Context, memoryID string) (*models.Reminder, error)
	ListReminders(ctx context.Context, ownerID string, includeCompleted bool) ([]models.Reminder, error)
	ListOpenReminders(ctx context.Context, ownerID string) ([]models.Reminder, error)
	SetReminderCompleted(ctx context.Context, id string, completed bool) error

	Close() error
}

// Verify *DB satisfies Repository at compile time.
var _ Repository = (*DB)(nil)
