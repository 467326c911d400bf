// Package reminder derives reminders from memories and groups open
// reminders for display.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/models"
)

// Derive returns the reminder a memory calls for, or nil when it calls for
// none. Only dated memories flagged reminderNeeded produce one.
func Derive(m models.Memory) *models.Reminder {
	if !m.ReminderNeeded || m.Date == nil {
		return nil
	}
	id := m.ID
	return &models.Reminder{
		OwnerID:     m.OwnerID,
		MemoryID:    &id,
		Description: m.Summary,
		DueDate:     *m.Date,
		IsCompleted: false,
	}
}

// Store is the persistence a Deriver needs. InsertReminder must fail with
// apperr.ErrDuplicateReminder when the memory already has a reminder.
type Store interface {
	FindReminderByMemoryID(ctx context.Context, memoryID string) (*models.Reminder, error)
	InsertReminder(ctx context.Context, r *models.Reminder) error
	ListMemoriesAwaitingReminder(ctx context.Context) ([]models.Memory, error)
}

// Deriver creates reminders for persisted memories at most once each.
type Deriver struct {
	store Store
	log   *slog.Logger
}

// NewDeriver returns a Deriver backed by store.
func NewDeriver(store Store, log *slog.Logger) *Deriver {
	if log == nil {
		log = slog.Default()
	}
	return &Deriver{store: store, log: log}
}

// Ensure creates the reminder m calls for unless one already exists.
// created is false when nothing was needed or an existing reminder was
// found; in the latter case that reminder is returned. Errors wrap
// apperr.ErrReminderDerivation.
func (d *Deriver) Ensure(ctx context.Context, m models.Memory) (r *models.Reminder, created bool, err error) {
	want := Derive(m)
	if want == nil {
		return nil, false, nil
	}
	if m.ID == "" {
		return nil, false, fmt.Errorf("%w: memory has no id", apperr.ErrReminderDerivation)
	}

	existing, err := d.store.FindReminderByMemoryID(ctx, m.ID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", apperr.ErrReminderDerivation, err)
	}
	if existing != nil {
		return existing, false, nil
	}

	err = d.store.InsertReminder(ctx, want)
	if errors.Is(err, apperr.ErrDuplicateReminder) {
		// Lost a race with another derivation; the winner's row stands.
		d.log.Debug("reminder: duplicate derivation skipped", slog.String("memory_id", m.ID))
		existing, ferr := d.store.FindReminderByMemoryID(ctx, m.ID)
		if ferr != nil {
			return nil, false, nil
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", apperr.ErrReminderDerivation, err)
	}
	return want, true, nil
}

// BackfillReport summarises a Backfill run.
type BackfillReport struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Backfill derives reminders for every dated, flagged memory that lacks one.
// Individual failures are logged and counted; the run continues.
func (d *Deriver) Backfill(ctx context.Context) (BackfillReport, error) {
	var rep BackfillReport
	memories, err := d.store.ListMemoriesAwaitingReminder(ctx)
	if err != nil {
		return rep, fmt.Errorf("reminder: list memories: %w", err)
	}
	for _, m := range memories {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Scanned++
		_, created, err := d.Ensure(ctx, m)
		switch {
		case err != nil:
			rep.Failed++
			d.log.Warn("reminder: backfill failed", slog.String("memory_id", m.ID), slog.String("error", err.Error()))
		case created:
			rep.Created++
		default:
			rep.Skipped++
		}
	}
	d.log.Info("reminder: backfill complete",
		slog.Int("scanned", rep.Scanned),
		slog.Int("created", rep.Created),
		slog.Int("skipped", rep.Skipped),
		slog.Int("failed", rep.Failed),
	)
	return rep, nil
}
