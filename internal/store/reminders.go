package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/models"
)

const reminderSelect = `
	SELECT r.id, r.owner_id, r.memory_id, r.description, r.due_date, r.is_completed, r.created_at,
	       m.summary, m.category
	FROM reminders r
	LEFT JOIN memories m ON m.id = r.memory_id`

// InsertReminder persists a reminder. A second reminder for the same memory
// fails with apperr.ErrDuplicateReminder.
func (db *DB) InsertReminder(ctx context.Context, r *models.Reminder) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO reminders (id, owner_id, memory_id, description, due_date, is_completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.OwnerID, r.MemoryID, r.Description, r.DueDate.UTC(), r.IsCompleted, r.CreatedAt.UTC())
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("memory %s: %w", derefOr(r.MemoryID, "?"), apperr.ErrDuplicateReminder)
		}
		return fmt.Errorf("store: insert reminder: %w", err)
	}
	return nil
}

// GetReminder returns one reminder by ID, or apperr.ErrNotFound.
func (db *DB) GetReminder(ctx context.Context, id string) (*models.Reminder, error) {
	row := db.conn.QueryRowContext(ctx, reminderSelect+` WHERE r.id = ?`, id)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reminder %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get reminder: %w", err)
	}
	return r, nil
}

// FindReminderByMemoryID returns the reminder derived from a memory, or
// (nil, nil) when none exists.
func (db *DB) FindReminderByMemoryID(ctx context.Context, memoryID string) (*models.Reminder, error) {
	row := db.conn.QueryRowContext(ctx, reminderSelect+` WHERE r.memory_id = ?`, memoryID)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find reminder: %w", err)
	}
	return r, nil
}

// ListReminders returns an owner's reminders ordered by due date ascending.
func (db *DB) ListReminders(ctx context.Context, ownerID string, includeCompleted bool) ([]models.Reminder, error) {
	q := reminderSelect + ` WHERE r.owner_id = ?`
	if !includeCompleted {
		q += ` AND r.is_completed = 0`
	}
	q += ` ORDER BY r.due_date ASC, r.created_at ASC`

	rows, err := db.conn.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("store: list reminders: %w", err)
	}
	defer rows.Close()

	out := []models.Reminder{}
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan reminder: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ListOpenReminders returns an owner's incomplete reminders by due date.
func (db *DB) ListOpenReminders(ctx context.Context, ownerID string) ([]models.Reminder, error) {
	return db.ListReminders(ctx, ownerID, false)
}

// SetReminderCompleted marks a reminder done or reopens it.
func (db *DB) SetReminderCompleted(ctx context.Context, id string, completed bool) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE reminders SET is_completed = ? WHERE id = ?`, completed, id)
	if err != nil {
		return fmt.Errorf("store: update reminder: %w", err)
	}
	return requireAffected(res, "reminder", id)
}

func scanReminder(s scanner) (*models.Reminder, error) {
	var (
		r        models.Reminder
		memoryID sql.NullString
		summary  sql.NullString
		category sql.NullString
	)
	if err := s.Scan(&r.ID, &r.OwnerID, &memoryID, &r.Description, &r.DueDate,
		&r.IsCompleted, &r.CreatedAt, &summary, &category); err != nil {
		return nil, err
	}
	if memoryID.Valid {
		id := memoryID.String
		r.MemoryID = &id
	}
	if summary.Valid {
		r.Memory = &models.MemoryRef{Summary: summary.String, Category: models.Category(category.String)}
	}
	return &r, nil
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
