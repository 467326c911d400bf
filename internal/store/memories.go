package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/models"
)

const memoryColumns = `id, owner_id, full_text, summary, category, date, reminder_needed, audio_ref, is_favorite, created_at`

// InsertMemory persists a new memory. ID and CreatedAt are assigned here when
// the caller leaves them empty.
func (db *DB) InsertMemory(ctx context.Context, m *models.Memory) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO memories (`+memoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.OwnerID, m.FullText, m.Summary, string(m.Category), utcPtr(m.Date),
		m.ReminderNeeded, m.AudioRef, m.IsFavorite, m.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("store: insert memory: %w", err)
	}
	return nil
}

// GetMemory returns one memory by ID, or apperr.ErrNotFound.
func (db *DB) GetMemory(ctx context.Context, id string) (*models.Memory, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("memory %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get memory: %w", err)
	}
	return m, nil
}

// UpdateMemory writes the mutable fields of m back to its row.
func (db *DB) UpdateMemory(ctx context.Context, m *models.Memory) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE memories SET
			summary         = ?,
			category        = ?,
			date            = ?,
			reminder_needed = ?,
			is_favorite     = ?
		WHERE id = ?
	`, m.Summary, string(m.Category), utcPtr(m.Date), m.ReminderNeeded, m.IsFavorite, m.ID)
	if err != nil {
		return fmt.Errorf("store: update memory: %w", err)
	}
	return requireAffected(res, "memory", m.ID)
}

// DeleteMemory removes a memory. Its reminder, if any, goes with it.
func (db *DB) DeleteMemory(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete memory: %w", err)
	}
	return requireAffected(res, "memory", id)
}

// CountMemoriesByAudioRef returns how many memories point at a stored recording.
func (db *DB) CountMemoriesByAudioRef(ctx context.Context, ref string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE audio_ref = ?`, ref).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count memories by audio ref: %w", err)
	}
	return n, nil
}

// ListMemories returns an owner's memories, newest first.
func (db *DB) ListMemories(ctx context.Context, ownerID string) ([]models.Memory, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+memoryColumns+` FROM memories
		WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("store: list memories: %w", err)
	}
	return collectMemories(rows)
}

// SearchMemories does a case-insensitive substring match over summary and
// full text, optionally narrowed to one category.
func (db *DB) SearchMemories(ctx context.Context, p models.SearchParams) ([]models.Memory, error) {
	var (
		where = []string{"owner_id = ?"}
		args  = []any{p.OwnerID}
	)
	if q := strings.TrimSpace(p.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		where = append(where, `(summary LIKE ? ESCAPE '\' OR full_text LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if p.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(p.Category))
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+memoryColumns+` FROM memories
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search memories: %w", err)
	}
	return collectMemories(rows)
}

// ListMemoriesAwaitingReminder returns memories flagged for a reminder that
// have a date but no reminder row yet, across all owners.
func (db *DB) ListMemoriesAwaitingReminder(ctx context.Context) ([]models.Memory, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+prefixed("m", memoryColumns)+` FROM memories m
		LEFT JOIN reminders r ON r.memory_id = m.id
		WHERE m.reminder_needed = 1 AND m.date IS NOT NULL AND r.id IS NULL
		ORDER BY m.created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: memories awaiting reminder: %w", err)
	}
	return collectMemories(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(s scanner) (*models.Memory, error) {
	var (
		m        models.Memory
		category string
		date     sql.NullTime
	)
	if err := s.Scan(&m.ID, &m.OwnerID, &m.FullText, &m.Summary, &category, &date,
		&m.ReminderNeeded, &m.AudioRef, &m.IsFavorite, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Category = models.Category(category)
	if date.Valid {
		t := date.Time
		m.Date = &t
	}
	return &m, nil
}

func collectMemories(rows *sql.Rows) ([]models.Memory, error) {
	defer rows.Close()
	out := []models.Memory{}
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan memory: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// utcPtr normalises timestamps to UTC so their text form sorts chronologically.
func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, apperr.ErrNotFound)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func prefixed(alias, cols string) string {
	parts := strings.Split(cols, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
