package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/models"
)

const owner = "owner-1"

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "recall-test-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertMemory(t *testing.T, db *DB, m models.Memory) *models.Memory {
	t.Helper()
	if m.OwnerID == "" {
		m.OwnerID = owner
	}
	if m.Category == "" {
		m.Category = models.CategoryNote
	}
	require.NoError(t, db.InsertMemory(context.Background(), &m))
	return &m
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	require.NoError(t, db.conn.QueryRow(`SELECT count(*) FROM memories`).Scan(&count), "memories table missing")
	require.NoError(t, db.conn.QueryRow(`SELECT count(*) FROM reminders`).Scan(&count), "reminders table missing")
}

func TestInsertAndGetMemory(t *testing.T) {
	db := testDB(t)
	date := time.Date(2025, 11, 26, 17, 0, 0, 0, time.UTC)
	m := insertMemory(t, db, models.Memory{
		FullText:       "Call the dentist Wednesday at 5",
		Summary:        "Call the dentist",
		Category:       models.CategoryReminder,
		Date:           &date,
		ReminderNeeded: true,
		AudioRef:       "uploads/a.webm",
	})
	require.NotEmpty(t, m.ID)
	require.False(t, m.CreatedAt.IsZero())

	got, err := db.GetMemory(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Call the dentist", got.Summary)
	assert.Equal(t, models.CategoryReminder, got.Category)
	require.NotNil(t, got.Date)
	assert.True(t, got.Date.Equal(date), "date = %v, want %v", got.Date, date)
	assert.True(t, got.ReminderNeeded)
}

func TestGetMemoryNotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetMemory(context.Background(), "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListMemoriesNewestFirst(t *testing.T) {
	db := testDB(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	insertMemory(t, db, models.Memory{Summary: "old", FullText: "old", CreatedAt: base})
	insertMemory(t, db, models.Memory{Summary: "new", FullText: "new", CreatedAt: base.Add(time.Hour)})
	insertMemory(t, db, models.Memory{Summary: "other", FullText: "other", OwnerID: "someone-else"})

	list, err := db.ListMemories(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Summary)
}

func TestUpdateAndDeleteMemory(t *testing.T) {
	db := testDB(t)
	m := insertMemory(t, db, models.Memory{Summary: "before", FullText: "x"})

	m.Summary = "after"
	m.IsFavorite = true
	require.NoError(t, db.UpdateMemory(context.Background(), m))
	got, err := db.GetMemory(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Summary)
	assert.True(t, got.IsFavorite)

	require.NoError(t, db.DeleteMemory(context.Background(), m.ID))
	assert.ErrorIs(t, db.DeleteMemory(context.Background(), m.ID), apperr.ErrNotFound)
}

func TestCountMemoriesByAudioRef(t *testing.T) {
	db := testDB(t)
	insertMemory(t, db, models.Memory{Summary: "a", FullText: "a", AudioRef: "uploads/a.webm"})
	insertMemory(t, db, models.Memory{Summary: "b", FullText: "b", AudioRef: "uploads/a.webm"})
	insertMemory(t, db, models.Memory{Summary: "c", FullText: "c"})

	n, err := db.CountMemoriesByAudioRef(context.Background(), "uploads/a.webm")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = db.CountMemoriesByAudioRef(context.Background(), "uploads/missing.webm")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSearchMemories(t *testing.T) {
	db := testDB(t)
	insertMemory(t, db, models.Memory{Summary: "Buy milk", FullText: "remember to buy milk", Category: models.CategoryTask})
	insertMemory(t, db, models.Memory{Summary: "App idea", FullText: "an app for 100% milk lovers", Category: models.CategoryIdea})
	insertMemory(t, db, models.Memory{Summary: "Nothing", FullText: "unrelated"})

	hits, err := db.SearchMemories(context.Background(), models.SearchParams{OwnerID: owner, Query: "MILK"})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	hits, err = db.SearchMemories(context.Background(), models.SearchParams{OwnerID: owner, Query: "milk", Category: models.CategoryIdea})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "App idea", hits[0].Summary)

	hits, err = db.SearchMemories(context.Background(), models.SearchParams{OwnerID: owner, Query: "100%"})
	require.NoError(t, err)
	assert.Len(t, hits, 1, "literal percent")
}

func TestReminderUniquePerMemory(t *testing.T) {
	db := testDB(t)
	m := insertMemory(t, db, models.Memory{Summary: "s", FullText: "f"})
	due := time.Date(2025, 11, 26, 17, 0, 0, 0, time.UTC)

	first := &models.Reminder{OwnerID: owner, MemoryID: &m.ID, Description: "s", DueDate: due}
	require.NoError(t, db.InsertReminder(context.Background(), first))
	second := &models.Reminder{OwnerID: owner, MemoryID: &m.ID, Description: "s", DueDate: due}
	require.ErrorIs(t, db.InsertReminder(context.Background(), second), apperr.ErrDuplicateReminder)

	found, err := db.FindReminderByMemoryID(context.Background(), m.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)
	require.NotNil(t, found.Memory, "memory join missing")
	assert.Equal(t, "s", found.Memory.Summary)
}

func TestConcurrentReminderInsertsYieldOne(t *testing.T) {
	db := testDB(t)
	m := insertMemory(t, db, models.Memory{Summary: "s", FullText: "f"})
	due := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = db.InsertReminder(context.Background(), &models.Reminder{OwnerID: owner, MemoryID: &m.ID, Description: "s", DueDate: due})
		}()
	}
	wg.Wait()

	var n int
	require.NoError(t, db.conn.QueryRow(`SELECT count(*) FROM reminders WHERE memory_id = ?`, m.ID).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestStandaloneRemindersAllowed(t *testing.T) {
	db := testDB(t)
	for range 2 {
		r := &models.Reminder{OwnerID: owner, Description: "standalone", DueDate: time.Now()}
		require.NoError(t, db.InsertReminder(context.Background(), r))
	}
	list, err := db.ListReminders(context.Background(), owner, true)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestListOpenRemindersOrderedAndFiltered(t *testing.T) {
	db := testDB(t)
	base := time.Date(2025, 11, 24, 9, 0, 0, 0, time.UTC)
	late := &models.Reminder{OwnerID: owner, Description: "late", DueDate: base.Add(48 * time.Hour)}
	early := &models.Reminder{OwnerID: owner, Description: "early", DueDate: base}
	done := &models.Reminder{OwnerID: owner, Description: "done", DueDate: base.Add(time.Hour)}
	for _, r := range []*models.Reminder{late, early, done} {
		require.NoError(t, db.InsertReminder(context.Background(), r))
	}
	require.NoError(t, db.SetReminderCompleted(context.Background(), done.ID, true))

	open, err := db.ListOpenReminders(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "early", open[0].Description)
	assert.Equal(t, "late", open[1].Description)
}

func TestDeleteMemoryCascadesReminder(t *testing.T) {
	db := testDB(t)
	m := insertMemory(t, db, models.Memory{Summary: "s", FullText: "f"})
	r := &models.Reminder{OwnerID: owner, MemoryID: &m.ID, Description: "s", DueDate: time.Now()}
	require.NoError(t, db.InsertReminder(context.Background(), r))
	require.NoError(t, db.DeleteMemory(context.Background(), m.ID))

	_, err := db.GetReminder(context.Background(), r.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound, "reminder survived delete")
}

func TestListMemoriesAwaitingReminder(t *testing.T) {
	db := testDB(t)
	date := time.Now().Add(24 * time.Hour)
	covered := insertMemory(t, db, models.Memory{Summary: "covered", FullText: "f", Date: &date, ReminderNeeded: true})
	insertMemory(t, db, models.Memory{Summary: "pending", FullText: "f", Date: &date, ReminderNeeded: true})
	insertMemory(t, db, models.Memory{Summary: "no date", FullText: "f"})
	require.NoError(t, db.InsertReminder(context.Background(), &models.Reminder{OwnerID: owner, MemoryID: &covered.ID, Description: "c", DueDate: date}))

	list, err := db.ListMemoriesAwaitingReminder(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "pending", list[0].Summary)
}
