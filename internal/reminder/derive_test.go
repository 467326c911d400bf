package reminder

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/models"
	"github.com/starford/recall/internal/store"
)

func testStore(t *testing.T) *store.DB {
	t.Helper()
	return openStore(t, tempDBPath(t))
}

func tempDBPath(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "recall-reminder-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func openStore(t *testing.T, path string) *store.DB {
	t.Helper()
	db, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func persistedMemory(t *testing.T, db *store.DB, date *time.Time, needed bool) models.Memory {
	t.Helper()
	m := models.Memory{
		OwnerID:        "owner-1",
		FullText:       "Remind me to call Mom",
		Summary:        "Call Mom",
		Category:       models.CategoryReminder,
		Date:           date,
		ReminderNeeded: needed,
	}
	require.NoError(t, db.InsertMemory(context.Background(), &m))
	return m
}

func TestDeriveRule(t *testing.T) {
	date := time.Date(2025, 11, 26, 17, 0, 0, 0, time.UTC)

	r := Derive(models.Memory{ID: "m1", OwnerID: "o", Summary: "Call Mom", Date: &date, ReminderNeeded: true})
	require.NotNil(t, r)
	require.Equal(t, "m1", *r.MemoryID)
	require.Equal(t, "Call Mom", r.Description)
	require.True(t, r.DueDate.Equal(date))
	require.False(t, r.IsCompleted)

	require.Nil(t, Derive(models.Memory{ID: "m2", ReminderNeeded: true}))
	require.Nil(t, Derive(models.Memory{ID: "m3", Date: &date}))
}

func TestEnsureIsIdempotent(t *testing.T) {
	db := testStore(t)
	date := time.Date(2025, 11, 26, 17, 0, 0, 0, time.UTC)
	m := persistedMemory(t, db, &date, true)
	d := NewDeriver(db, nil)

	first, created, err := d.Ensure(context.Background(), m)
	require.NoError(t, err)
	require.True(t, created)
	require.NotEmpty(t, first.ID)

	second, created, err := d.Ensure(context.Background(), m)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	all, err := db.ListReminders(context.Background(), "owner-1", true)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestEnsureConcurrentDerivations(t *testing.T) {
	path := tempDBPath(t)
	dbs := []*store.DB{openStore(t, path), openStore(t, path)}
	date := time.Now().Add(24 * time.Hour)
	m := persistedMemory(t, dbs[0], &date, true)

	const workers = 6
	type outcome struct {
		reminder *models.Reminder
		created  bool
		err      error
	}
	results := make(chan outcome, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, c, err := NewDeriver(dbs[i%len(dbs)], nil).Ensure(context.Background(), m)
			results <- outcome{reminder: r, created: c, err: err}
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	ids := map[string]struct{}{}
	for res := range results {
		require.NoError(t, res.err)
		require.NotNil(t, res.reminder)
		ids[res.reminder.ID] = struct{}{}
		if res.created {
			created++
		}
	}
	require.Equal(t, 1, created)
	require.Len(t, ids, 1, "every caller sees the same reminder")

	all, err := dbs[1].ListReminders(context.Background(), "owner-1", true)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestEnsureSkipsUndated(t *testing.T) {
	db := testStore(t)
	m := persistedMemory(t, db, nil, true)

	r, created, err := NewDeriver(db, nil).Ensure(context.Background(), m)
	require.NoError(t, err)
	require.False(t, created)
	require.Nil(t, r)
}

type racingStore struct {
	winner *models.Reminder
	finds  int
}

func (s *racingStore) FindReminderByMemoryID(context.Context, string) (*models.Reminder, error) {
	s.finds++
	if s.finds == 1 {
		return nil, nil
	}
	return s.winner, nil
}

func (s *racingStore) InsertReminder(context.Context, *models.Reminder) error {
	return apperr.ErrDuplicateReminder
}

func (s *racingStore) ListMemoriesAwaitingReminder(context.Context) ([]models.Memory, error) {
	return nil, nil
}

func TestEnsureDuplicateIsBenign(t *testing.T) {
	date := time.Now()
	winner := &models.Reminder{ID: "r-winner"}
	s := &racingStore{winner: winner}

	r, created, err := NewDeriver(s, nil).Ensure(context.Background(), models.Memory{ID: "m", Date: &date, ReminderNeeded: true})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "r-winner", r.ID)
}

type failingStore struct{ racingStore }

func (failingStore) InsertReminder(context.Context, *models.Reminder) error {
	return errors.New("disk full")
}

func TestEnsureWrapsDerivationError(t *testing.T) {
	date := time.Now()
	_, _, err := NewDeriver(&failingStore{}, nil).Ensure(context.Background(), models.Memory{ID: "m", Date: &date, ReminderNeeded: true})
	require.True(t, errors.Is(err, apperr.ErrReminderDerivation))
}

func TestBackfill(t *testing.T) {
	db := testStore(t)
	date := time.Now().Add(48 * time.Hour)
	covered := persistedMemory(t, db, &date, true)
	persistedMemory(t, db, &date, true)
	persistedMemory(t, db, &date, true)
	persistedMemory(t, db, nil, true)

	d := NewDeriver(db, nil)
	_, _, err := d.Ensure(context.Background(), covered)
	require.NoError(t, err)

	rep, err := d.Backfill(context.Background())
	require.NoError(t, err)
	require.Equal(t, BackfillReport{Scanned: 2, Created: 2}, rep)

	rep, err = d.Backfill(context.Background())
	require.NoError(t, err)
	require.Equal(t, BackfillReport{}, rep)
}
