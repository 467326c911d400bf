// Package testutil provides shared test helpers for wiring a service over a
// temporary database and audio directory.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/recall/internal/audio"
	"github.com/starford/recall/internal/ingest"
	"github.com/starford/recall/internal/memoryservice"
	"github.com/starford/recall/internal/models"
	"github.com/starford/recall/internal/reminder"
	"github.com/starford/recall/internal/store"
	"github.com/starford/recall/internal/structure"
)

// Owner is the identity test fixtures are created for.
const Owner = "11111111-1111-1111-1111-111111111111"

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "recall-test-*.db")
	require.NoError(t, err)
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestAudio creates a temporary audio directory with an FS store.
func TestAudio(t *testing.T) (string, *audio.FS) {
	t.Helper()
	dir := t.TempDir()
	s, err := audio.NewFS(dir, "/api/audio")
	require.NoError(t, err)
	return dir, s
}

// Transcriber returns a fixed transcript, or Err when set.
type Transcriber struct {
	Text string
	Err  error
}

// Transcribe implements ingest.Transcriber.
func (f Transcriber) Transcribe(context.Context, string) (string, error) {
	return f.Text, f.Err
}

// Structurer returns a fixed draft, or Err when set.
type Structurer struct {
	Draft models.Draft
	Err   error
}

// Structure implements structure.Structurer.
func (f Structurer) Structure(context.Context, string, time.Time) (models.Draft, error) {
	return f.Draft, f.Err
}

// Env is a fully wired service over temporary storage.
type Env struct {
	Service *memoryservice.Service
	DB      *store.DB
	Audio   *audio.FS
	Now     time.Time
}

// NewEnv wires a Service with the given capabilities. now fixes the clock.
func NewEnv(t *testing.T, tr ingest.Transcriber, st structure.Structurer, now time.Time) *Env {
	t.Helper()
	db := TestDB(t)
	_, audioStore := TestAudio(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	deriver := reminder.NewDeriver(db, log)
	pipeline := ingest.New(tr, structure.NewClassifier(st, log), db, deriver, ingest.WithLogger(log))
	svc := memoryservice.New(memoryservice.Deps{
		DB:          db,
		Audio:       audioStore,
		Pipeline:    pipeline,
		Transcriber: tr,
		Deriver:     deriver,
		Logger:      log,
		Now:         func() time.Time { return now },
	}, memoryservice.Config{Location: now.Location(), WeekStart: time.Monday})
	return &Env{Service: svc, DB: db, Audio: audioStore, Now: now}
}
