package memoryservice_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/memoryservice"
	"github.com/starford/recall/internal/models"
	"github.com/starford/recall/internal/reminder"
	"github.com/starford/recall/internal/testutil"
)

// Monday noon.
var now = time.Date(2025, 11, 24, 12, 0, 0, 0, time.UTC)

func dated(d time.Time) *time.Time { return &d }

func newEnv(t *testing.T, draft models.Draft) *testutil.Env {
	return testutil.NewEnv(t,
		testutil.Transcriber{Text: "Remind me to call Mom at 5pm on Wednesday"},
		testutil.Structurer{Draft: draft},
		now)
}

func TestUploadThenIngest(t *testing.T) {
	env := newEnv(t, models.Draft{
		Summary:        "Call Mom",
		Category:       models.CategoryReminder,
		Date:           dated(time.Date(2025, 11, 26, 17, 0, 0, 0, time.UTC)),
		ReminderNeeded: true,
	})
	ctx := context.Background()

	obj, err := env.Service.UploadAudio(ctx, "memo.webm", "audio/webm", strings.NewReader("bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(obj.Ref, "uploads/"))

	rc, err := env.Service.OpenAudio(ctx, obj.Ref)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	require.Equal(t, "bytes", string(data))

	res, err := env.Service.Ingest(ctx, testutil.Owner, obj.Ref)
	require.NoError(t, err)
	require.Equal(t, obj.Ref, res.Memory.AudioRef)
	require.NotNil(t, res.Reminder)

	groups, err := env.Service.GroupedReminders(ctx, testutil.Owner)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, reminder.LabelThisWeek, groups[0].Label)
	require.Equal(t, "Call Mom", groups[0].Items[0].Memory.Summary)
}

func TestIngestRequiresRef(t *testing.T) {
	env := newEnv(t, models.Draft{Summary: "s", Category: models.CategoryNote})
	_, err := env.Service.Ingest(context.Background(), testutil.Owner, " ")
	require.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestCreateFromTextValidates(t *testing.T) {
	env := newEnv(t, models.Draft{Summary: "Buy milk", Category: models.CategoryTask})
	_, err := env.Service.CreateFromText(context.Background(), testutil.Owner, "   ", "")
	require.True(t, errors.Is(err, apperr.ErrInvalidInput))

	res, err := env.Service.CreateFromText(context.Background(), testutil.Owner, "buy milk", `https://cdn.example.com\a.webm`)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/a.webm", res.Memory.AudioRef)
	require.Nil(t, res.Reminder)
}

func TestOwnerIsolation(t *testing.T) {
	env := newEnv(t, models.Draft{Summary: "s", Category: models.CategoryNote})
	res, err := env.Service.CreateFromText(context.Background(), testutil.Owner, "text", "")
	require.NoError(t, err)

	_, err = env.Service.GetMemory(context.Background(), "someone-else", res.Memory.ID)
	require.True(t, errors.Is(err, apperr.ErrNotFound))
	err = env.Service.DeleteMemory(context.Background(), "someone-else", res.Memory.ID)
	require.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestUpdateMemoryCouplesDate(t *testing.T) {
	env := newEnv(t, models.Draft{Summary: "s", Category: models.CategoryNote})
	ctx := context.Background()
	res, err := env.Service.CreateFromText(ctx, testutil.Owner, "text", "")
	require.NoError(t, err)
	require.False(t, res.Memory.ReminderNeeded)

	date := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	off := false
	m, err := env.Service.UpdateMemory(ctx, testutil.Owner, res.Memory.ID, models.MemoryUpdate{Date: &date, ReminderNeeded: &off})
	require.NoError(t, err)
	require.True(t, m.ReminderNeeded)

	stored, err := env.Service.GetMemory(ctx, testutil.Owner, res.Memory.ID)
	require.NoError(t, err)
	require.True(t, stored.ReminderNeeded)
	require.True(t, stored.Date.Equal(date))

	bad := models.Category("shopping")
	_, err = env.Service.UpdateMemory(ctx, testutil.Owner, res.Memory.ID, models.MemoryUpdate{Category: &bad})
	require.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestDeleteMemoryRemovesRecordingAndReminder(t *testing.T) {
	env := newEnv(t, models.Draft{Summary: "s", Category: models.CategoryReminder, Date: dated(now.Add(time.Hour))})
	ctx := context.Background()

	obj, err := env.Service.UploadAudio(ctx, "a.webm", "", strings.NewReader("x"))
	require.NoError(t, err)
	res, err := env.Service.Ingest(ctx, testutil.Owner, obj.Ref)
	require.NoError(t, err)
	require.NotNil(t, res.Reminder)

	require.NoError(t, env.Service.DeleteMemory(ctx, testutil.Owner, res.Memory.ID))

	_, err = env.Service.OpenAudio(ctx, obj.Ref)
	require.True(t, errors.Is(err, apperr.ErrNotFound))
	list, err := env.Service.ListReminders(ctx, testutil.Owner, true)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestDeleteMemoryKeepsSharedRecording(t *testing.T) {
	env := newEnv(t, models.Draft{Summary: "s", Category: models.CategoryNote})
	ctx := context.Background()

	obj, err := env.Service.UploadAudio(ctx, "a.webm", "", strings.NewReader("x"))
	require.NoError(t, err)
	kept, err := env.Service.Ingest(ctx, testutil.Owner, obj.Ref)
	require.NoError(t, err)
	retried, err := env.Service.Ingest(ctx, testutil.Owner, obj.Ref)
	require.NoError(t, err)

	require.NoError(t, env.Service.DeleteMemory(ctx, testutil.Owner, retried.Memory.ID))
	rc, err := env.Service.OpenAudio(ctx, kept.Memory.AudioRef)
	require.NoError(t, err, "recording still referenced by another memory")
	rc.Close()

	require.NoError(t, env.Service.DeleteMemory(ctx, testutil.Owner, kept.Memory.ID))
	_, err = env.Service.OpenAudio(ctx, obj.Ref)
	require.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestDiscardAudio(t *testing.T) {
	env := newEnv(t, models.Draft{Summary: "s", Category: models.CategoryNote})
	ctx := context.Background()

	orphan, err := env.Service.UploadAudio(ctx, "orphan.webm", "", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, env.Service.DiscardAudio(ctx, orphan.Ref))
	_, err = env.Service.OpenAudio(ctx, orphan.Ref)
	require.True(t, errors.Is(err, apperr.ErrNotFound))
	require.NoError(t, env.Service.DiscardAudio(ctx, orphan.Ref), "already gone")

	used, err := env.Service.UploadAudio(ctx, "used.webm", "", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = env.Service.Ingest(ctx, testutil.Owner, used.Ref)
	require.NoError(t, err)
	require.NoError(t, env.Service.DiscardAudio(ctx, used.Ref))
	rc, err := env.Service.OpenAudio(ctx, used.Ref)
	require.NoError(t, err, "referenced recording kept")
	rc.Close()
}

func TestSearch(t *testing.T) {
	env := newEnv(t, models.Draft{Summary: "Groceries", Category: models.CategoryTask})
	ctx := context.Background()
	_, err := env.Service.CreateFromText(ctx, testutil.Owner, "buy oat milk and eggs", "")
	require.NoError(t, err)

	hits, err := env.Service.Search(ctx, models.SearchParams{OwnerID: testutil.Owner, Query: "OAT"})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = env.Service.Search(ctx, models.SearchParams{OwnerID: testutil.Owner, Query: "oat", Category: models.CategoryIdea})
	require.NoError(t, err)
	require.Empty(t, hits)

	_, err = env.Service.Search(ctx, models.SearchParams{OwnerID: testutil.Owner, Category: "bogus"})
	require.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestStandaloneAndLinkedReminders(t *testing.T) {
	env := newEnv(t, models.Draft{Summary: "Call Mom", Category: models.CategoryReminder, Date: dated(now.AddDate(0, 0, 2))})
	ctx := context.Background()

	standalone, err := env.Service.CreateReminder(ctx, testutil.Owner, memoryservice.NewReminder{
		Description: "Water plants",
		DueDate:     now.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	require.Nil(t, standalone.MemoryID)

	res, err := env.Service.CreateFromText(ctx, testutil.Owner, "call mom wednesday", "")
	require.NoError(t, err)
	again, err := env.Service.CreateReminder(ctx, testutil.Owner, memoryservice.NewReminder{
		MemoryID:    res.Memory.ID,
		Description: "Call Mom (again)",
		DueDate:     now.AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	require.Equal(t, res.Reminder.ID, again.ID)

	_, err = env.Service.CreateReminder(ctx, testutil.Owner, memoryservice.NewReminder{Description: "x"})
	require.True(t, errors.Is(err, apperr.ErrInvalidInput))
	_, err = env.Service.CreateReminder(ctx, testutil.Owner, memoryservice.NewReminder{MemoryID: "missing", Description: "x", DueDate: now})
	require.True(t, errors.Is(err, apperr.ErrNotFound))

	groups, err := env.Service.GroupedReminders(ctx, testutil.Owner)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, reminder.LabelToday, groups[0].Label)
	require.Equal(t, reminder.LabelThisWeek, groups[1].Label)

	done, err := env.Service.SetReminderCompleted(ctx, testutil.Owner, standalone.ID, true)
	require.NoError(t, err)
	require.True(t, done.IsCompleted)

	groups, err = env.Service.GroupedReminders(ctx, testutil.Owner)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	all, err := env.Service.ListReminders(ctx, testutil.Owner, true)
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = env.Service.SetReminderCompleted(ctx, "someone-else", standalone.ID, false)
	require.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestTranscribeWithoutProvider(t *testing.T) {
	env := testutil.NewEnv(t, nil, nil, now)
	_, err := env.Service.Transcribe(context.Background(), "uploads/a.webm")
	require.True(t, errors.Is(err, apperr.ErrTranscription))
}

func TestBackfillReminders(t *testing.T) {
	env := newEnv(t, models.Draft{Summary: "s", Category: models.CategoryNote})
	ctx := context.Background()
	date := now.AddDate(0, 0, 1)
	m := models.Memory{OwnerID: testutil.Owner, FullText: "t", Summary: "legacy", Category: models.CategoryReminder, Date: &date, ReminderNeeded: true}
	require.NoError(t, env.DB.InsertMemory(ctx, &m))

	rep, err := env.Service.BackfillReminders(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Created)

	list, err := env.Service.ListReminders(ctx, testutil.Owner, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "legacy", list[0].Description)
}
