// Package memoryservice is the application facade shared by the HTTP API,
// the MCP server and the CLI.
package memoryservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/audio"
	"github.com/starford/recall/internal/ingest"
	"github.com/starford/recall/internal/memory"
	"github.com/starford/recall/internal/models"
	"github.com/starford/recall/internal/reminder"
	"github.com/starford/recall/internal/store"
)

// Notifier receives record changes made outside the ingestion pipeline.
type Notifier interface {
	ingest.Notifier
	MemoryUpdated(m models.Memory)
	MemoryDeleted(id string)
	ReminderUpdated(r models.Reminder)
}

// Transcriber is the standalone transcription capability.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string) (string, error)
}

// Config carries the calendar settings reminders are grouped with.
type Config struct {
	Location  *time.Location
	WeekStart time.Weekday
}

// Service coordinates the store, audio storage and the ingestion pipeline.
type Service struct {
	db          store.Repository
	audio       audio.Store
	pipeline    *ingest.Pipeline
	transcriber Transcriber
	deriver     *reminder.Deriver
	notifier    Notifier
	cfg         Config
	now         func() time.Time
	log         *slog.Logger
}

// Deps groups the collaborators of a Service.
type Deps struct {
	DB          store.Repository
	Audio       audio.Store
	Pipeline    *ingest.Pipeline
	Transcriber Transcriber
	Deriver     *reminder.Deriver
	Notifier    Notifier
	Logger      *slog.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// New creates a Service.
func New(d Deps, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{
		db:          d.DB,
		audio:       d.Audio,
		pipeline:    d.Pipeline,
		transcriber: d.Transcriber,
		deriver:     d.Deriver,
		notifier:    d.Notifier,
		cfg:         cfg,
		now:         d.Now,
		log:         d.Logger,
	}
}

// Now returns the current time in the user's calendar.
func (s *Service) Now() time.Time { return s.now().In(s.cfg.Location) }

// --- audio ---

// UploadAudio stores a recording under a fresh ref.
func (s *Service) UploadAudio(ctx context.Context, filename, contentType string, r io.Reader) (audio.Object, error) {
	ref := audio.NewRef(filename, contentType)
	obj, err := s.audio.Put(ctx, ref, r, contentType)
	if err != nil {
		return audio.Object{}, fmt.Errorf("%w: store recording: %v", apperr.ErrPersistence, err)
	}
	return obj, nil
}

// OpenAudio returns a stored recording.
func (s *Service) OpenAudio(ctx context.Context, ref string) (io.ReadCloser, error) {
	rc, err := s.audio.Open(ctx, ref)
	if errors.Is(err, audio.ErrNotFound) {
		return nil, fmt.Errorf("recording %s: %w", ref, apperr.ErrNotFound)
	}
	return rc, err
}

// AudioURL returns where a client can play back ref. Refs that are already
// URLs are returned as is.
func (s *Service) AudioURL(ref string) string {
	if ref == "" || isURL(ref) || s.audio == nil {
		return ref
	}
	return s.audio.URL(ref)
}

// Transcribe returns the transcript of a stored recording without saving anything.
func (s *Service) Transcribe(ctx context.Context, audioRef string) (string, error) {
	if s.transcriber == nil {
		return "", fmt.Errorf("%w: no transcription provider configured", apperr.ErrTranscription)
	}
	return s.transcriber.Transcribe(ctx, audioRef)
}

// --- ingestion ---

// Ingest runs the full pipeline over a stored recording.
func (s *Service) Ingest(ctx context.Context, ownerID, audioRef string) (*ingest.Result, error) {
	if strings.TrimSpace(audioRef) == "" {
		return nil, fmt.Errorf("%w: audioRef is required", apperr.ErrInvalidInput)
	}
	return s.pipeline.Ingest(ctx, audioRef, ownerID, s.Now())
}

// CreateFromText stores a memory for text the client already transcribed.
func (s *Service) CreateFromText(ctx context.Context, ownerID, text, audioURL string) (*ingest.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", apperr.ErrInvalidInput)
	}
	return s.pipeline.IngestText(ctx, text, audioURL, ownerID, s.Now())
}

// --- memories ---

// ListMemories returns the owner's memories, newest first.
func (s *Service) ListMemories(ctx context.Context, ownerID string) ([]models.Memory, error) {
	return s.db.ListMemories(ctx, ownerID)
}

// GetMemory returns a memory the owner can see.
func (s *Service) GetMemory(ctx context.Context, ownerID, id string) (*models.Memory, error) {
	m, err := s.db.GetMemory(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.OwnerID != ownerID {
		return nil, fmt.Errorf("memory %s: %w", id, apperr.ErrNotFound)
	}
	return m, nil
}

// UpdateMemory applies a partial edit. The date/reminder coupling of the
// creation path applies here too.
func (s *Service) UpdateMemory(ctx context.Context, ownerID, id string, u models.MemoryUpdate) (*models.Memory, error) {
	if u.Category != nil && !u.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", apperr.ErrInvalidInput, *u.Category)
	}
	if u.Summary != nil && strings.TrimSpace(*u.Summary) == "" {
		return nil, fmt.Errorf("%w: summary cannot be empty", apperr.ErrInvalidInput)
	}
	m, err := s.GetMemory(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if u.Empty() {
		return m, nil
	}
	memory.Apply(m, u)
	if err := s.db.UpdateMemory(ctx, m); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.MemoryUpdated(*m)
	}
	return m, nil
}

// DeleteMemory removes a memory, its reminder, and its stored recording.
// Recording removal is best effort.
func (s *Service) DeleteMemory(ctx context.Context, ownerID, id string) error {
	m, err := s.GetMemory(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteMemory(ctx, id); err != nil {
		return err
	}
	if ref := m.AudioRef; ref != "" && !isURL(ref) && s.audio != nil {
		s.releaseRecording(ctx, ref)
	}
	if s.notifier != nil {
		s.notifier.MemoryDeleted(id)
	}
	return nil
}

// releaseRecording deletes a stored recording once no memory refers to it.
// Retried ingestions of one upload share the ref.
func (s *Service) releaseRecording(ctx context.Context, ref string) {
	if err := s.DiscardAudio(ctx, ref); err != nil {
		s.log.Warn("memoryservice: recording not released", slog.String("audio_ref", ref), slog.String("error", err.Error()))
	}
}

// DiscardAudio deletes the recording at ref unless a memory still points
// at it. A missing recording is not an error.
func (s *Service) DiscardAudio(ctx context.Context, ref string) error {
	n, err := s.db.CountMemoriesByAudioRef(ctx, ref)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	if n > 0 {
		return nil
	}
	if err := s.audio.Delete(ctx, ref); err != nil && !errors.Is(err, audio.ErrNotFound) {
		return fmt.Errorf("%w: delete recording: %v", apperr.ErrPersistence, err)
	}
	return nil
}

// Search matches query against summary and full text.
func (s *Service) Search(ctx context.Context, p models.SearchParams) ([]models.Memory, error) {
	if p.Category != "" && !p.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", apperr.ErrInvalidInput, p.Category)
	}
	return s.db.SearchMemories(ctx, p)
}

// --- reminders ---

// NewReminder is a standalone reminder request.
type NewReminder struct {
	MemoryID    string
	Description string
	DueDate     time.Time
}

// CreateReminder creates a reminder by direct user action. When the memory
// already has one, that reminder is returned unchanged.
func (s *Service) CreateReminder(ctx context.Context, ownerID string, in NewReminder) (*models.Reminder, error) {
	if strings.TrimSpace(in.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", apperr.ErrInvalidInput)
	}
	if in.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: dueDate is required", apperr.ErrInvalidInput)
	}
	r := &models.Reminder{
		OwnerID:     ownerID,
		Description: strings.TrimSpace(in.Description),
		DueDate:     in.DueDate,
	}
	if in.MemoryID != "" {
		if _, err := s.GetMemory(ctx, ownerID, in.MemoryID); err != nil {
			return nil, err
		}
		id := in.MemoryID
		r.MemoryID = &id
	}

	err := s.db.InsertReminder(ctx, r)
	if errors.Is(err, apperr.ErrDuplicateReminder) {
		existing, ferr := s.db.FindReminderByMemoryID(ctx, in.MemoryID)
		if ferr != nil {
			return nil, ferr
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	created, err := s.db.GetReminder(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.ReminderCreated(*created)
	}
	return created, nil
}

// GroupedReminders returns the owner's open reminders bucketed by due date.
func (s *Service) GroupedReminders(ctx context.Context, ownerID string) ([]models.ReminderGroup, error) {
	open, err := s.db.ListOpenReminders(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return reminder.Group(open, s.Now(), s.cfg.WeekStart), nil
}

// ListReminders returns the owner's reminders by due date.
func (s *Service) ListReminders(ctx context.Context, ownerID string, includeCompleted bool) ([]models.Reminder, error) {
	return s.db.ListReminders(ctx, ownerID, includeCompleted)
}

// SetReminderCompleted marks a reminder done or reopens it.
func (s *Service) SetReminderCompleted(ctx context.Context, ownerID, id string, completed bool) (*models.Reminder, error) {
	r, err := s.db.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != ownerID {
		return nil, fmt.Errorf("reminder %s: %w", id, apperr.ErrNotFound)
	}
	if r.IsCompleted == completed {
		return r, nil
	}
	if err := s.db.SetReminderCompleted(ctx, id, completed); err != nil {
		return nil, err
	}
	r.IsCompleted = completed
	if s.notifier != nil {
		s.notifier.ReminderUpdated(*r)
	}
	return r, nil
}

// BackfillReminders derives reminders missing from older memories.
func (s *Service) BackfillReminders(ctx context.Context) (reminder.BackfillReport, error) {
	return s.deriver.Backfill(ctx)
}

func isURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
