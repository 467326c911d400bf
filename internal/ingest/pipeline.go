// Package ingest runs the voice memory pipeline: transcribe, structure,
// normalize, persist, then derive a reminder.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/memory"
	"github.com/starford/recall/internal/models"
)

// Warnings attached to a degraded success.
const (
	WarningStructuringFallback = "structuring_fallback"
	WarningReminderNotCreated  = "reminder_not_created"
)

// Transcriber converts a stored recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string) (string, error)
}

// Classifier produces a draft for a transcript and never fails.
type Classifier interface {
	Classify(ctx context.Context, transcript string, now time.Time) (models.Draft, bool)
}

// MemoryWriter persists new memories, assigning ID and CreatedAt.
type MemoryWriter interface {
	InsertMemory(ctx context.Context, m *models.Memory) error
}

// ReminderDeriver creates the reminder a persisted memory calls for.
type ReminderDeriver interface {
	Ensure(ctx context.Context, m models.Memory) (*models.Reminder, bool, error)
}

// Notifier is told about records the pipeline creates.
type Notifier interface {
	MemoryCreated(m models.Memory)
	ReminderCreated(r models.Reminder)
}

// Result is the outcome of a successful ingestion.
type Result struct {
	Memory   models.Memory    `json:"memory"`
	Reminder *models.Reminder `json:"reminder,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

// Degraded reports whether any non-fatal step was skipped.
func (r *Result) Degraded() bool { return len(r.Warnings) > 0 }

// Pipeline wires the ingestion stages together. It holds no per-run state
// and is safe for concurrent use.
type Pipeline struct {
	transcriber Transcriber
	classifier  Classifier
	memories    MemoryWriter
	deriver     ReminderDeriver
	notifier    Notifier
	observe     func(runID string, s Stage)
	log         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNotifier reports created records to n.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithStageObserver is called on every stage transition.
func WithStageObserver(fn func(runID string, s Stage)) Option {
	return func(p *Pipeline) { p.observe = fn }
}

// New returns a Pipeline. transcriber may be nil when only text ingestion
// is used.
func New(t Transcriber, c Classifier, m MemoryWriter, d ReminderDeriver, opts ...Option) *Pipeline {
	p := &Pipeline{
		transcriber: t,
		classifier:  c,
		memories:    m,
		deriver:     d,
		log:         slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Ingest transcribes the recording at audioRef and stores the resulting
// memory for ownerID. Transcription and persistence failures are fatal and
// wrap apperr.ErrTranscription or apperr.ErrPersistence in a *StageError;
// nothing is stored when they occur.
func (p *Pipeline) Ingest(ctx context.Context, audioRef, ownerID string, now time.Time) (*Result, error) {
	run := newRun(p, audioRef)
	run.enter(StageTranscribing)
	if p.transcriber == nil {
		return nil, run.fail(StageTranscribing, fmt.Errorf("%w: no transcription provider configured", apperr.ErrTranscription))
	}
	text, err := p.transcriber.Transcribe(ctx, audioRef)
	if err != nil {
		if !errors.Is(err, apperr.ErrTranscription) {
			err = fmt.Errorf("%w: %v", apperr.ErrTranscription, err)
		}
		return nil, run.fail(StageTranscribing, err)
	}
	return p.fromText(ctx, run, text, audioRef, ownerID, now)
}

// IngestText runs the pipeline from structuring onward for text the caller
// already has, such as a client-side transcript.
func (p *Pipeline) IngestText(ctx context.Context, text, audioRef, ownerID string, now time.Time) (*Result, error) {
	run := newRun(p, audioRef)
	if text == "" {
		return nil, run.fail(StageStructuring, fmt.Errorf("%w: text is required", apperr.ErrInvalidInput))
	}
	return p.fromText(ctx, run, text, audioRef, ownerID, now)
}

func (p *Pipeline) fromText(ctx context.Context, run *run, text, audioRef, ownerID string, now time.Time) (*Result, error) {
	res := &Result{}

	run.enter(StageStructuring)
	draft, degraded := p.classifier.Classify(ctx, text, now)
	if degraded {
		res.Warnings = append(res.Warnings, WarningStructuringFallback)
	}

	run.enter(StageNormalizing)
	m := memory.Normalize(draft, text, audioRef, ownerID)

	run.enter(StagePersisting)
	if err := p.memories.InsertMemory(ctx, &m); err != nil {
		return nil, run.fail(StagePersisting, fmt.Errorf("%w: %v", apperr.ErrPersistence, err))
	}
	res.Memory = m
	if p.notifier != nil {
		p.notifier.MemoryCreated(m)
	}

	run.enter(StageDerivingReminder)
	r, created, err := p.deriver.Ensure(ctx, m)
	switch {
	case err != nil:
		res.Warnings = append(res.Warnings, WarningReminderNotCreated)
		run.log.Warn("ingest: reminder not created",
			slog.String("memory_id", m.ID),
			slog.String("error", err.Error()),
		)
	case r != nil:
		res.Reminder = r
		if created && p.notifier != nil {
			p.notifier.ReminderCreated(*r)
		}
	}

	run.enter(StageSucceeded)
	run.log.Info("ingest: memory stored",
		slog.String("memory_id", m.ID),
		slog.String("category", string(m.Category)),
		slog.Bool("reminder", res.Reminder != nil),
		slog.Bool("degraded", res.Degraded()),
	)
	return res, nil
}

// run tracks one invocation for logging and stage observation.
type run struct {
	id      string
	p       *Pipeline
	log     *slog.Logger
	started time.Time
}

func newRun(p *Pipeline, audioRef string) *run {
	id := ulid.Make().String()
	return &run{
		id:      id,
		p:       p,
		log:     p.log.With(slog.String("run_id", id), slog.String("audio_ref", audioRef)),
		started: time.Now(),
	}
}

func (r *run) enter(s Stage) {
	r.log.Debug("ingest: stage", slog.String("stage", s.String()))
	if r.p.observe != nil {
		r.p.observe(r.id, s)
	}
}

func (r *run) fail(at Stage, err error) error {
	r.enter(StageFailed)
	r.log.Warn("ingest: failed",
		slog.String("stage", at.String()),
		slog.Duration("elapsed", time.Since(r.started)),
		slog.String("error", err.Error()),
	)
	return &StageError{Stage: at, Err: err}
}
