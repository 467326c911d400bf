package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recall/internal/memoryservice"
)

// RouterConfig controls auth and upload limits of the API router.
type RouterConfig struct {
	AuthEnabled    bool
	Token          string
	Owner          string
	MaxUploadBytes int64
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *memoryservice.Service, cfg RouterConfig) chi.Router {
	h := NewHandler(svc)
	ah := NewAudioHandler(svc, cfg.MaxUploadBytes)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token, cfg.Owner))

	// Recordings.
	r.Post("/audio", ah.Upload)
	r.Get("/audio/*", ah.Serve)

	// Ingestion.
	r.Post("/transcribe", h.Transcribe)
	r.Post("/ingest", h.Ingest)

	// Memories CRUD.
	r.Get("/memories", h.ListMemories)
	r.Post("/memories", h.CreateMemory)
	r.Get("/memories/{id}", h.GetMemory)
	r.Patch("/memories/{id}", h.UpdateMemory)
	r.Delete("/memories/{id}", h.DeleteMemory)

	// Search.
	r.Get("/search", h.Search)
	r.Post("/search", h.SearchPost)

	// Reminders.
	r.Get("/reminders", h.ListReminders)
	r.Post("/reminders", h.CreateReminder)
	r.Patch("/reminders/{id}", h.UpdateReminder)

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}
