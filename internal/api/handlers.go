package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recall/internal/ingest"
	"github.com/starford/recall/internal/memoryservice"
	"github.com/starford/recall/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *memoryservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *memoryservice.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) memoryResponse(m models.Memory) MemoryResponse {
	return MemoryResponse{Memory: m, AudioURL: h.svc.AudioURL(m.AudioRef)}
}

func (h *Handler) memoryList(items []models.Memory) MemoryListResponse {
	out := MemoryListResponse{Memories: make([]MemoryResponse, 0, len(items))}
	for _, m := range items {
		out.Memories = append(out.Memories, h.memoryResponse(m))
	}
	return out
}

func (h *Handler) created(w http.ResponseWriter, res *ingest.Result) {
	writeJSON(w, http.StatusCreated, createdResponse(res, h.svc.AudioURL))
}

// ListMemories handles GET /api/memories.
//
//	@Summary		List memories, newest first
//	@Tags			memories
//	@Produce		json
//	@Success		200	{object}	MemoryListResponse
//	@Security		BearerAuth
//	@Router			/memories [get]
func (h *Handler) ListMemories(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListMemories(r.Context(), OwnerFrom(r.Context()))
	if err != nil {
		writeError(w, "list memories", err)
		return
	}
	writeJSON(w, http.StatusOK, h.memoryList(items))
}

// CreateMemory handles POST /api/memories.
//
//	@Summary		Create a memory from transcribed text
//	@Tags			memories
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateMemoryRequest	true	"Transcript"
//	@Success		201		{object}	MemoryResponse
//	@Failure		400		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/memories [post]
func (h *Handler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var req CreateMemoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error(), Code: "invalid_input"})
		return
	}
	res, err := h.svc.CreateFromText(r.Context(), OwnerFrom(r.Context()), req.Text, req.AudioURL)
	if err != nil {
		writeError(w, "create memory", err)
		return
	}
	h.created(w, res)
}

// GetMemory handles GET /api/memories/{id}.
//
//	@Summary		Get a single memory
//	@Tags			memories
//	@Produce		json
//	@Param			id	path		string	true	"Memory ID"
//	@Success		200	{object}	MemoryResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/memories/{id} [get]
func (h *Handler) GetMemory(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetMemory(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get memory", err)
		return
	}
	writeJSON(w, http.StatusOK, h.memoryResponse(*m))
}

// UpdateMemory handles PATCH /api/memories/{id}.
//
//	@Summary		Edit a memory
//	@Tags			memories
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Memory ID"
//	@Param			body	body		UpdateMemoryRequest	true	"Fields to change"
//	@Success		200		{object}	MemoryResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/memories/{id} [patch]
func (h *Handler) UpdateMemory(w http.ResponseWriter, r *http.Request) {
	var req UpdateMemoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := req.toUpdate(h.svc.Now().Location())
	if err != nil {
		writeError(w, "update memory", err)
		return
	}
	m, err := h.svc.UpdateMemory(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "id"), u)
	if err != nil {
		writeError(w, "update memory", err)
		return
	}
	writeJSON(w, http.StatusOK, h.memoryResponse(*m))
}

// DeleteMemory handles DELETE /api/memories/{id}.
//
//	@Summary		Delete a memory and its reminder
//	@Tags			memories
//	@Param			id	path	string	true	"Memory ID"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/memories/{id} [delete]
func (h *Handler) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteMemory(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete memory", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Search memories by text and category
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	false	"Text to look for"
//	@Param			category	query		string	false	"Category filter"	Enums(task, reminder, idea, note)
//	@Param			limit		query		int		false	"Max results"
//	@Success		200			{object}	MemoryListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	h.search(w, r, SearchRequest{Query: q.Get("q"), Category: q.Get("category"), Limit: limit})
}

// SearchPost handles POST /api/search.
//
//	@Summary		Search memories with a JSON body
//	@Tags			search
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SearchRequest	true	"Search filters"
//	@Success		200		{object}	MemoryListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [post]
func (h *Handler) SearchPost(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.search(w, r, req)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, req SearchRequest) {
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error(), Code: "invalid_input"})
		return
	}
	items, err := h.svc.Search(r.Context(), models.SearchParams{
		OwnerID:  OwnerFrom(r.Context()),
		Query:    strings.TrimSpace(req.Query),
		Category: models.Category(req.Category),
		Limit:    req.Limit,
	})
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, h.memoryList(items))
}

// Transcribe handles POST /api/transcribe.
//
//	@Summary		Transcribe a stored recording without saving a memory
//	@Tags			ingest
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AudioRefRequest	true	"Recording"
//	@Success		200		{object}	TranscribeResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/transcribe [post]
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req AudioRefRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error(), Code: "invalid_input"})
		return
	}
	text, err := h.svc.Transcribe(r.Context(), req.AudioRef)
	if err != nil {
		writeError(w, "transcribe", err)
		return
	}
	writeJSON(w, http.StatusOK, TranscribeResponse{Text: text})
}

// Ingest handles POST /api/ingest.
//
//	@Summary		Transcribe, classify and save a stored recording
//	@Tags			ingest
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AudioRefRequest	true	"Recording"
//	@Success		201		{object}	MemoryResponse
//	@Failure		502		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ingest [post]
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req AudioRefRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error(), Code: "invalid_input"})
		return
	}
	res, err := h.svc.Ingest(r.Context(), OwnerFrom(r.Context()), req.AudioRef)
	if err != nil {
		writeError(w, "ingest", err)
		return
	}
	h.created(w, res)
}
