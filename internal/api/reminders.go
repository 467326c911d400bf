package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recall/internal/memoryservice"
)

// ListReminders handles GET /api/reminders.
//
//	@Summary		List reminders grouped into Today, This Week and Later
//	@Description	view=flat returns an ungrouped list; completed=true includes completed reminders there.
//	@Tags			reminders
//	@Produce		json
//	@Param			view		query		string	false	"Response shape"	Enums(grouped, flat)
//	@Param			completed	query		bool	false	"Include completed (flat view)"
//	@Success		200			{object}	ReminderGroupsResponse
//	@Security		BearerAuth
//	@Router			/reminders [get]
func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := OwnerFrom(r.Context())

	if q.Get("view") == "flat" {
		items, err := h.svc.ListReminders(r.Context(), owner, q.Get("completed") == "true")
		if err != nil {
			writeError(w, "list reminders", err)
			return
		}
		writeJSON(w, http.StatusOK, ReminderListResponse{Reminders: items})
		return
	}

	groups, err := h.svc.GroupedReminders(r.Context(), owner)
	if err != nil {
		writeError(w, "group reminders", err)
		return
	}
	writeJSON(w, http.StatusOK, ReminderGroupsResponse{Groups: groups})
}

// CreateReminder handles POST /api/reminders.
//
//	@Summary		Create a reminder
//	@Tags			reminders
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateReminderRequest	true	"Reminder"
//	@Success		201		{object}	models.Reminder
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reminders [post]
func (h *Handler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	var req CreateReminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error(), Code: "invalid_input"})
		return
	}
	due, err := parseDate(req.DueDate, h.svc.Now().Location())
	if err != nil {
		writeError(w, "create reminder", err)
		return
	}
	rem, err := h.svc.CreateReminder(r.Context(), OwnerFrom(r.Context()), memoryservice.NewReminder{
		MemoryID:    req.MemoryID,
		Description: req.Description,
		DueDate:     due,
	})
	if err != nil {
		writeError(w, "create reminder", err)
		return
	}
	writeJSON(w, http.StatusCreated, rem)
}

// UpdateReminder handles PATCH /api/reminders/{id}.
//
//	@Summary		Mark a reminder completed or open
//	@Tags			reminders
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Reminder ID"
//	@Param			body	body		UpdateReminderRequest	true	"Completion"
//	@Success		200		{object}	models.Reminder
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reminders/{id} [patch]
func (h *Handler) UpdateReminder(w http.ResponseWriter, r *http.Request) {
	var req UpdateReminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsCompleted == nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "isCompleted is required", Code: "invalid_input"})
		return
	}
	rem, err := h.svc.SetReminderCompleted(r.Context(), OwnerFrom(r.Context()), chi.URLParam(r, "id"), *req.IsCompleted)
	if err != nil {
		writeError(w, "update reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}
