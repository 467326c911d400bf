package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/recall/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Code  string `json:"code,omitempty" example:"not_found"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// Messages shown to users for fatal ingestion failures.
const (
	msgTranscriptionFailed = "could not process recording"
	msgNotSaved            = "memory was not saved, try again"
	msgReminderMissing     = "saved, but reminder may need to be added manually"
)

// writeError maps service errors onto HTTP responses. op names the failing
// operation in logs.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error(), Code: "invalid_input"})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not found", Code: "not_found"})
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errResponse{Error: "conflict", Code: "conflict"})
	case errors.Is(err, apperr.ErrTranscription):
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errResponse{Error: msgTranscriptionFailed, Code: "transcription_failed"})
	case errors.Is(err, apperr.ErrPersistence):
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: msgNotSaved, Code: "not_saved"})
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "internal error", Code: "internal"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid JSON body", Code: "invalid_input"})
		return false
	}
	return true
}
