package api

import (
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recall/internal/audio"
	"github.com/starford/recall/internal/memoryservice"
)

// AudioHandler accepts and serves recordings.
type AudioHandler struct {
	svc      *memoryservice.Service
	maxBytes int64
}

// NewAudioHandler creates a handler limiting uploads to maxBytes.
func NewAudioHandler(svc *memoryservice.Service, maxBytes int64) *AudioHandler {
	if maxBytes <= 0 {
		maxBytes = 25 << 20
	}
	return &AudioHandler{svc: svc, maxBytes: maxBytes}
}

// Upload handles POST /api/audio (multipart/form-data, field "audio").
//
//	@Summary		Upload a recording
//	@Tags			audio
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			audio	formData	file	true	"Recording"
//	@Success		201		{object}	UploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/audio [post]
func (h *AudioHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'audio' field in multipart form"))
		return
	}
	defer file.Close()

	ct := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	if !strings.HasPrefix(ct, "audio/") && !audio.IsAudioFile(header.Filename) {
		writeJSON(w, http.StatusBadRequest, errorBody("unsupported audio format"))
		return
	}

	obj, err := h.svc.UploadAudio(r.Context(), header.Filename, ct, file)
	if err != nil {
		writeError(w, "upload audio", err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse(obj))
}

// Serve handles GET /api/audio/*.
func (h *AudioHandler) Serve(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if ref == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("audio ref is required"))
		return
	}
	rc, err := h.svc.OpenAudio(r.Context(), ref)
	if err != nil {
		writeError(w, "open audio", err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", audio.ContentType(ref))
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, ref, time.Time{}, rs)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}
