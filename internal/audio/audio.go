// Package audio stores uploaded recordings and hands them back to the
// transcription stage.
package audio

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when a reference does not resolve to a stored object.
var ErrNotFound = errors.New("audio: object not found")

// Object describes a stored recording.
type Object struct {
	Ref         string `json:"ref"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum"`
	ContentType string `json:"contentType"`
}

// Store is the interface for recording storage backends.
// Refs are slash-separated keys relative to the store root.
type Store interface {
	// Put writes the stream under ref.
	Put(ctx context.Context, ref string, r io.Reader, contentType string) (Object, error)
	// Open returns a reader for the recording at ref.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	// Delete removes the recording at ref.
	Delete(ctx context.Context, ref string) error
	// URL returns where a client can fetch the recording.
	URL(ref string) string
}

const uploadPrefix = "uploads/"

// NewRef returns a fresh, time-sortable upload key keeping the extension of
// the original file name.
func NewRef(filename, contentType string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = extFor(contentType)
	}
	return uploadPrefix + ulid.Make().String() + ext
}

// ContentType guesses the MIME type of a ref from its extension.
func ContentType(ref string) string {
	switch strings.ToLower(path.Ext(ref)) {
	case ".webm":
		return "audio/webm"
	case ".m4a":
		return "audio/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	}
	if ct := mime.TypeByExtension(path.Ext(ref)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func extFor(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	switch strings.TrimSpace(base) {
	case "audio/webm":
		return ".webm"
	case "audio/mp4", "audio/x-m4a":
		return ".m4a"
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	}
	return ".bin"
}

// IsAudioFile reports whether name has an extension the pipeline accepts.
func IsAudioFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".webm", ".m4a", ".mp3", ".wav", ".ogg", ".mp4", ".mpeg", ".mpga", ".flac":
		return true
	}
	return false
}
