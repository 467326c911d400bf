// Package transcribe converts stored recordings into text.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/audio"
)

// Transcriber turns the recording at audioRef into non-empty text.
// Every failure wraps apperr.ErrTranscription.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string) (string, error)
}

// Opener is the slice of audio.Store a transcriber needs.
type Opener interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Config configures a Whisper-compatible transcription endpoint.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	Prompt   string
	Timeout  time.Duration
}

// Whisper transcribes through the OpenAI audio API, which Groq also serves.
type Whisper struct {
	client openai.Client
	audio  Opener
	cfg    Config
}

// NewWhisper returns a Whisper transcriber reading recordings from store.
func NewWhisper(cfg Config, store Opener) *Whisper {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	return &Whisper{client: openai.NewClient(opts...), audio: store, cfg: cfg}
}

// Transcribe implements Transcriber.
func (w *Whisper) Transcribe(ctx context.Context, audioRef string) (string, error) {
	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}

	rc, err := w.audio.Open(ctx, audioRef)
	if err != nil {
		if errors.Is(err, audio.ErrNotFound) {
			return "", fmt.Errorf("%w: recording %s not found", apperr.ErrTranscription, audioRef)
		}
		return "", fmt.Errorf("%w: open recording: %v", apperr.ErrTranscription, err)
	}
	defer rc.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(rc, path.Base(audioRef), audio.ContentType(audioRef)),
		Model: openai.AudioModel(w.cfg.Model),
	}
	if w.cfg.Language != "" {
		params.Language = openai.String(w.cfg.Language)
	}
	if w.cfg.Prompt != "" {
		params.Prompt = openai.String(w.cfg.Prompt)
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrTranscription, err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty transcript", apperr.ErrTranscription)
	}
	return text, nil
}
