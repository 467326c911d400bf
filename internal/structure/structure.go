// Package structure turns a transcript into a structured memory draft.
//
// Structuring runs in two explicit stages: an external language model is
// tried first, and any failure there (transport, quota, malformed output) is
// answered by a deterministic fallback draft. Callers never see an error.
package structure

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/recall/internal/models"
)

// Structurer extracts a draft from a transcript using an external capability.
// now anchors relative phrases such as "tomorrow"; its location is the
// user's local calendar.
type Structurer interface {
	Structure(ctx context.Context, transcript string, now time.Time) (models.Draft, error)
}

// fallbackSummaryLen is the number of characters kept from the transcript
// when the external capability cannot be used.
const fallbackSummaryLen = 100

// Fallback builds the minimal draft used when external structuring fails.
func Fallback(transcript string) models.Draft {
	runes := []rune(transcript)
	if len(runes) > fallbackSummaryLen {
		runes = runes[:fallbackSummaryLen]
	}
	return models.Draft{
		Summary:        string(runes) + "…",
		Category:       models.CategoryNote,
		ReminderNeeded: false,
	}
}

// Classifier pairs an external Structurer with the fallback synthesizer.
type Classifier struct {
	external Structurer
	log      *slog.Logger
}

// NewClassifier returns a Classifier. A nil external structurer means every
// transcript takes the fallback path.
func NewClassifier(external Structurer, log *slog.Logger) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{external: external, log: log}
}

// Classify returns a draft for transcript. degraded reports whether the
// fallback was used.
func (c *Classifier) Classify(ctx context.Context, transcript string, now time.Time) (draft models.Draft, degraded bool) {
	if c.external == nil {
		c.log.Warn("structuring: no provider configured, using fallback")
		return Fallback(transcript), true
	}
	draft, err := c.external.Structure(ctx, transcript, now)
	if err != nil {
		c.log.Warn("structuring: falling back", slog.String("error", err.Error()))
		return Fallback(transcript), true
	}
	return draft, false
}
