package structure

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/recall/internal/models"
)

// ErrMalformed is returned when a model response cannot be turned into a draft.
var ErrMalformed = errors.New("structure: malformed model response")

// defaultHour is the time of day given to dates that carry none.
const defaultHour = 9

// wireDraft accepts both field spellings seen from prompt variants.
type wireDraft struct {
	Summary             string  `json:"summary"`
	Category            string  `json:"category"`
	Date                *string `json:"date"`
	ExtractedDate       *string `json:"extractedDate"`
	ReminderNeeded      *bool   `json:"reminderNeeded"`
	ReminderNeededSnake *bool   `json:"reminder_needed"`
}

// ParseDraft decodes a model response. Summary and category are required;
// an unknown category becomes "note" and an unreadable date is dropped.
func ParseDraft(raw string, now time.Time) (models.Draft, error) {
	var w wireDraft
	if err := unmarshalModelJSON(raw, &w); err != nil {
		return models.Draft{}, err
	}

	summary := strings.TrimSpace(w.Summary)
	if summary == "" {
		return models.Draft{}, fmt.Errorf("%w: missing summary", ErrMalformed)
	}
	rawCategory := strings.ToLower(strings.TrimSpace(w.Category))
	if rawCategory == "" {
		return models.Draft{}, fmt.Errorf("%w: missing category", ErrMalformed)
	}
	category := models.Category(rawCategory)
	if !category.Valid() {
		category = models.CategoryNote
	}

	d := models.Draft{Summary: summary, Category: category}
	switch {
	case w.ReminderNeeded != nil:
		d.ReminderNeeded = *w.ReminderNeeded
	case w.ReminderNeededSnake != nil:
		d.ReminderNeeded = *w.ReminderNeededSnake
	}

	dateStr := w.Date
	if dateStr == nil {
		dateStr = w.ExtractedDate
	}
	if dateStr != nil {
		if t, ok := ParseDate(*dateStr, now.Location()); ok {
			d.Date = &t
		}
	}
	return d, nil
}

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDate reads an ISO-8601 date or date-time. Values without an offset
// are taken in loc; date-only values resolve to 09:00.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), true
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), defaultHour, 0, 0, 0, loc), true
	}
	return time.Time{}, false
}

// unmarshalModelJSON strips markdown fences and, failing a direct decode,
// retries on the outermost braces.
func unmarshalModelJSON(raw string, out any) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: not a JSON object", ErrMalformed)
}
