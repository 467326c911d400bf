package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/audio"
	"github.com/starford/recall/internal/ingest"
	"github.com/starford/recall/internal/models"
	"github.com/starford/recall/internal/structure"
)

var categoryRule = validation.In(
	string(models.CategoryTask), string(models.CategoryReminder),
	string(models.CategoryIdea), string(models.CategoryNote),
)

// CreateMemoryRequest is the request body for creating a memory from text.
type CreateMemoryRequest struct {
	Text     string `json:"text" example:"Remind me to call Mom at 5pm tomorrow" validate:"required"`
	AudioURL string `json:"audioUrl,omitempty" example:"uploads/01J9Z6.webm"`
}

// Validate implements validation.Validatable.
func (r CreateMemoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required),
	)
}

// AudioRefRequest is the request body for transcription and ingestion.
type AudioRefRequest struct {
	AudioRef string `json:"audioRef" example:"uploads/01J9Z6.webm" validate:"required"`
}

// Validate implements validation.Validatable.
func (r AudioRefRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AudioRef, validation.Required),
	)
}

// UpdateMemoryRequest is a partial memory edit. A null date clears it.
type UpdateMemoryRequest struct {
	Summary        *string         `json:"summary,omitempty"`
	Category       *string         `json:"category,omitempty" example:"reminder"`
	Date           json.RawMessage `json:"date,omitempty" swaggertype:"string" example:"2025-11-26T17:00:00"`
	ReminderNeeded *bool           `json:"reminderNeeded,omitempty"`
	IsFavorite     *bool           `json:"isFavorite,omitempty"`
}

// toUpdate converts the request, resolving dates in loc.
func (r UpdateMemoryRequest) toUpdate(loc *time.Location) (models.MemoryUpdate, error) {
	var u models.MemoryUpdate
	if r.Category != nil {
		if err := validation.Validate(*r.Category, categoryRule); err != nil {
			return u, fmt.Errorf("%w: category: %v", apperr.ErrInvalidInput, err)
		}
		c := models.Category(*r.Category)
		u.Category = &c
	}
	if r.Summary != nil {
		s := strings.TrimSpace(*r.Summary)
		u.Summary = &s
	}
	if len(r.Date) > 0 {
		if string(r.Date) == "null" {
			u.ClearDate = true
		} else {
			t, err := parseDateJSON(r.Date, loc)
			if err != nil {
				return u, err
			}
			u.Date = &t
		}
	}
	u.ReminderNeeded = r.ReminderNeeded
	u.IsFavorite = r.IsFavorite
	return u, nil
}

// SearchRequest is the POST body for memory search.
type SearchRequest struct {
	Query    string `json:"query,omitempty" example:"mom"`
	Category string `json:"category,omitempty" example:"reminder"`
	Limit    int    `json:"limit,omitempty" example:"20"`
}

// Validate implements validation.Validatable.
func (r SearchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Category, categoryRule),
		validation.Field(&r.Limit, validation.Min(0), validation.Max(200)),
	)
}

// CreateReminderRequest is the request body for a standalone reminder.
type CreateReminderRequest struct {
	MemoryID    string `json:"memoryId,omitempty"`
	Description string `json:"description" example:"Water the plants" validate:"required"`
	DueDate     string `json:"dueDate" example:"2025-11-26T17:00:00" validate:"required"`
}

// Validate implements validation.Validatable.
func (r CreateReminderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Description, validation.Required),
		validation.Field(&r.DueDate, validation.Required),
	)
}

// UpdateReminderRequest toggles completion.
type UpdateReminderRequest struct {
	IsCompleted *bool `json:"isCompleted" validate:"required"`
}

// MemoryResponse is a memory with its playback URL and, after creation,
// the derived reminder and any degradation warnings.
type MemoryResponse struct {
	models.Memory
	AudioURL string           `json:"audioUrl,omitempty"`
	Reminder *models.Reminder `json:"reminder,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
	Notice   string           `json:"notice,omitempty"`
}

// MemoryListResponse wraps memory listings.
type MemoryListResponse struct {
	Memories []MemoryResponse `json:"memories" validate:"required"`
}

// UploadResponse is returned after a successful audio upload.
type UploadResponse struct {
	AudioRef    string `json:"audioRef" example:"uploads/01J9Z6.webm" validate:"required"`
	URL         string `json:"url" example:"/api/audio/uploads/01J9Z6.webm"`
	Size        int64  `json:"size" example:"12345"`
	Checksum    string `json:"checksum"`
	ContentType string `json:"contentType" example:"audio/webm"`
}

func uploadResponse(o audio.Object) UploadResponse {
	return UploadResponse{AudioRef: o.Ref, URL: o.URL, Size: o.Size, Checksum: o.Checksum, ContentType: o.ContentType}
}

// TranscribeResponse carries a standalone transcript.
type TranscribeResponse struct {
	Text string `json:"text" validate:"required"`
}

// ReminderGroupsResponse wraps the grouped reminder view.
type ReminderGroupsResponse struct {
	Groups []models.ReminderGroup `json:"groups" validate:"required"`
}

// ReminderListResponse wraps the flat reminder view.
type ReminderListResponse struct {
	Reminders []models.Reminder `json:"reminders" validate:"required"`
}

func createdResponse(res *ingest.Result, audioURL func(string) string) MemoryResponse {
	out := MemoryResponse{
		Memory:   res.Memory,
		AudioURL: audioURL(res.Memory.AudioRef),
		Reminder: res.Reminder,
		Warnings: res.Warnings,
	}
	for _, w := range res.Warnings {
		if w == ingest.WarningReminderNotCreated {
			out.Notice = msgReminderMissing
		}
	}
	return out
}

func parseDateJSON(raw json.RawMessage, loc *time.Location) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be a string", apperr.ErrInvalidInput)
	}
	return parseDate(s, loc)
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	t, ok := structure.ParseDate(s, loc)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", apperr.ErrInvalidInput, s)
	}
	return t, nil
}
