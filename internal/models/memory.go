// Package models defines the domain types for Recall.
package models

import (
	"slices"
	"time"
)

// Category classifies a memory.
type Category string

// Memory categories.
const (
	CategoryTask     Category = "task"
	CategoryReminder Category = "reminder"
	CategoryIdea     Category = "idea"
	CategoryNote     Category = "note"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryTask, CategoryReminder, CategoryIdea, CategoryNote}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Draft is the best-effort structured extraction of a transcript.
// It is not validated against the memory invariants yet.
type Draft struct {
	Summary        string     `json:"summary"`
	Category       Category   `json:"category"`
	Date           *time.Time `json:"date,omitempty"`
	ReminderNeeded bool       `json:"reminderNeeded"`
}

// Memory is a persisted voice note.
type Memory struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"ownerId"`
	FullText       string     `json:"fullText"`
	Summary        string     `json:"summary"`
	Category       Category   `json:"category"`
	Date           *time.Time `json:"date,omitempty"`
	ReminderNeeded bool       `json:"reminderNeeded"`
	AudioRef       string     `json:"audioRef,omitempty"`
	IsFavorite     bool       `json:"isFavorite"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// MemoryUpdate is a partial edit of a memory. Nil fields are left untouched.
type MemoryUpdate struct {
	Summary        *string    `json:"summary,omitempty"`
	Category       *Category  `json:"category,omitempty"`
	Date           *time.Time `json:"date,omitempty"`
	ClearDate      bool       `json:"clearDate,omitempty"`
	ReminderNeeded *bool      `json:"reminderNeeded,omitempty"`
	IsFavorite     *bool      `json:"isFavorite,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u MemoryUpdate) Empty() bool {
	return u.Summary == nil && u.Category == nil && u.Date == nil && !u.ClearDate &&
		u.ReminderNeeded == nil && u.IsFavorite == nil
}

// SearchParams filters a memory search.
type SearchParams struct {
	OwnerID  string
	Query    string
	Category Category
	Limit    int
}
