package models

import "time"

// Reminder is a due-dated follow-up, optionally derived from a memory.
type Reminder struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	MemoryID    *string    `json:"memoryId,omitempty"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"dueDate"`
	IsCompleted bool       `json:"isCompleted"`
	CreatedAt   time.Time  `json:"createdAt"`
	Memory      *MemoryRef `json:"memory,omitempty"`
}

// MemoryRef carries the parent memory fields joined into reminder listings.
type MemoryRef struct {
	Summary  string   `json:"summary"`
	Category Category `json:"category"`
}

// ReminderGroup is one display bucket of open reminders.
type ReminderGroup struct {
	Label string     `json:"label"`
	Items []Reminder `json:"items"`
}
