// Package memory turns structured drafts into persist-ready memories and
// holds the invariants every write path shares.
package memory

import (
	"strings"

	"github.com/starford/recall/internal/models"
)

// Normalize builds the pre-persistence memory for a draft. It never fails;
// ID and CreatedAt are left for the store to assign.
func Normalize(draft models.Draft, fullText, audioRef, ownerID string) models.Memory {
	category := draft.Category
	if !category.Valid() {
		category = models.CategoryNote
	}
	m := models.Memory{
		OwnerID:        ownerID,
		FullText:       fullText,
		Summary:        draft.Summary,
		Category:       category,
		Date:           draft.Date,
		ReminderNeeded: draft.ReminderNeeded,
		AudioRef:       NormalizeAudioRef(audioRef),
		IsFavorite:     false,
	}
	Couple(&m)
	return m
}

// Couple enforces that a dated memory always carries a reminder obligation.
func Couple(m *models.Memory) {
	if m.Date != nil {
		m.ReminderNeeded = true
	}
}

// NormalizeAudioRef rewrites backslash separators to forward slashes.
// Absolute URLs pass through unchanged apart from that.
func NormalizeAudioRef(ref string) string {
	return strings.ReplaceAll(strings.TrimSpace(ref), `\`, "/")
}

// Apply merges a partial edit into m and re-applies the coupling rule.
func Apply(m *models.Memory, u models.MemoryUpdate) {
	if u.Summary != nil {
		m.Summary = *u.Summary
	}
	if u.Category != nil {
		m.Category = *u.Category
	}
	if u.ClearDate {
		m.Date = nil
	}
	if u.Date != nil {
		d := *u.Date
		m.Date = &d
	}
	if u.ReminderNeeded != nil {
		m.ReminderNeeded = *u.ReminderNeeded
	}
	if u.IsFavorite != nil {
		m.IsFavorite = *u.IsFavorite
	}
	Couple(m)
}
