// Package apperr holds the sentinel errors shared across Recall packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")

	// ErrTranscription means the recording could not be turned into text.
	// Fatal to an ingestion: nothing is persisted.
	ErrTranscription = errors.New("transcription failed")
	// ErrPersistence means the memory write failed. Fatal to an ingestion.
	ErrPersistence = errors.New("persistence failed")
	// ErrReminderDerivation means the memory was saved but its reminder was not.
	ErrReminderDerivation = errors.New("reminder derivation failed")
	// ErrDuplicateReminder is returned by stores when a memory already owns a reminder.
	ErrDuplicateReminder = errors.New("reminder already exists for memory")
)
