package ingest

import "fmt"

// Stage is a step of the ingestion state machine.
type Stage int

const (
	StageIdle Stage = iota
	StageTranscribing
	StageStructuring
	StageNormalizing
	StagePersisting
	StageDerivingReminder
	StageSucceeded
	StageFailed
)

var stageNames = [...]string{
	StageIdle:             "idle",
	StageTranscribing:     "transcribing",
	StageStructuring:      "structuring",
	StageNormalizing:      "normalizing",
	StagePersisting:       "persisting",
	StageDerivingReminder: "deriving_reminder",
	StageSucceeded:        "succeeded",
	StageFailed:           "failed",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// StageError records the stage an ingestion failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingest: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
