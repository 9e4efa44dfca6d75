package pipeline

import "errors"

var (
	// ErrAlreadyActive is returned by Start when a recording or
	// transcription is already in progress.
	ErrAlreadyActive = errors.New("pipeline: already recording or transcribing")

	// ErrNotActive is returned by Stop when no recording is in progress
	// (idle or already transcribing), and by Cancel when the orchestrator
	// is idle.
	ErrNotActive = errors.New("pipeline: not recording")
)
