package recorder

import "errors"

var (
	// ErrAlreadyOpen is returned by Open when a stream is already open.
	ErrAlreadyOpen = errors.New("recorder: stream already open")

	// ErrNotOpen is returned by Start/Stop when no stream has been opened.
	ErrNotOpen = errors.New("recorder: stream not open")

	// ErrAlreadyRecording is returned by Start when an utterance is already
	// in flight. There is no preemption: a Start while Recording is
	// rejected.
	ErrAlreadyRecording = errors.New("recorder: already recording")

	// ErrDeviceOpenFailed wraps a malgo device or context initialisation
	// failure.
	ErrDeviceOpenFailed = errors.New("recorder: failed to open capture device")

	// ErrClosed is returned by any call made after Close.
	ErrClosed = errors.New("recorder: recorder is closed")
)
