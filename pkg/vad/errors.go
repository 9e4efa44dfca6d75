package vad

import "errors"

var (
	// ErrInvalidFrame is returned when a frame pushed to the VAD is not
	// exactly audio.FrameSamples samples long.
	ErrInvalidFrame = errors.New("vad: frame has wrong sample count")

	// ErrModelLoadFailed is returned when the neural scorer's inference
	// session cannot be created.
	ErrModelLoadFailed = errors.New("vad: failed to load scoring model")

	// ErrClosed is returned by operations on a VAD after Close has run.
	ErrClosed = errors.New("vad: session is closed")
)
