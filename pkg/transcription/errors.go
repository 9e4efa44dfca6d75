package transcription

import "errors"

var (
	// ErrModelUnavailable is returned when a requested model descriptor is
	// missing or not fully materialised on disk.
	ErrModelUnavailable = errors.New("transcription: model unavailable")

	// ErrModelLoadFailed is returned when engine.Load fails.
	ErrModelLoadFailed = errors.New("transcription: model load failed")

	// ErrModelNotLoaded is returned by Transcribe when no engine session is
	// present.
	ErrModelNotLoaded = errors.New("transcription: no model loaded")

	// ErrDecodeError wraps an engine-reported decode failure. The engine is
	// kept loaded when this occurs.
	ErrDecodeError = errors.New("transcription: decode failed")

	// ErrUnknownEngineType is returned when a model descriptor names an
	// engine_type outside the closed {Whisper, Parakeet} set.
	ErrUnknownEngineType = errors.New("transcription: unknown engine type")
)
