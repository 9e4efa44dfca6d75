package audio

import "errors"

var (
	// ErrNoInputDevice is returned when device enumeration yields no capture
	// devices.
	ErrNoInputDevice = errors.New("audio: no input device available")

	// ErrUnsupportedSampleFormat is returned when a device advertises only
	// sample formats outside the set this package understands.
	ErrUnsupportedSampleFormat = errors.New("audio: device has no supported sample format")

	// ErrInvalidRate is returned when a resampler is constructed with a
	// non-positive sample rate.
	ErrInvalidRate = errors.New("audio: sample rate must be positive")
)
