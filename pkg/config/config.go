// Package config defines the engine's process-level configuration: the
// settings a deployment picks once at startup (which it reads from the
// environment) layered on top of the per-operation settings snapshot each
// core component re-reads on every call. The engine packages themselves
// never read environment variables directly; only cmd/ does, through this
// package's FromEnv and for its own console collaborator stand-ins.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lokutor-ai/dictation-engine/pkg/recorder"
	"github.com/lokutor-ai/dictation-engine/pkg/transcription"
)

// Config is the typed process configuration for a running engine instance.
type Config struct {
	// RecorderMode selects always-on vs on-demand stream lifecycle.
	RecorderMode recorder.Mode

	// VADThreshold is the base VAD's speech/noise decision boundary.
	VADThreshold float64
	// VADPrefillFrames, VADHangoverFrames, VADOnsetFrames parameterize the
	// SmoothedVAD state machine.
	VADPrefillFrames  int
	VADHangoverFrames int
	VADOnsetFrames    int

	// VADModelPath is the filesystem path to the ONNX VAD scoring model.
	VADModelPath string

	// DefaultModelID holds the model id read from DICTATION_MODEL_ID, which
	// FromEnv also copies into Settings.SelectedModel. No other code reads
	// this field.
	DefaultModelID string

	// Settings is the mutable, re-read-on-every-operation snapshot that
	// feeds transcription.Manager.
	Settings transcription.Settings
}

// DefaultConfig returns the engine's baked-in defaults, mirroring every
// constant fixed by the data model: 16 kHz output rate (implicit in
// pkg/audio), a conservative VAD threshold, 10 frames (300 ms) of prefill,
// 10 frames of hangover, and a 3-frame onset debounce.
func DefaultConfig() Config {
	return Config{
		RecorderMode:      recorder.OnDemand,
		VADThreshold:      0.5,
		VADPrefillFrames:  10,
		VADHangoverFrames: 10,
		VADOnsetFrames:    3,
		DefaultModelID:    "",
		Settings: transcription.Settings{
			SelectedLanguage:     "auto",
			TranslateToEnglish:   false,
			UnloadTimeout:        transcription.UnloadPolicy{After: 5 * time.Minute},
			CustomWords:          nil,
			WordCorrectThreshold: 0.35,
		},
	}
}

// FromEnv layers environment-variable overrides onto DefaultConfig. Only
// cmd/ calls this; every engine package below it takes a Config or
// Settings value via constructor injection, never os.Getenv directly.
func FromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("DICTATION_RECORDER_MODE"); v != "" {
		if strings.EqualFold(v, "always_on") {
			cfg.RecorderMode = recorder.AlwaysOn
		} else {
			cfg.RecorderMode = recorder.OnDemand
		}
	}
	if v := os.Getenv("DICTATION_VAD_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.VADThreshold = f
		}
	}
	if v := os.Getenv("DICTATION_VAD_MODEL_PATH"); v != "" {
		cfg.VADModelPath = v
	}
	if v := os.Getenv("DICTATION_MODEL_ID"); v != "" {
		cfg.DefaultModelID = v
		cfg.Settings.SelectedModel = v
	}
	if v := os.Getenv("DICTATION_LANGUAGE"); v != "" {
		cfg.Settings.SelectedLanguage = v
	}
	if v := os.Getenv("DICTATION_TRANSLATE_TO_ENGLISH"); v != "" {
		cfg.Settings.TranslateToEnglish = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("DICTATION_UNLOAD_TIMEOUT"); v != "" {
		cfg.Settings.UnloadTimeout = parseUnloadPolicy(v)
	}
	if v := os.Getenv("DICTATION_CUSTOM_WORDS"); v != "" {
		cfg.Settings.CustomWords = strings.Split(v, ",")
	}
	if v := os.Getenv("DICTATION_WORD_CORRECT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Settings.WordCorrectThreshold = f
		}
	}

	return cfg
}

// parseUnloadPolicy accepts "never", "immediately", or a duration string
// (e.g. "5m", "30s") parsed by time.ParseDuration.
func parseUnloadPolicy(v string) transcription.UnloadPolicy {
	switch strings.ToLower(v) {
	case "never":
		return transcription.UnloadPolicy{Never: true}
	case "immediately":
		return transcription.UnloadPolicy{Immediately: true}
	default:
		if d, err := time.ParseDuration(v); err == nil {
			return transcription.UnloadPolicy{After: d}
		}
		return transcription.UnloadPolicy{After: 5 * time.Minute}
	}
}
