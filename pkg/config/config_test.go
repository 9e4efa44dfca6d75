package config

import (
	"testing"
	"time"

	"github.com/lokutor-ai/dictation-engine/pkg/recorder"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RecorderMode != recorder.OnDemand {
		t.Errorf("expected OnDemand mode by default, got %v", cfg.RecorderMode)
	}
	if cfg.VADOnsetFrames != 3 {
		t.Errorf("expected onset frames 3, got %d", cfg.VADOnsetFrames)
	}
	if cfg.Settings.SelectedLanguage != "auto" {
		t.Errorf("expected auto language, got %q", cfg.Settings.SelectedLanguage)
	}
}

func TestParseUnloadPolicy(t *testing.T) {
	if p := parseUnloadPolicy("never"); !p.Never {
		t.Errorf("expected Never policy, got %+v", p)
	}
	if p := parseUnloadPolicy("immediately"); !p.Immediately {
		t.Errorf("expected Immediately policy, got %+v", p)
	}
	if p := parseUnloadPolicy("45s"); p.After != 45*time.Second {
		t.Errorf("expected 45s fixed interval, got %+v", p)
	}
	if p := parseUnloadPolicy("garbage"); p.After != 5*time.Minute {
		t.Errorf("expected fallback to 5m on unparseable duration, got %+v", p)
	}
}
