package audio

import (
	"testing"

	"github.com/gen2brain/malgo"
)

func TestPickConfigPrefersF32AtTargetRate(t *testing.T) {
	var info malgo.DeviceInfo
	info.FormatCount = 3
	info.Formats = make([]malgo.DataFormat, 3)
	info.Formats[0] = malgo.DataFormat{Format: malgo.FormatS16, SampleRate: 16000}
	info.Formats[1] = malgo.DataFormat{Format: malgo.FormatF32, SampleRate: 16000}
	info.Formats[2] = malgo.DataFormat{Format: malgo.FormatS32, SampleRate: 16000}

	format, rate, ok := PickConfig(info, 16000)
	if !ok {
		t.Fatal("expected a matching configuration")
	}
	if format != malgo.FormatF32 {
		t.Fatalf("expected F32 to win the tie-break, got %v", format)
	}
	if rate != 16000 {
		t.Fatalf("expected target rate, got %d", rate)
	}
}

func TestPickConfigZeroRateCoversAnyTarget(t *testing.T) {
	var info malgo.DeviceInfo
	info.FormatCount = 1
	info.Formats = make([]malgo.DataFormat, 1)
	info.Formats[0] = malgo.DataFormat{Format: malgo.FormatS16, SampleRate: 0}

	format, rate, ok := PickConfig(info, 16000)
	if !ok {
		t.Fatal("expected an any-rate format to cover the target")
	}
	if format != malgo.FormatS16 || rate != 16000 {
		t.Fatalf("got format %v rate %d", format, rate)
	}
}

func TestPickConfigNoCoverageReportsFallback(t *testing.T) {
	var info malgo.DeviceInfo
	info.FormatCount = 2
	info.Formats = make([]malgo.DataFormat, 2)
	info.Formats[0] = malgo.DataFormat{Format: malgo.FormatS16, SampleRate: 44100}
	info.Formats[1] = malgo.DataFormat{Format: malgo.FormatF32, SampleRate: 48000}

	if _, _, ok := PickConfig(info, 16000); ok {
		t.Fatal("expected no advertised format to cover the target rate")
	}
}
