package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1}
	wav := EncodeWAV(samples)

	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Fatalf("expected RIFF prefix")
	}
	if !bytes.Contains(wav[:12], []byte("WAVE")) {
		t.Fatalf("expected WAVE format identifier")
	}

	expectedLen := 44 + len(samples)*2
	if len(wav) != expectedLen {
		t.Fatalf("expected length %d, got %d", expectedLen, len(wav))
	}

	sampleRate := binary.LittleEndian.Uint32(wav[24:28])
	if sampleRate != OutputRate {
		t.Errorf("expected sample rate %d, got %d", OutputRate, sampleRate)
	}
	channels := binary.LittleEndian.Uint16(wav[22:24])
	if channels != 1 {
		t.Errorf("expected mono, got %d channels", channels)
	}
	bits := binary.LittleEndian.Uint16(wav[34:36])
	if bits != 16 {
		t.Errorf("expected 16 bits per sample, got %d", bits)
	}
}

func TestEncodeWAVClamping(t *testing.T) {
	wav := EncodeWAV([]float32{2.0, -2.0})
	dataStart := 44
	first := int16(binary.LittleEndian.Uint16(wav[dataStart : dataStart+2]))
	second := int16(binary.LittleEndian.Uint16(wav[dataStart+2 : dataStart+4]))

	if first != 32767 {
		t.Errorf("expected clamped max sample 32767, got %d", first)
	}
	if second != -32767 {
		t.Errorf("expected clamped min sample -32767, got %d", second)
	}
}

func TestEncodeWAVEmpty(t *testing.T) {
	wav := EncodeWAV(nil)
	if len(wav) != 44 {
		t.Fatalf("expected bare 44-byte header for no samples, got %d bytes", len(wav))
	}
}
