package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV renders mono float32 samples at OutputRate into a RIFF/WAVE
// byte buffer with a fixed 16 kHz mono 16-bit PCM header, for persisting
// captured utterances.
func EncodeWAV(samples []float32) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(clampSample(s) * 32767)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}

	const (
		channels      = 1
		bitsPerSample = 16
	)
	byteRate := OutputRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	buf := new(bytes.Buffer)
	buf.Grow(44 + len(pcm))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(OutputRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
