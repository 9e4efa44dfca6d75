// Package audio implements the capture-side signal chain shared by the
// dictation engine: sample format normalisation, fixed-duration framing,
// sample-rate conversion, and the spectrum visualiser that feeds the UI.
package audio

const (
	// OutputRate is the fixed sample rate, in Hz, that every frame handed to
	// the VAD is resampled to.
	OutputRate = 16000

	// FrameDuration is the duration each frame represents.
	FrameDuration = 30 // milliseconds

	// FrameSamples is round(OutputRate * FrameDuration / 1000): the exact
	// sample count of every frame at OutputRate.
	FrameSamples = OutputRate * FrameDuration / 1000

	// ChunkIn is the fixed input block size the FFT-based resampler consumes
	// per conversion step.
	ChunkIn = 1024

	// VisualiserWindow is the sample count accumulated before the
	// visualiser emits a bucket vector.
	VisualiserWindow = 512

	// VisualiserBands is the number of perceptual bands the visualiser emits.
	VisualiserBands = 16

	// VisualiserFreqMin and VisualiserFreqMax bound the visualiser's band
	// layout, in Hz.
	VisualiserFreqMin = 400
	VisualiserFreqMax = 4000
)

// Sample is a single mono audio sample in [-1.0, 1.0].
type Sample = float32

// NormalizeInt16 converts a little-endian-decoded 16-bit PCM sample to a
// float32 sample in [-1.0, 1.0].
func NormalizeInt16(s int16) float32 {
	return float32(s) / 32768.0
}

// NormalizeInt32 converts a 32-bit PCM sample to a float32 sample in
// [-1.0, 1.0].
func NormalizeInt32(s int32) float32 {
	return float32(s) / 2147483648.0
}

// NormalizeInt8 converts an 8-bit PCM sample to a float32 sample in
// [-1.0, 1.0].
func NormalizeInt8(s int8) float32 {
	return float32(s) / 128.0
}

// DownmixMean returns the mean of a single interleaved C-channel frame. C
// must be >= 1 and frame must contain exactly C samples.
func DownmixMean(frame []float32) float32 {
	if len(frame) == 0 {
		return 0
	}
	var sum float32
	for _, s := range frame {
		sum += s
	}
	return sum / float32(len(frame))
}
