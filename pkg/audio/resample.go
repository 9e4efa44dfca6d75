package audio

import (
	"github.com/mjibson/go-dsp/fft"
)

// FrameEmitter receives one resampled frame of exactly FrameSamples samples
// at OutputRate.
type FrameEmitter func(frame []float32)

// FrameResampler converts a variable-size stream of mono float32 samples at
// an input rate into fixed-size FrameSamples-length frames at OutputRate.
// When the input rate equals OutputRate it is a pure re-framer; otherwise
// incoming samples are accumulated into ChunkIn-sized blocks and converted
// with an FFT-based rate change before being re-chunked into frames.
//
// A FrameResampler is not safe for concurrent use; it is owned by a single
// worker goroutine (the recorder worker, per pkg/recorder).
type FrameResampler struct {
	inputRate   int
	outputRate  int
	passThrough bool

	chunkBuf []float32 // accumulates input samples up to ChunkIn
	pending  []float32 // accumulates resampled output until a full frame is ready
}

// NewFrameResampler returns a FrameResampler converting from inputRate to
// OutputRate. Both rates must be positive.
func NewFrameResampler(inputRate int) (*FrameResampler, error) {
	if inputRate <= 0 {
		return nil, ErrInvalidRate
	}
	return &FrameResampler{
		inputRate:   inputRate,
		outputRate:  OutputRate,
		passThrough: inputRate == OutputRate,
		pending:     make([]float32, 0, FrameSamples),
	}, nil
}

// Push feeds src into the resampler, invoking emit once per full frame
// produced, in order. It never blocks; it allocates a fresh slice for each
// emitted frame and, when resampling, for each converted ChunkIn block.
func (r *FrameResampler) Push(src []float32, emit FrameEmitter) {
	if r.passThrough {
		r.reframe(src, emit)
		return
	}

	r.chunkBuf = append(r.chunkBuf, src...)
	for len(r.chunkBuf) >= ChunkIn {
		block := r.chunkBuf[:ChunkIn]
		r.chunkBuf = r.chunkBuf[ChunkIn:]
		r.reframe(r.resampleChunk(block), emit)
	}
}

// Reset discards any buffered input and pending output, as at the start of
// a new utterance.
func (r *FrameResampler) Reset() {
	r.chunkBuf = r.chunkBuf[:0]
	r.pending = r.pending[:0]
}

// Finish flushes any buffered input and pending output, zero-padding as
// needed, and emits the final (possibly short, now zero-padded) frame. It
// guarantees the total emitted sample count is a multiple of FrameSamples.
func (r *FrameResampler) Finish(emit FrameEmitter) {
	if !r.passThrough && len(r.chunkBuf) > 0 {
		padded := make([]float32, ChunkIn)
		copy(padded, r.chunkBuf)
		r.chunkBuf = r.chunkBuf[:0]
		r.reframe(r.resampleChunk(padded), emit)
	}

	if len(r.pending) > 0 {
		frame := make([]float32, FrameSamples)
		copy(frame, r.pending)
		r.pending = r.pending[:0]
		emit(frame)
	}
}

// reframe slices out into exact FrameSamples-length frames, carrying any
// remainder forward in pending.
func (r *FrameResampler) reframe(out []float32, emit FrameEmitter) {
	r.pending = append(r.pending, out...)
	for len(r.pending) >= FrameSamples {
		frame := make([]float32, FrameSamples)
		copy(frame, r.pending[:FrameSamples])
		r.pending = r.pending[FrameSamples:]
		emit(frame)
	}
}

// resampleChunk converts one ChunkIn-length block from r.inputRate to
// OutputRate using the standard FFT-domain technique: forward FFT, truncate
// or zero-pad the spectrum to the target length around the Nyquist split,
// scale by the length ratio, inverse FFT, take the real part.
func (r *FrameResampler) resampleChunk(block []float32) []float32 {
	in := make([]float64, len(block))
	for i, s := range block {
		in[i] = float64(s)
	}

	spectrum := fft.FFTReal(in)
	nIn := len(spectrum)
	nOut := int(float64(nIn) * float64(r.outputRate) / float64(r.inputRate))
	if nOut <= 0 {
		nOut = 1
	}

	resized := resizeSpectrum(spectrum, nOut)
	scale := float64(nOut) / float64(nIn)
	for i := range resized {
		resized[i] *= complex(scale, 0)
	}

	timeDomain := fft.IFFT(resized)
	out := make([]float32, nOut)
	for i, c := range timeDomain {
		out[i] = float32(real(c))
	}
	return out
}

// resizeSpectrum truncates or zero-pads a conjugate-symmetric FFT output of
// length nIn to length nOut, preserving the low-frequency bins on both
// sides of the Nyquist split so the inverse transform yields a real-valued,
// band-limited resampling of the original signal.
func resizeSpectrum(spectrum []complex128, nOut int) []complex128 {
	nIn := len(spectrum)
	out := make([]complex128, nOut)

	half := nIn / 2
	if nOut < nIn {
		// Downsampling: keep the lowest half+1 bins.
		keep := nOut / 2
		copy(out[:keep+1], spectrum[:keep+1])
		for i := 1; i <= nOut-keep-1; i++ {
			out[nOut-i] = spectrum[nIn-i]
		}
	} else {
		// Upsampling: copy low bins to both ends, zero the new middle.
		copy(out[:half+1], spectrum[:half+1])
		for i := 1; i < nIn-half; i++ {
			out[nOut-i] = spectrum[nIn-i]
		}
	}
	return out
}
