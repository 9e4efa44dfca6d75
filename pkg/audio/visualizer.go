package audio

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

const (
	visDBMin      = -55.0
	visDBMax      = -8.0
	visGain       = 1.3
	visCurvePower = 0.7
	visDBFloor    = -80.0
)

// Visualiser accumulates mono samples at OutputRate and, once VisualiserWindow
// samples have arrived, emits a VisualiserBands-length vector of level values
// in [0.0, 1.0] suitable for driving a UI meter. It is not safe for
// concurrent use.
type Visualiser struct {
	window []float64 // hann coefficients, length VisualiserWindow
	edges  []int     // VisualiserBands+1 FFT bin edges

	buf []float32 // accumulates input until len == VisualiserWindow

	noiseFloor []float64 // per-band adaptive noise floor, in dB
}

// NewVisualiser constructs a Visualiser with its Hann window and log-spaced
// band edges precomputed.
func NewVisualiser() *Visualiser {
	v := &Visualiser{
		window:     hannWindow(VisualiserWindow),
		edges:      logBandEdges(VisualiserBands, VisualiserWindow, OutputRate, VisualiserFreqMin, VisualiserFreqMax),
		buf:        make([]float32, 0, VisualiserWindow),
		noiseFloor: make([]float64, VisualiserBands),
	}
	for i := range v.noiseFloor {
		v.noiseFloor[i] = visDBFloor
	}
	return v
}

// Reset clears the input buffer, as at the start of a new recording.
func (v *Visualiser) Reset() {
	v.buf = v.buf[:0]
}

// Push feeds samples into the visualiser, invoking emit once per
// VisualiserWindow-sample block with a freshly allocated VisualiserBands
// length levels vector. The input buffer is cleared after each emission;
// there is no overlap between successive windows.
func (v *Visualiser) Push(samples []float32, emit func(levels []float32)) {
	v.buf = append(v.buf, samples...)
	for len(v.buf) >= VisualiserWindow {
		block := v.buf[:VisualiserWindow]
		emit(v.process(block))
		v.buf = v.buf[:0]
	}
}

// process computes one VisualiserBands-length levels vector from exactly
// VisualiserWindow samples.
func (v *Visualiser) process(block []float32) []float32 {
	var mean float64
	for _, s := range block {
		mean += float64(s)
	}
	mean /= float64(len(block))

	windowed := make([]float64, VisualiserWindow)
	for i, s := range block {
		windowed[i] = (float64(s) - mean) * v.window[i]
	}
	spectrum := fft.FFTReal(windowed)

	levels := make([]float32, VisualiserBands)
	dbs := make([]float64, VisualiserBands)
	for b := 0; b < VisualiserBands; b++ {
		lo, hi := v.edges[b], v.edges[b+1]
		if hi <= lo {
			hi = lo + 1
		}
		var energy float64
		for k := lo; k < hi && k < len(spectrum); k++ {
			mag := cabs(spectrum[k])
			energy += mag * mag
		}
		avgPower := energy / float64(hi-lo)

		var db float64
		if avgPower <= 0 {
			db = visDBFloor
		} else {
			db = 20 * math.Log10(math.Sqrt(avgPower)/float64(VisualiserWindow))
			if db < visDBFloor {
				db = visDBFloor
			}
		}
		dbs[b] = db

		if db < v.noiseFloor[b]+10 {
			v.noiseFloor[b] = 0.001*db + 0.999*v.noiseFloor[b]
		}

		n := clamp01((db - visDBMin) / (visDBMax - visDBMin))
		curved := math.Pow(n*visGain, visCurvePower)
		levels[b] = float32(clamp01(curved))
	}

	return smoothBands(levels)
}

// smoothBands applies the 3-tap spatial smoothing kernel over interior band
// indices: b[i] = 0.7*b[i] + 0.15*b[i-1] + 0.15*b[i+1].
func smoothBands(levels []float32) []float32 {
	if len(levels) < 3 {
		return levels
	}
	out := make([]float32, len(levels))
	out[0] = levels[0]
	out[len(levels)-1] = levels[len(levels)-1]
	for i := 1; i < len(levels)-1; i++ {
		out[i] = float32(0.7*float64(levels[i]) + 0.15*float64(levels[i-1]) + 0.15*float64(levels[i+1]))
	}
	return out
}

func cabs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// hannWindow returns n Hann window coefficients.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// logBandEdges returns bands+1 FFT bin indices log-spaced between freqMin
// and freqMax for an fftSize-point real FFT at the given sample rate, with
// every band guaranteed to cover at least one bin.
func logBandEdges(bands, fftSize, sampleRate, freqMin, freqMax int) []int {
	edges := make([]int, bands+1)
	logMin := math.Log(float64(freqMin))
	logMax := math.Log(float64(freqMax))
	for i := 0; i <= bands; i++ {
		frac := float64(i) / float64(bands)
		freq := math.Exp(logMin + frac*(logMax-logMin))
		bin := int(freq * float64(fftSize) / float64(sampleRate))
		if bin < 0 {
			bin = 0
		}
		if bin > fftSize/2 {
			bin = fftSize / 2
		}
		edges[i] = bin
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			edges[i] = edges[i-1] + 1
		}
	}
	return edges
}
