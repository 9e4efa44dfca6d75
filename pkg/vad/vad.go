// Package vad implements the base voice-activity scorer (C3) and the
// prefill/onset/hangover smoothing layer (C4) that sits on top of it.
package vad

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/lokutor-ai/dictation-engine/pkg/audio"
)

// Tag is the per-frame verdict the base VAD hands to its caller.
type Tag int

const (
	// TagNoise marks a frame as non-speech.
	TagNoise Tag = iota
	// TagSpeech marks a frame as speech.
	TagSpeech
)

// VAD scores a single fixed-size frame at a time and compares the score to
// a configured threshold. Implementations must be safe for use from
// exactly one caller at a time; in this engine that caller is the
// SmoothedVAD owned by the recorder worker (see pkg/recorder).
type VAD interface {
	// PushFrame scores exactly audio.FrameSamples samples and returns
	// TagSpeech or TagNoise. It returns ErrInvalidFrame if frame has the
	// wrong length.
	PushFrame(frame []float32) (Tag, error)

	// Reset clears any state the scorer carries between frames, as at the
	// start of a new utterance.
	Reset()

	// SetThreshold adjusts the speech/noise decision boundary, in [0, 1].
	SetThreshold(threshold float64)

	// Close releases the underlying inference session. PushFrame after
	// Close returns ErrClosed.
	Close() error
}

const (
	// sileroStateSize is the flattened [2, 1, 128] LSTM state the model
	// threads through successive calls.
	sileroStateSize = 2 * 1 * 128

	// sileroContextSize is the number of trailing samples from the previous
	// frame the model wants prepended to the current one, at 16 kHz.
	sileroContextSize = 64
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

func initRuntime() error {
	ortInitOnce.Do(func() {
		if !ort.IsInitialized() {
			ortInitErr = ort.InitializeEnvironment()
		}
	})
	return ortInitErr
}

// SileroVAD is a VAD backed by an ONNX Runtime inference session running a
// Silero-family frame classifier. One SileroVAD owns exactly one ONNX
// Runtime session for its lifetime; the LSTM state and sample context the
// model threads between calls are carried here and cleared by Reset.
type SileroVAD struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	threshold float64
	closed    bool

	state   []float32 // [2, 1, 128] LSTM h and c states
	context []float32 // last sileroContextSize samples of the previous frame
	input   []float32 // scratch: context + current frame
}

// NewSileroVAD loads the ONNX model at modelPath and returns a VAD scoring
// audio.FrameSamples-length frames against threshold.
func NewSileroVAD(modelPath string, threshold float64) (*SileroVAD, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoadFailed, err)
	}
	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoadFailed, err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoadFailed, err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		options)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoadFailed, err)
	}

	return &SileroVAD{
		session:   session,
		threshold: threshold,
		state:     make([]float32, sileroStateSize),
		context:   make([]float32, sileroContextSize),
		input:     make([]float32, sileroContextSize+audio.FrameSamples),
	}, nil
}

// PushFrame implements VAD.
func (v *SileroVAD) PushFrame(frame []float32) (Tag, error) {
	if len(frame) != audio.FrameSamples {
		return TagNoise, ErrInvalidFrame
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return TagNoise, ErrClosed
	}

	copy(v.input[:sileroContextSize], v.context)
	copy(v.input[sileroContextSize:], frame)
	copy(v.context, frame[len(frame)-sileroContextSize:])

	score, err := v.run()
	if err != nil {
		return TagNoise, err
	}
	if float64(score) >= v.threshold {
		return TagSpeech, nil
	}
	return TagNoise, nil
}

// run executes one inference over v.input, updating the carried LSTM state
// from the model's stateN output.
func (v *SileroVAD) run() (float32, error) {
	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(v.input))), v.input)
	if err != nil {
		return 0, err
	}
	defer inputTensor.Destroy()

	stateTensor, err := ort.NewTensor(ort.NewShape(2, 1, 128), v.state)
	if err != nil {
		return 0, err
	}
	defer stateTensor.Destroy()

	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(audio.OutputRate)})
	if err != nil {
		return 0, err
	}
	defer srTensor.Destroy()

	outputs := []ort.Value{nil, nil}
	if err := v.session.Run([]ort.Value{inputTensor, stateTensor, srTensor}, outputs); err != nil {
		return 0, err
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	probData := outputs[0].(*ort.Tensor[float32]).GetData()
	copy(v.state, outputs[1].(*ort.Tensor[float32]).GetData())

	if len(probData) == 0 {
		return 0, nil
	}
	return probData[0], nil
}

// Reset implements VAD: it zeroes the carried LSTM state and sample context.
func (v *SileroVAD) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.state {
		v.state[i] = 0
	}
	for i := range v.context {
		v.context[i] = 0
	}
}

// SetThreshold implements VAD.
func (v *SileroVAD) SetThreshold(threshold float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.threshold = threshold
}

// Close implements VAD.
func (v *SileroVAD) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	return v.session.Destroy()
}
