package transcription

import (
	"fmt"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"github.com/lokutor-ai/dictation-engine/pkg/audio"
)

// ParakeetEngine wraps a sherpa-onnx offline recognizer configured with a
// NeMo/Parakeet-family transducer model.
type ParakeetEngine struct {
	recognizer *sherpa.OfflineRecognizer
}

// Load implements Engine. path is the directory containing the exported
// transducer's encoder/decoder/joiner/tokens files.
func (e *ParakeetEngine) Load(path string, params Params) error {
	config := sherpa.OfflineRecognizerConfig{}
	config.ModelConfig.Transducer.Encoder = path + "/encoder.onnx"
	config.ModelConfig.Transducer.Decoder = path + "/decoder.onnx"
	config.ModelConfig.Transducer.Joiner = path + "/joiner.onnx"
	config.ModelConfig.Tokens = path + "/tokens.txt"
	config.ModelConfig.ModelType = "nemo_transducer"
	config.FeatConfig.SampleRate = audio.OutputRate
	config.FeatConfig.FeatureDim = 80

	recognizer := sherpa.NewOfflineRecognizer(&config)
	if recognizer == nil {
		return ErrModelLoadFailed
	}
	e.recognizer = recognizer
	return nil
}

// Unload implements Engine.
func (e *ParakeetEngine) Unload() error {
	if e.recognizer == nil {
		return nil
	}
	sherpa.DeleteOfflineRecognizer(e.recognizer)
	e.recognizer = nil
	return nil
}

// Transcribe implements Engine. params has no effect on this backend. Only
// the recognizer's result text is returned; no timestamp granularity is
// configured and no timestamps are read.
func (e *ParakeetEngine) Transcribe(samples []float32, params Params) (string, error) {
	if e.recognizer == nil {
		return "", ErrModelNotLoaded
	}

	stream := sherpa.NewOfflineStream(e.recognizer)
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(audio.OutputRate, samples)
	e.recognizer.Decode(stream)

	result := stream.GetResult()
	if result == nil {
		return "", fmt.Errorf("%w: recognizer returned no result", ErrDecodeError)
	}
	return result.Text, nil
}
