package transcription

import (
	"fmt"
	"io"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperEngine wraps a whisper.cpp model, one context per Transcribe call
// per the upstream binding's usage pattern.
type WhisperEngine struct {
	model whisperlib.Model
}

// Load implements Engine.
func (e *WhisperEngine) Load(path string, params Params) error {
	model, err := whisperlib.New(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelLoadFailed, err)
	}
	e.model = model
	return nil
}

// Unload implements Engine.
func (e *WhisperEngine) Unload() error {
	if e.model == nil {
		return nil
	}
	err := e.model.Close()
	e.model = nil
	return err
}

// Transcribe implements Engine. language is nil for auto-detection.
func (e *WhisperEngine) Transcribe(samples []float32, params Params) (string, error) {
	if e.model == nil {
		return "", ErrModelNotLoaded
	}

	wctx, err := e.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeError, err)
	}

	if params.Language != nil {
		if err := wctx.SetLanguage(*params.Language); err != nil {
			return "", fmt.Errorf("%w: %v", ErrDecodeError, err)
		}
	}
	if params.Translate {
		wctx.SetTranslate(true)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeError, err)
	}

	var text string
	for {
		segment, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDecodeError, err)
		}
		if text != "" {
			text += " "
		}
		text += segment.Text
	}
	return text, nil
}
