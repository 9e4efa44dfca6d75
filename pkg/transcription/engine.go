package transcription

// EngineType names the closed set of inference backends a ModelDescriptor
// may select. Avoid open-ended polymorphism: new backends extend this enum
// and the switch in newEngine, not a plugin registry.
type EngineType int

const (
	EngineWhisper EngineType = iota
	EngineParakeet
)

// ModelDescriptor is the subset of the external model registry's record
// that the transcription manager needs: its engine family and the
// filesystem location of the already-downloaded artifact. The manager does
// not download or verify models; it only consumes Path.
type ModelDescriptor struct {
	ID         string
	EngineType EngineType
	Path       string
	IsReady    bool
}

// Params carries the engine-specific decode parameters the manager derives
// from the current settings snapshot on every Transcribe call.
type Params struct {
	// Language is nil for "auto" detection, or a normalised BCP47 tag.
	Language *string
	// Translate requests English translation (Whisper only).
	Translate bool
}

// Engine is the capability every transcription backend implements. The set
// of implementations is closed to WhisperEngine and ParakeetEngine; the
// manager holds at most one loaded Engine at a time, behind its own lock.
type Engine interface {
	// Load prepares the engine to decode from the model artifact at path.
	Load(path string, params Params) error
	// Unload releases every resource Load acquired. It must fully release
	// GPU/CPU memory before returning, so the next engine's Load can be
	// exposed safely.
	Unload() error
	// Transcribe decodes samples (mono float32 at audio.OutputRate) into
	// text using params.
	Transcribe(samples []float32, params Params) (string, error)
}

// newEngine instantiates the concrete Engine for a descriptor's EngineType.
func newEngine(engineType EngineType) (Engine, error) {
	switch engineType {
	case EngineWhisper:
		return &WhisperEngine{}, nil
	case EngineParakeet:
		return &ParakeetEngine{}, nil
	default:
		return nil, ErrUnknownEngineType
	}
}
