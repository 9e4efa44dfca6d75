package transcription

import (
	"strings"
	"sync"
	"time"

	"github.com/lokutor-ai/dictation-engine/pkg/logging"
)

// UnloadPolicy selects when the idle watcher unloads a loaded engine.
type UnloadPolicy struct {
	// Never disables idle unloading.
	Never bool
	// Immediately unloads after every Transcribe call, handled inline
	// rather than by the watcher.
	Immediately bool
	// After, when neither of the above is set, unloads once the engine has
	// been idle for this duration.
	After time.Duration
}

// EventType names the model-state-changed events the manager emits on the
// external event bus.
type EventType int

const (
	LoadingStarted EventType = iota
	LoadingCompleted
	LoadingFailed
	Unloaded
)

// Event is one model-state-changed notification.
type Event struct {
	Type    EventType
	ModelID string
	Error   error
}

// EventBus receives model-state-changed notifications. The process
// entrypoint supplies the concrete implementation.
type EventBus interface {
	Publish(Event)
}

// Registry resolves a model id to its descriptor. The manager never
// downloads or verifies a model; it only consumes ModelDescriptor.Path.
type Registry interface {
	Resolve(id string) (ModelDescriptor, bool)
}

// Settings is the subset of the external settings snapshot the manager
// reads on each relevant operation; it is never cached.
type Settings struct {
	SelectedModel        string
	SelectedLanguage     string // "auto" or a BCP47 tag
	TranslateToEnglish   bool
	UnloadTimeout        UnloadPolicy
	CustomWords          []string
	WordCorrectThreshold float64
}

// SettingsProvider returns the current settings snapshot.
type SettingsProvider func() Settings

// Manager implements the TranscriptionManager (C6): lazy load, idle
// unload, and serialised decode over a closed set of Engine backends.
type Manager struct {
	registry Registry
	settings SettingsProvider
	events   EventBus
	logger   logging.Logger

	// newEngineFn creates the concrete Engine for a descriptor's
	// EngineType. Isolated from newEngine as a field (rather than calling
	// the package function directly) so tests can substitute a fake engine
	// without a real model backend, mirroring the per-stream engine
	// factory pattern used for isolated test doubles elsewhere in this
	// lineage.
	newEngineFn func(EngineType) (Engine, error)

	// watchInterval is the idle watcher's wake period; overridable in tests
	// so the idle-unload scenario doesn't take 10 real seconds to exercise.
	watchInterval time.Duration

	mu              sync.Mutex
	cond            *sync.Cond
	engine          Engine
	engineType      EngineType
	currentModelID  string
	hasCurrentModel bool
	isLoading       bool
	lastActivity    time.Time

	shutdown chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Manager and starts its idle watcher goroutine, waking
// every 10 seconds.
func New(registry Registry, settings SettingsProvider, events EventBus, logger logging.Logger) *Manager {
	m := &Manager{
		registry:      registry,
		settings:      settings,
		events:        events,
		logger:        logging.OrDefault(logger),
		newEngineFn:   newEngine,
		watchInterval: 10 * time.Second,
		shutdown:      make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)

	m.wg.Add(1)
	go m.idleWatcher()

	return m
}

// Close stops the idle watcher and joins it.
func (m *Manager) Close() {
	close(m.shutdown)
	m.wg.Wait()
}

// IsModelLoaded reports whether an engine session is currently present.
func (m *Manager) IsModelLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine != nil
}

// CurrentModel returns the loaded model id, if any.
func (m *Manager) CurrentModel() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentModelID, m.hasCurrentModel
}

// InitiateLoad kicks off LoadModel for the currently selected model in the
// background if no engine is present and a load is not already in
// progress. It never blocks.
func (m *Manager) InitiateLoad() {
	m.mu.Lock()
	already := m.engine != nil || m.isLoading
	m.mu.Unlock()
	if already {
		return
	}
	id := m.settings().SelectedModel
	go func() {
		if err := m.LoadModel(id); err != nil {
			m.logger.Error("transcription: background load failed", "model", id, "error", err)
		}
	}()
}

// LoadModel implements the loading protocol: emit loading_started, resolve
// the descriptor, instantiate and load the engine, then atomically swap in
// the new session after fully releasing the old one.
func (m *Manager) LoadModel(id string) error {
	m.mu.Lock()
	if m.isLoading {
		m.mu.Unlock()
		return nil
	}
	m.isLoading = true
	m.mu.Unlock()

	m.publish(Event{Type: LoadingStarted, ModelID: id})

	desc, ok := m.registry.Resolve(id)
	if !ok || !desc.IsReady {
		m.abortLoad()
		m.publish(Event{Type: LoadingFailed, ModelID: id, Error: ErrModelUnavailable})
		return ErrModelUnavailable
	}

	eng, err := m.newEngineFn(desc.EngineType)
	if err != nil {
		m.abortLoad()
		m.publish(Event{Type: LoadingFailed, ModelID: id, Error: err})
		return err
	}

	params := buildParams(desc.EngineType, m.settings())
	if err := eng.Load(desc.Path, params); err != nil {
		m.abortLoad()
		m.publish(Event{Type: LoadingFailed, ModelID: id, Error: ErrModelLoadFailed})
		return ErrModelLoadFailed
	}

	m.mu.Lock()
	old := m.engine
	m.mu.Unlock()
	if old != nil {
		if err := old.Unload(); err != nil {
			m.logger.Warn("transcription: failed to unload previous engine", "error", err)
		}
	}

	m.finishLoad(eng, desc.EngineType, id, true)
	m.publish(Event{Type: LoadingCompleted, ModelID: id})
	return nil
}

func (m *Manager) finishLoad(eng Engine, engineType EngineType, id string, loaded bool) {
	m.mu.Lock()
	m.engine = eng
	m.engineType = engineType
	m.currentModelID = id
	m.hasCurrentModel = loaded
	m.isLoading = false
	m.lastActivity = time.Now()
	m.cond.Broadcast()
	m.mu.Unlock()
}

// abortLoad clears only the in-progress flag on a failed load, leaving any
// previously loaded engine and model id untouched.
func (m *Manager) abortLoad() {
	m.mu.Lock()
	m.isLoading = false
	m.cond.Broadcast()
	m.mu.Unlock()
}

// UnloadModel releases the current engine, if any.
func (m *Manager) UnloadModel() error {
	m.mu.Lock()
	eng := m.engine
	m.engine = nil
	m.hasCurrentModel = false
	id := m.currentModelID
	m.currentModelID = ""
	m.mu.Unlock()

	if eng == nil {
		return nil
	}
	err := eng.Unload()
	m.publish(Event{Type: Unloaded, ModelID: id})
	return err
}

// Transcribe decodes samples with the currently loaded engine, applying
// the word-correction pass when custom words are configured. Waiting
// loaders are let through first; the state lock is then held across the
// decode itself, so at most one decode is in flight per process.
func (m *Manager) Transcribe(samples []float32) (string, error) {
	settings := m.settings()

	m.mu.Lock()
	m.lastActivity = time.Now()
	for m.isLoading {
		m.cond.Wait()
	}
	if m.engine == nil {
		m.mu.Unlock()
		return "", ErrModelNotLoaded
	}
	params := buildParams(m.engineType, settings)
	text, err := m.engine.Transcribe(samples, params)
	m.mu.Unlock()

	if err != nil {
		return "", ErrDecodeError
	}

	if len(settings.CustomWords) > 0 {
		text = CorrectWords(text, settings.CustomWords, settings.WordCorrectThreshold)
	}
	text = strings.TrimSpace(text)

	if settings.UnloadTimeout.Immediately {
		if err := m.UnloadModel(); err != nil {
			m.logger.Warn("transcription: immediate unload failed", "error", err)
		}
	}

	return text, nil
}

// buildParams derives engine-specific decode parameters from a settings
// snapshot: Whisper normalises the selected language and honours
// translate_to_english; Parakeet gets empty Params (no language, no
// translation, and no timestamp setting).
func buildParams(engineType EngineType, settings Settings) Params {
	if engineType != EngineWhisper {
		return Params{}
	}
	if settings.SelectedLanguage == "" || settings.SelectedLanguage == "auto" {
		return Params{Translate: settings.TranslateToEnglish}
	}
	lang := normalizeLanguage(settings.SelectedLanguage)
	return Params{Language: &lang, Translate: settings.TranslateToEnglish}
}

// normalizeLanguage maps Chinese locale variants to the bare "zh" tag
// whisper.cpp expects; every other BCP47 tag passes through unchanged.
func normalizeLanguage(lang string) string {
	switch lang {
	case "zh-Hans", "zh-Hant":
		return "zh"
	default:
		return lang
	}
}

func (m *Manager) publish(e Event) {
	if m.events != nil {
		m.events.Publish(e)
	}
}

// idleWatcher wakes every 10 seconds and unloads the engine once it has
// been idle longer than the configured fixed-interval policy.
func (m *Manager) idleWatcher() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.shutdown:
			return
		case <-ticker.C:
			policy := m.settings().UnloadTimeout
			if policy.Never || policy.Immediately {
				continue
			}

			m.mu.Lock()
			idle := m.engine != nil && time.Since(m.lastActivity) > policy.After
			m.mu.Unlock()

			if idle {
				if err := m.UnloadModel(); err != nil {
					m.logger.Warn("transcription: idle unload failed", "error", err)
				}
			}
		}
	}
}
