package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/lokutor-ai/dictation-engine/pkg/logging"
	"github.com/lokutor-ai/dictation-engine/pkg/recorder"
	"github.com/lokutor-ai/dictation-engine/pkg/transcription"
)

// onDemandWarmup is the delay the on-demand mode start cue waits for the
// stream to finish opening before it plays.
const onDemandWarmup = 100 * time.Millisecond

// Orchestrator is the thin state machine (C7) driven by the hotkey
// collaborator: Start, Stop, and Cancel are its entire public surface.
type Orchestrator struct {
	mode        recorder.Mode
	rec         recorderHandle
	transcriber transcriber
	overlay     Overlay
	cues        Cues
	injector    TextInjector
	sink        AudioSink // optional, may be nil
	logger      logging.Logger

	mu              sync.Mutex
	state           State
	activeBindingID string
}

// New constructs an Orchestrator. sink may be nil to disable captured-audio
// persistence.
func New(mode recorder.Mode, rec *recorder.Recorder, tm *transcription.Manager, overlay Overlay, cues Cues, injector TextInjector, sink AudioSink, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		mode:        mode,
		rec:         rec,
		transcriber: tm,
		overlay:     overlay,
		cues:        cues,
		injector:    injector,
		sink:        sink,
		logger:      logging.OrDefault(logger),
	}
}

// Start begins a recording for bindingID. A Start while already
// recording/transcribing is rejected with ErrAlreadyActive.
func (o *Orchestrator) Start(bindingID string) error {
	o.mu.Lock()
	if o.state != Idle {
		o.mu.Unlock()
		return ErrAlreadyActive
	}
	o.state = Recording
	o.activeBindingID = bindingID
	o.mu.Unlock()

	o.setOverlay(Recording)

	var err error
	if o.mode == recorder.AlwaysOn {
		o.playStartCue()
		err = o.rec.Start()
	} else {
		err = o.rec.Start()
		if err == nil {
			go func() {
				time.Sleep(onDemandWarmup)
				o.playStartCue()
			}()
		}
	}

	if err != nil {
		o.resetIdle()
		return err
	}

	if !o.transcriber.IsModelLoaded() {
		o.transcriber.InitiateLoad()
	}
	return nil
}

// Stop ends the recording for bindingID, transcribes it, and hands
// non-empty text to the text-injection collaborator. A Stop whose
// bindingID does not match the active recording is silently ignored (the
// binding-id check happens here, before Recorder.Stop is ever called).
func (o *Orchestrator) Stop(bindingID string) error {
	o.mu.Lock()
	if o.state != Recording {
		o.mu.Unlock()
		return ErrNotActive
	}
	if bindingID != o.activeBindingID {
		o.mu.Unlock()
		return nil
	}
	o.state = Transcribing
	o.mu.Unlock()

	o.setOverlay(Transcribing)
	o.playStopCue()

	samples, err := o.rec.Stop()
	if err != nil {
		o.logger.Error("pipeline: recorder stop failed", "error", err)
		o.resetIdle()
		return err
	}

	if o.sink != nil {
		go func() {
			if err := o.sink.Save(samples); err != nil {
				o.logger.Warn("pipeline: captured-audio sink failed", "error", err)
			}
		}()
	}

	text, err := o.transcriber.Transcribe(samples)
	if err != nil {
		o.logger.Error("pipeline: transcribe failed", "error", err)
		o.resetIdle()
		return err
	}

	if text != "" && o.injector != nil {
		o.injector.Paste(text)
	}

	o.resetIdle()
	return nil
}

// Cancel forcibly resets all toggle state and discards the in-flight
// recording, if any.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	active := o.state != Idle
	o.mu.Unlock()
	if !active {
		return ErrNotActive
	}

	o.resetIdle()
	if _, err := o.rec.Stop(); err != nil && !errors.Is(err, recorder.ErrNotOpen) {
		return err
	}
	return nil
}

// State returns the orchestrator's current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) resetIdle() {
	o.mu.Lock()
	o.state = Idle
	o.activeBindingID = ""
	o.mu.Unlock()
	o.setOverlay(Idle)
}

func (o *Orchestrator) setOverlay(s State) {
	if o.overlay != nil {
		o.overlay.SetState(s)
	}
}

func (o *Orchestrator) playStartCue() {
	if o.cues != nil {
		o.cues.PlayStart()
	}
}

func (o *Orchestrator) playStopCue() {
	if o.cues != nil {
		o.cues.PlayStop()
	}
}
