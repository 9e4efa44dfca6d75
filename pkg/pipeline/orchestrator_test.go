package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lokutor-ai/dictation-engine/pkg/logging"
	"github.com/lokutor-ai/dictation-engine/pkg/recorder"
)

type fakeRecorder struct {
	mu          sync.Mutex
	startErr    error
	stopErr     error
	startCnt    int
	stopCnt     int
	stopSamples []float32
}

func (f *fakeRecorder) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCnt++
	return f.startErr
}

func (f *fakeRecorder) Stop() ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCnt++
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	return f.stopSamples, nil
}

type fakeTranscriber struct {
	mu            sync.Mutex
	loaded        bool
	initiateCnt   int
	transcribed   string
	transcribeErr error
}

func (f *fakeTranscriber) Transcribe(samples []float32) (string, error) {
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return f.transcribed, nil
}

func (f *fakeTranscriber) InitiateLoad() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initiateCnt++
	f.loaded = true
}

func (f *fakeTranscriber) IsModelLoaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

type fakeOverlay struct {
	mu     sync.Mutex
	states []State
}

func (o *fakeOverlay) SetState(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
}

func (o *fakeOverlay) last() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.states) == 0 {
		return Idle
	}
	return o.states[len(o.states)-1]
}

type fakeCues struct {
	mu       sync.Mutex
	startCnt int
	stopCnt  int
}

func (c *fakeCues) PlayStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startCnt++
}

func (c *fakeCues) PlayStop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopCnt++
}

type fakeInjector struct {
	mu   sync.Mutex
	last string
}

func (i *fakeInjector) Paste(text string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.last = text
}

func newTestOrchestrator(mode recorder.Mode, rec *fakeRecorder, tr *fakeTranscriber, overlay *fakeOverlay, cues *fakeCues, inj *fakeInjector) *Orchestrator {
	return &Orchestrator{
		mode:        mode,
		rec:         rec,
		transcriber: tr,
		overlay:     overlay,
		cues:        cues,
		injector:    inj,
		logger:      logging.OrDefault(nil),
	}
}

func TestOrchestratorStartStopHappyPath(t *testing.T) {
	rec := &fakeRecorder{stopSamples: []float32{0.1, 0.2}}
	tr := &fakeTranscriber{transcribed: "hello world"}
	overlay := &fakeOverlay{}
	cues := &fakeCues{}
	inj := &fakeInjector{}
	o := newTestOrchestrator(recorder.AlwaysOn, rec, tr, overlay, cues, inj)

	if err := o.Start("binding-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if rec.startCnt != 1 {
		t.Fatalf("expected recorder.Start called once, got %d", rec.startCnt)
	}
	if cues.startCnt != 1 {
		t.Fatalf("expected start cue played once, got %d", cues.startCnt)
	}
	if overlay.last() != Recording {
		t.Fatalf("expected overlay state Recording, got %v", overlay.last())
	}
	if tr.initiateCnt != 1 {
		t.Fatalf("expected InitiateLoad called once, got %d", tr.initiateCnt)
	}

	if err := o.Stop("binding-1"); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if rec.stopCnt != 1 {
		t.Fatalf("expected recorder.Stop called once, got %d", rec.stopCnt)
	}
	if cues.stopCnt != 1 {
		t.Fatalf("expected stop cue played once, got %d", cues.stopCnt)
	}
	if inj.last != "hello world" {
		t.Fatalf("expected pasted text %q, got %q", "hello world", inj.last)
	}
	if o.State() != Idle {
		t.Fatalf("expected final state Idle, got %v", o.State())
	}
}

func TestOrchestratorOnDemandDelaysStartCue(t *testing.T) {
	rec := &fakeRecorder{}
	tr := &fakeTranscriber{loaded: true}
	overlay := &fakeOverlay{}
	cues := &fakeCues{}
	inj := &fakeInjector{}
	o := newTestOrchestrator(recorder.OnDemand, rec, tr, overlay, cues, inj)

	if err := o.Start("b1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cues.mu.Lock()
	immediate := cues.startCnt
	cues.mu.Unlock()
	if immediate != 0 {
		t.Fatalf("expected no start cue before warmup elapses, got %d", immediate)
	}

	time.Sleep(onDemandWarmup + 50*time.Millisecond)
	cues.mu.Lock()
	defer cues.mu.Unlock()
	if cues.startCnt != 1 {
		t.Fatalf("expected start cue after warmup, got %d", cues.startCnt)
	}
}

func TestOrchestratorStartWhileActiveRejected(t *testing.T) {
	rec := &fakeRecorder{}
	tr := &fakeTranscriber{}
	o := newTestOrchestrator(recorder.AlwaysOn, rec, tr, &fakeOverlay{}, &fakeCues{}, &fakeInjector{})

	if err := o.Start("b1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := o.Start("b2"); err != ErrAlreadyActive {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
}

func TestOrchestratorStopMismatchedBindingIgnored(t *testing.T) {
	rec := &fakeRecorder{}
	tr := &fakeTranscriber{}
	o := newTestOrchestrator(recorder.AlwaysOn, rec, tr, &fakeOverlay{}, &fakeCues{}, &fakeInjector{})

	if err := o.Start("binding-a"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := o.Stop("binding-b"); err != nil {
		t.Fatalf("expected mismatched Stop to be silently ignored, got error %v", err)
	}
	if rec.stopCnt != 0 {
		t.Fatalf("expected recorder.Stop not called for mismatched binding, got %d calls", rec.stopCnt)
	}
	if o.State() != Recording {
		t.Fatalf("expected state to remain Recording, got %v", o.State())
	}
}

func TestOrchestratorStopWithoutStartRejected(t *testing.T) {
	o := newTestOrchestrator(recorder.AlwaysOn, &fakeRecorder{}, &fakeTranscriber{}, &fakeOverlay{}, &fakeCues{}, &fakeInjector{})
	if err := o.Stop("b1"); err != ErrNotActive {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestOrchestratorCancelDiscardsSamples(t *testing.T) {
	rec := &fakeRecorder{stopSamples: []float32{1, 2, 3}}
	tr := &fakeTranscriber{transcribed: "should not be used"}
	inj := &fakeInjector{}
	o := newTestOrchestrator(recorder.AlwaysOn, rec, tr, &fakeOverlay{}, &fakeCues{}, inj)

	if err := o.Start("b1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := o.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if rec.stopCnt != 1 {
		t.Fatalf("expected recorder.Stop called once on cancel, got %d", rec.stopCnt)
	}
	if inj.last != "" {
		t.Fatalf("expected no text pasted after cancel, got %q", inj.last)
	}
	if o.State() != Idle {
		t.Fatalf("expected state Idle after cancel, got %v", o.State())
	}
}

func TestOrchestratorCancelWithoutStartRejected(t *testing.T) {
	o := newTestOrchestrator(recorder.AlwaysOn, &fakeRecorder{}, &fakeTranscriber{}, &fakeOverlay{}, &fakeCues{}, &fakeInjector{})
	if err := o.Cancel(); err != ErrNotActive {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestOrchestratorStopRecorderErrorResetsToIdle(t *testing.T) {
	rec := &fakeRecorder{stopErr: errors.New("device gone")}
	o := newTestOrchestrator(recorder.AlwaysOn, rec, &fakeTranscriber{}, &fakeOverlay{}, &fakeCues{}, &fakeInjector{})

	if err := o.Start("b1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := o.Stop("b1"); err == nil {
		t.Fatal("expected error from Stop when recorder.Stop fails")
	}
	if o.State() != Idle {
		t.Fatalf("expected state reset to Idle after recorder error, got %v", o.State())
	}
}
