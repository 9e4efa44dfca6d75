// Command dictation-engine wires the capture→VAD→transcription core into a
// runnable process, with console-driven stand-ins for the hotkey,
// tray/overlay, and text-injection collaborators a desktop shell would
// provide. Press Enter to toggle recording; Ctrl+C to exit.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lokutor-ai/dictation-engine/pkg/audio"
	"github.com/lokutor-ai/dictation-engine/pkg/config"
	"github.com/lokutor-ai/dictation-engine/pkg/logging"
	"github.com/lokutor-ai/dictation-engine/pkg/pipeline"
	"github.com/lokutor-ai/dictation-engine/pkg/recorder"
	"github.com/lokutor-ai/dictation-engine/pkg/transcription"
	"github.com/lokutor-ai/dictation-engine/pkg/vad"
)

const bindingID = "console-toggle"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using system environment variables")
	}

	cfg := config.FromEnv()
	logger := stdLogger{}

	var sv vad.VAD
	if cfg.VADModelPath != "" {
		session, err := vad.NewSileroVAD(cfg.VADModelPath, cfg.VADThreshold)
		if err != nil {
			log.Fatalf("failed to load VAD model at %s: %v", cfg.VADModelPath, err)
		}
		sv = session
	}

	var smoothed *vad.SmoothedVAD
	if sv != nil {
		smoothed = vad.NewSmoothedVAD(sv, cfg.VADPrefillFrames, cfg.VADHangoverFrames, cfg.VADOnsetFrames)
	}

	rec := recorder.New(cfg.RecorderMode, printLevels, smoothed, logger)
	if cfg.RecorderMode == recorder.AlwaysOn {
		if err := rec.Open(nil); err != nil {
			log.Fatalf("failed to open capture device: %v", err)
		}
	}
	defer rec.Close()

	events := &consoleEventBus{}
	registry := newEnvRegistry()
	settings := func() transcription.Settings { return cfg.Settings }

	tm := transcription.New(registry, settings, events, logger)
	defer tm.Close()

	sink := &wavSink{dir: os.Getenv("DICTATION_CAPTURE_DIR")}
	orch := pipeline.New(cfg.RecorderMode, rec, tm, consoleOverlay{}, consoleCues{}, consoleInjector{}, sink, logger)

	fmt.Println("dictation-engine ready. Press Enter to toggle recording, Ctrl+C to exit.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	recording := false
	lines := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- struct{}{}
		}
	}()

	for {
		select {
		case <-sig:
			fmt.Println("\nShutting down...")
			return
		case <-lines:
			if !recording {
				if err := orch.Start(bindingID); err != nil {
					log.Printf("start failed: %v", err)
					continue
				}
				recording = true
				fmt.Println("recording...")
			} else {
				if err := orch.Stop(bindingID); err != nil {
					log.Printf("stop failed: %v", err)
				}
				recording = false
				fmt.Println("idle")
			}
		}
	}
}

func printLevels(levels []float32) {
	meter := ""
	for _, l := range levels {
		dots := int(l * 4)
		for i := 0; i < dots; i++ {
			meter += "|"
		}
	}
	fmt.Printf("\r[%-64s]", meter)
}

// stdLogger adapts pkg/logging.Logger onto the standard log package.
type stdLogger struct{}

func (stdLogger) Debug(msg string, args ...interface{}) { logAt("DEBUG", msg, args) }
func (stdLogger) Info(msg string, args ...interface{})  { logAt("INFO", msg, args) }
func (stdLogger) Warn(msg string, args ...interface{})  { logAt("WARN", msg, args) }
func (stdLogger) Error(msg string, args ...interface{}) { logAt("ERROR", msg, args) }

func logAt(level, msg string, args []interface{}) {
	log.Println(append([]interface{}{level, msg}, args...)...)
}

var _ logging.Logger = stdLogger{}

// consoleEventBus prints model-state-changed events, standing in for the
// real event bus a tray UI would subscribe to.
type consoleEventBus struct{}

func (consoleEventBus) Publish(e transcription.Event) {
	fmt.Printf("[model-state-changed] type=%d model=%q err=%v\n", e.Type, e.ModelID, e.Error)
}

// envRegistry resolves model descriptors from DICTATION_MODEL_* environment
// variables, standing in for a settings-persistence-backed model registry.
type envRegistry struct {
	descriptors map[string]transcription.ModelDescriptor
}

func newEnvRegistry() *envRegistry {
	r := &envRegistry{descriptors: map[string]transcription.ModelDescriptor{}}
	id := os.Getenv("DICTATION_MODEL_ID")
	path := os.Getenv("DICTATION_MODEL_PATH")
	if id != "" && path != "" {
		engineType := transcription.EngineWhisper
		if os.Getenv("DICTATION_MODEL_ENGINE") == "parakeet" {
			engineType = transcription.EngineParakeet
		}
		r.descriptors[id] = transcription.ModelDescriptor{
			ID:         id,
			EngineType: engineType,
			Path:       path,
			IsReady:    true,
		}
	}
	return r
}

func (r *envRegistry) Resolve(id string) (transcription.ModelDescriptor, bool) {
	d, ok := r.descriptors[id]
	return d, ok
}

// consoleOverlay, consoleCues, and consoleInjector stand in for the
// tray/overlay, audio cue, and text-injection collaborators a desktop
// shell would provide.
type consoleOverlay struct{}

func (consoleOverlay) SetState(s pipeline.State) {
	names := map[pipeline.State]string{pipeline.Idle: "idle", pipeline.Recording: "recording", pipeline.Transcribing: "transcribing"}
	fmt.Printf("\n[overlay] %s\n", names[s])
}

type consoleCues struct{}

func (consoleCues) PlayStart() { fmt.Println("[cue] start") }
func (consoleCues) PlayStop()  { fmt.Println("[cue] stop") }

type consoleInjector struct{}

func (consoleInjector) Paste(text string) { fmt.Printf("[paste] %s\n", text) }

// wavSink persists captured utterances as 16 kHz mono 16-bit PCM WAV files
// when dir is non-empty.
type wavSink struct {
	dir string
}

func (s *wavSink) Save(samples []float32) error {
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	name := filepath.Join(s.dir, fmt.Sprintf("utterance-%d.wav", time.Now().UnixNano()))
	return os.WriteFile(name, audio.EncodeWAV(samples), 0o644)
}
