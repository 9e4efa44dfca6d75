// Package recorder implements the device-side capture worker (C5): it owns
// the input stream and a single worker goroutine that frames, resamples,
// gates, and accumulates an utterance under command from a controller.
package recorder

import (
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/lokutor-ai/dictation-engine/pkg/audio"
	"github.com/lokutor-ai/dictation-engine/pkg/logging"
	"github.com/lokutor-ai/dictation-engine/pkg/vad"
)

// Mode selects who opens and closes the underlying stream.
type Mode int

const (
	// AlwaysOn opens the stream once; Start/Stop only toggle recording.
	AlwaysOn Mode = iota
	// OnDemand opens the stream on Start and closes it on Stop, trading a
	// warm-up latency for zero idle capture.
	OnDemand
)

type cmdKind int

const (
	cmdStart cmdKind = iota
	cmdStop
	cmdShutdown
)

type command struct {
	kind  cmdKind
	reply chan []float32
}

// LevelFunc receives a VisualiserBands-length level vector each time the
// visualiser completes a window.
type LevelFunc func(levels []float32)

// Recorder owns the device-side input stream and a single worker thread.
// At most one stream is open at a time. The zero value is not usable; build
// one with New.
type Recorder struct {
	mode     Mode
	logger   logging.Logger
	onLevel  LevelFunc
	voice    *vad.SmoothedVAD // nil means every frame while recording is kept
	deviceID *malgo.DeviceID

	mu        sync.Mutex
	malgoCtx  *malgo.AllocatedContext
	device    *malgo.Device
	cmdCh     chan command
	sampleCh  chan []float32
	wg        sync.WaitGroup
	open      bool
	recording bool
	closed    bool
}

// New constructs a Recorder in the given mode. voice may be nil, in which
// case every frame received while recording is appended unconditionally.
func New(mode Mode, onLevel LevelFunc, voice *vad.SmoothedVAD, logger logging.Logger) *Recorder {
	return &Recorder{
		mode:    mode,
		logger:  logging.OrDefault(logger),
		onLevel: onLevel,
		voice:   voice,
	}
}

// Open enumerates capture devices, resolves deviceID (or the system default
// when nil), selects the best advertised configuration per audio.PickConfig,
// opens the stream, and spawns the worker goroutine. Calling Open on an
// already-open Recorder returns ErrAlreadyOpen.
func (r *Recorder) Open(deviceID *malgo.DeviceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.open {
		return ErrAlreadyOpen
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceOpenFailed, err)
	}

	devices, err := audio.ListInputDevices(ctx)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return err
	}
	if deviceID == nil {
		id := devices[0].ID
		for _, d := range devices {
			if d.IsDefault {
				id = d.ID
				break
			}
		}
		deviceID = &id
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.DeviceID = deviceID.Pointer()
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(audio.OutputRate)

	if info, infoErr := ctx.DeviceInfo(malgo.Capture, *deviceID, malgo.Shared); infoErr == nil && info.FormatCount > 0 {
		if format, rate, ok := audio.PickConfig(info, uint32(audio.OutputRate)); ok {
			deviceConfig.Capture.Format = format
			deviceConfig.SampleRate = rate
		} else {
			// No advertised configuration covers the target rate: take the
			// device's first advertised configuration and let the resampler
			// reconcile the rate.
			deviceConfig.Capture.Format = info.Formats[0].Format
			if sr := info.Formats[0].SampleRate; sr != 0 {
				deviceConfig.SampleRate = sr
			}
		}
	}

	switch deviceConfig.Capture.Format {
	case malgo.FormatF32, malgo.FormatS16, malgo.FormatS32, malgo.FormatU8:
	default:
		ctx.Uninit()
		ctx.Free()
		return audio.ErrUnsupportedSampleFormat
	}

	sampleCh := make(chan []float32, 32)
	format := deviceConfig.Capture.Format
	channels := int(deviceConfig.Capture.Channels)

	// The data callback runs on the audio backend's real-time thread: it
	// must never block, and allocates only to clone the reused scratch for
	// the channel send.
	var scratch []float32
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			scratch = decodeDownmix(scratch[:0], format, channels, input)
			if len(scratch) == 0 {
				return
			}
			block := make([]float32, len(scratch))
			copy(block, scratch)
			select {
			case sampleCh <- block:
			default:
				r.logger.Warn("recorder: sample channel full, dropping block")
			}
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("%w: %v", ErrDeviceOpenFailed, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("%w: %v", ErrDeviceOpenFailed, err)
	}

	r.malgoCtx = ctx
	r.device = device
	r.deviceID = deviceID
	r.sampleCh = sampleCh
	r.cmdCh = make(chan command, 4)
	r.open = true

	r.wg.Add(1)
	go r.workerLoop(int(deviceConfig.SampleRate))

	return nil
}

// Start begins an utterance. In OnDemand mode it opens the stream first if
// it is not already open. A Start while an utterance is already in flight is
// rejected with ErrAlreadyRecording; there is no preemption.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.recording {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	if !r.open {
		if r.mode != OnDemand {
			r.mu.Unlock()
			return ErrNotOpen
		}
		r.mu.Unlock()
		if err := r.Open(r.deviceID); err != nil {
			return err
		}
		r.mu.Lock()
	}
	r.recording = true
	cmdCh := r.cmdCh
	r.mu.Unlock()

	cmdCh <- command{kind: cmdStart}
	return nil
}

// Stop ends the current utterance and returns the accumulated samples at
// audio.OutputRate. Without a preceding Start the result is empty. In
// OnDemand mode the stream is closed after the reply is received.
func (r *Recorder) Stop() ([]float32, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if !r.open {
		r.mu.Unlock()
		return nil, ErrNotOpen
	}
	r.recording = false
	cmdCh := r.cmdCh
	r.mu.Unlock()

	reply := make(chan []float32, 1)
	cmdCh <- command{kind: cmdStop, reply: reply}
	samples := <-reply

	if r.mode == OnDemand {
		r.closeStream()
	}
	return samples, nil
}

// Close shuts the worker down and releases the device, if open. Close is
// idempotent.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	wasOpen := r.open
	r.mu.Unlock()

	if wasOpen {
		r.closeStream()
	}
	return nil
}

// closeStream sends Shutdown, waits for the worker to exit, and tears down
// the device and context.
func (r *Recorder) closeStream() {
	r.mu.Lock()
	if !r.open {
		r.mu.Unlock()
		return
	}
	cmdCh := r.cmdCh
	r.mu.Unlock()

	cmdCh <- command{kind: cmdShutdown}
	r.wg.Wait()

	r.mu.Lock()
	device := r.device
	ctx := r.malgoCtx
	r.open = false
	r.recording = false
	r.device = nil
	r.malgoCtx = nil
	r.mu.Unlock()

	if device != nil {
		_ = device.Stop()
		device.Uninit()
	}
	if ctx != nil {
		ctx.Uninit()
		ctx.Free()
	}
}

// worker bundles the state the worker goroutine owns exclusively: the
// resampler, visualiser, utterance accumulator, and recording flag.
type worker struct {
	r          *Recorder
	resampler  *audio.FrameResampler
	visualiser *audio.Visualiser
	processed  []float32
	recording  bool
}

// workerLoop is the single worker goroutine. Sample blocks are processed
// strictly in arrival order; a command is applied only after every block
// queued before it has been drained, so samples queued before a Start can
// never enter the utterance and a Stop reply covers everything captured up
// to the instant of Stop.
func (r *Recorder) workerLoop(inputRate int) {
	defer r.wg.Done()

	resampler, err := audio.NewFrameResampler(inputRate)
	if err != nil {
		r.logger.Error("recorder: failed to build resampler", "error", err)
		return
	}
	w := &worker{
		r:          r,
		resampler:  resampler,
		visualiser: audio.NewVisualiser(),
	}

	for {
		select {
		case block, ok := <-r.sampleCh:
			if !ok {
				return
			}
			w.processBlock(block)
		case cmd := <-r.cmdCh:
			// Apply the command even if the sample channel closed while
			// draining, so a pending Stop reply is never abandoned.
			closed := w.drainSamples()
			if shutdown := w.handle(cmd); shutdown || closed {
				return
			}
		}
	}
}

// drainSamples processes every sample block currently queued, returning
// true when the sample channel has been closed.
func (w *worker) drainSamples() bool {
	for {
		select {
		case block, ok := <-w.r.sampleCh:
			if !ok {
				return true
			}
			w.processBlock(block)
		default:
			return false
		}
	}
}

func (w *worker) processBlock(block []float32) {
	w.visualiser.Push(block, func(levels []float32) {
		if w.r.onLevel != nil {
			w.r.onLevel(levels)
		}
	})
	w.resampler.Push(block, w.frameCallback(false))
}

// frameCallback routes one resampled frame into the utterance accumulator,
// through the VAD when one is configured.
func (w *worker) frameCallback(forceRecording bool) func(frame []float32) {
	return func(frame []float32) {
		if !w.recording && !forceRecording {
			return
		}
		if w.r.voice == nil {
			w.processed = append(w.processed, frame...)
			return
		}
		v, err := w.r.voice.PushFrame(frame)
		if err != nil {
			// InvalidFrame is a programmer error; fall back to treating
			// the frame as speech rather than silently losing it.
			w.r.logger.Error("recorder: VAD push failed, keeping frame as speech", "error", err)
			w.processed = append(w.processed, frame...)
			return
		}
		if v.IsSpeech {
			w.processed = append(w.processed, v.Samples...)
		}
	}
}

// handle applies one command. It returns true when Shutdown was received
// and the worker should exit.
func (w *worker) handle(cmd command) bool {
	switch cmd.kind {
	case cmdStart:
		// Samples framed before this point can never enter the utterance;
		// the partial tail buffered in the resampler belongs to them, so it
		// is discarded too.
		w.processed = w.processed[:0]
		w.recording = true
		w.resampler.Reset()
		if w.r.voice != nil {
			w.r.voice.Reset()
		}
		w.visualiser.Reset()
	case cmdStop:
		wasRecording := w.recording
		w.recording = false
		if wasRecording {
			// Flush the resampler tail with recording forced on so the
			// final partial frame is not lost.
			w.resampler.Finish(w.frameCallback(true))
		}
		out := make([]float32, len(w.processed))
		copy(out, w.processed)
		cmd.reply <- out
	case cmdShutdown:
		return true
	}
	return false
}

// decodeDownmix appends the interleaved raw buffer of the given format and
// channel count to dst as mono float32 samples, averaging channels per
// frame. dst is the callback's reused scratch.
func decodeDownmix(dst []float32, format malgo.FormatType, channels int, raw []byte) []float32 {
	if channels <= 0 {
		return dst
	}

	base := len(dst)
	switch format {
	case malgo.FormatF32:
		for i := 0; i+4 <= len(raw); i += 4 {
			bits := uint32(raw[i]) | uint32(raw[i+1])<<8 | uint32(raw[i+2])<<16 | uint32(raw[i+3])<<24
			dst = append(dst, math.Float32frombits(bits))
		}
	case malgo.FormatS16:
		for i := 0; i+2 <= len(raw); i += 2 {
			v := int16(uint16(raw[i]) | uint16(raw[i+1])<<8)
			dst = append(dst, audio.NormalizeInt16(v))
		}
	case malgo.FormatS32:
		for i := 0; i+4 <= len(raw); i += 4 {
			v := int32(uint32(raw[i]) | uint32(raw[i+1])<<8 | uint32(raw[i+2])<<16 | uint32(raw[i+3])<<24)
			dst = append(dst, audio.NormalizeInt32(v))
		}
	case malgo.FormatU8:
		// U8 PCM is offset-binary around 128.
		for _, b := range raw {
			dst = append(dst, audio.NormalizeInt8(int8(int(b)-128)))
		}
	default:
		return dst
	}

	if channels == 1 {
		return dst
	}
	frames := (len(dst) - base) / channels
	for i := 0; i < frames; i++ {
		dst[base+i] = audio.DownmixMean(dst[base+i*channels : base+(i+1)*channels])
	}
	return dst[:base+frames]
}
