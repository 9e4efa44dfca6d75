package vad

// Verdict is SmoothedVAD's per-frame output: either a noise frame, dropped,
// or a speech payload that may be longer than one frame at utterance start
// (it then carries the buffered pre-roll plus the current frame).
type Verdict struct {
	IsSpeech bool
	Samples  []float32 // valid only when IsSpeech
}

// SmoothedVAD wraps a base VAD with prefill, onset-debounce, and hangover
// smoothing, per the state machine in pkg/vad's owning component design.
// It is not safe for concurrent use; the recorder worker owns it exclusively
// and calls both PushFrame and Reset (the latter when it applies a Start
// command), per pkg/recorder.
type SmoothedVAD struct {
	base VAD

	prefillFrames  int
	hangoverFrames int
	onsetFrames    int

	ring [][]float32 // last prefillFrames+1 raw frames, oldest first

	inSpeech        bool
	onsetCounter    int
	hangoverCounter int
}

// NewSmoothedVAD wraps base with the given prefill (P), hangover (H), and
// onset (N) frame counts.
func NewSmoothedVAD(base VAD, prefillFrames, hangoverFrames, onsetFrames int) *SmoothedVAD {
	return &SmoothedVAD{
		base:           base,
		prefillFrames:  prefillFrames,
		hangoverFrames: hangoverFrames,
		onsetFrames:    onsetFrames,
		ring:           make([][]float32, 0, prefillFrames+1),
	}
}

// PushFrame runs one frame through the base VAD and the smoothing state
// machine, returning TagSpeech/TagNoise classification errors from the base
// VAD unchanged.
func (s *SmoothedVAD) PushFrame(frame []float32) (Verdict, error) {
	cp := make([]float32, len(frame))
	copy(cp, frame)
	s.ring = append(s.ring, cp)
	if len(s.ring) > s.prefillFrames+1 {
		s.ring = s.ring[1:]
	}

	tag, err := s.base.PushFrame(frame)
	if err != nil {
		return Verdict{}, err
	}
	isVoice := tag == TagSpeech

	switch {
	case !s.inSpeech && isVoice:
		s.onsetCounter++
		if s.onsetCounter >= s.onsetFrames {
			s.inSpeech = true
			s.hangoverCounter = s.hangoverFrames
			s.onsetCounter = 0
			return Verdict{IsSpeech: true, Samples: s.concatRing()}, nil
		}
		return Verdict{}, nil

	case s.inSpeech && isVoice:
		s.hangoverCounter = s.hangoverFrames
		return Verdict{IsSpeech: true, Samples: cp}, nil

	case s.inSpeech && !isVoice:
		if s.hangoverCounter > 0 {
			s.hangoverCounter--
			return Verdict{IsSpeech: true, Samples: cp}, nil
		}
		s.inSpeech = false
		return Verdict{}, nil

	default: // !s.inSpeech && !isVoice
		s.onsetCounter = 0
		return Verdict{}, nil
	}
}

// Reset clears the ring, counters, and in-speech state, and resets the base
// scorer, as at the start of a new utterance.
func (s *SmoothedVAD) Reset() {
	s.ring = s.ring[:0]
	s.inSpeech = false
	s.onsetCounter = 0
	s.hangoverCounter = 0
	s.base.Reset()
}

// SetThreshold forwards to the wrapped base VAD.
func (s *SmoothedVAD) SetThreshold(threshold float64) {
	s.base.SetThreshold(threshold)
}

// Close releases the wrapped base VAD.
func (s *SmoothedVAD) Close() error {
	return s.base.Close()
}

func (s *SmoothedVAD) concatRing() []float32 {
	total := 0
	for _, f := range s.ring {
		total += len(f)
	}
	out := make([]float32, 0, total)
	for _, f := range s.ring {
		out = append(out, f...)
	}
	return out
}
