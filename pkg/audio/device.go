package audio

import "github.com/gen2brain/malgo"

// InputDevice describes one enumerated capture device. ID is opaque to
// callers and passed back to a Recorder's Open.
type InputDevice struct {
	ID        malgo.DeviceID
	Name      string
	IsDefault bool
}

// ListInputDevices enumerates every capture device malgo's backend can see.
// It returns ErrNoInputDevice when the list is empty.
func ListInputDevices(ctx *malgo.AllocatedContext) ([]InputDevice, error) {
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, ErrNoInputDevice
	}

	out := make([]InputDevice, len(infos))
	for i, info := range infos {
		out[i] = InputDevice{
			ID:        info.ID,
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		}
	}
	return out, nil
}

// formatRank orders malgo sample formats by preference for capture: F32
// first (no conversion needed by this package), then I16, then I32, then
// everything else.
func formatRank(f malgo.FormatType) int {
	switch f {
	case malgo.FormatF32:
		return 0
	case malgo.FormatS16:
		return 1
	case malgo.FormatS32:
		return 2
	default:
		return 3
	}
}

// PickConfig selects the best-matching capture configuration from a
// device's advertised native data formats for a target sample rate: prefer
// a format that covers targetRate (an advertised rate of 0 means the
// backend converts to any rate), tie-breaking by format preference
// F32 > I16 > I32 > others. ok is false when no advertised format covers
// targetRate, in which case the caller should fall back to the device's
// first advertised configuration and let FrameResampler reconcile the rate.
func PickConfig(info malgo.DeviceInfo, targetRate uint32) (format malgo.FormatType, rate uint32, ok bool) {
	best := -1
	for i := 0; i < int(info.FormatCount); i++ {
		fi := info.Formats[i]
		if fi.SampleRate != 0 && fi.SampleRate != targetRate {
			continue
		}
		if best == -1 || formatRank(fi.Format) < formatRank(info.Formats[best].Format) {
			best = i
		}
	}
	if best == -1 {
		return 0, 0, false
	}
	return info.Formats[best].Format, targetRate, true
}
