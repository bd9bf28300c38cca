package protocol

import "fmt"

// Control verbs accepted by ControlAudio.
const (
	ControlPlay           = "play"
	ControlPause          = "pause"
	ControlStop           = "stop"
	ControlSetVolume      = "setVolume"
	ControlSetTime        = "setTime"
	ControlGetCurrentTime = "getCurrentTime"
)

// DefaultControlVolume is used by setVolume when no volume is given.
const DefaultControlVolume = 0.5

// ValidateControl returns ErrUnknownAction for unrecognized control verbs.
func ValidateControl(control string) error {
	switch control {
	case ControlPlay, ControlPause, ControlStop, ControlSetVolume, ControlSetTime, ControlGetCurrentTime:
		return nil
	default:
		return fmt.Errorf("%w: control %q", ErrUnknownAction, control)
	}
}

// VolumeOr returns the volume parameter, or def when absent.
func (p ControlParams) VolumeOr(def float64) float64 {
	if p.Volume == nil {
		return def
	}
	return *p.Volume
}

// TimeOr returns the time parameter, or def when absent.
func (p ControlParams) TimeOr(def float64) float64 {
	if p.Time == nil {
		return def
	}
	return *p.Time
}
