// Package media is the playback clock behind every subtitle session: it
// opens audio resources, controls them and reports their position.
package media

import (
	"errors"
	"time"
)

// ErrPlaybackFailure wraps every error raised while opening or playing audio.
var ErrPlaybackFailure = errors.New("playback failure")

// EventKind tells what happened to a media resource.
type EventKind int

const (
	// Loaded reports the total duration once it is known.
	Loaded EventKind = iota
	// Ended reports that playback reached the end (never sent when looping).
	Ended
	// Failed reports an error during playback.
	Failed
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case Loaded:
		return "loaded"
	case Ended:
		return "ended"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is sent by a media resource to the engine loop.
type Event struct {
	SessionID string
	// Generation is copied from the Request that opened the media, so
	// events of a replaced session can be told apart from its successor's.
	Generation uint64
	Kind       EventKind
	Duration   time.Duration // set for Loaded
	Err        error         // set for Failed
}

// Request describes the resource a session wants to open.
type Request struct {
	SessionID  string
	Generation uint64
	Path       string
	Volume     float64 // effective volume, 0.0 to 1.0
	Loop       bool
}

// Media is one opened audio resource.
type Media interface {
	Play() error
	Pause()
	Close() error
	State() State
	SetVolume(level float64)
	Volume() float64
	Position() time.Duration
	Duration() time.Duration
	SeekTo(pos time.Duration)
	Source() string
}

// Backend opens media resources. Events of every opened resource are sent
// to the channel the backend was built with.
type Backend interface {
	Open(req Request) (Media, error)
}
