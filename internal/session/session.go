// Package session keeps the registry of active playback sessions, each one
// pairing an audio resource with its cue track.
package session

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/llehouerou/subcue/internal/cue"
	"github.com/llehouerou/subcue/internal/media"
)

// Spec describes a session to create.
type Spec struct {
	ID        string
	AudioFile string
	Cues      []cue.Cue

	// Autoplay starts playback right away unless explicitly false.
	Autoplay *bool
	// Volume is relative to the master volume. Nil means "same as master".
	Volume *float64
	Loop   bool

	CustomEvent json.RawMessage
	ServerEvent json.RawMessage
}

// Session is one audio resource and its subtitle track.
type Session struct {
	ID         string
	Generation uint64 // matches the events of this session's media
	AudioFile  string
	Track      *cue.Track
	Media      media.Media
	Loop       bool
	StartedAt  time.Time

	CustomEvent json.RawMessage
	ServerEvent json.RawMessage

	relative float64
	lastPos  float64
}

// Owns reports whether ev was sent by this session's media.
func (s *Session) Owns(ev media.Event) bool {
	return ev.SessionID == s.ID && ev.Generation == s.Generation
}

// Relative returns the session volume relative to the master volume.
func (s *Session) Relative() float64 { return s.relative }

// Position returns the playback position in seconds.
func (s *Session) Position() float64 {
	return s.Media.Position().Seconds()
}

// Playing reports whether the media clock is running.
func (s *Session) Playing() bool {
	return s.Media.State() == media.Playing
}

// Seek moves playback to at (seconds, negative values clamp to 0) and lets
// the track re-evaluate every cue.
func (s *Session) Seek(at float64) {
	at = max(at, 0)
	s.Media.SeekTo(time.Duration(at * float64(time.Second)))
	s.Track.Seek()
	s.lastPos = at
}

// Due reads the media clock and returns the cue to display, if any. A looping
// session that wrapped around starts its track over.
func (s *Session) Due() (int, cue.Cue, bool) {
	pos := s.Position()
	if s.Loop && pos < s.lastPos {
		s.Track.Seek()
	}
	s.lastPos = pos
	return s.Track.Due(pos)
}

// SubtitleID returns the overlay id of the cue at index i.
func (s *Session) SubtitleID(i int) string {
	return SubtitleID(s.ID, i)
}

// SubtitleID formats the overlay id of a session cue.
func SubtitleID(sessionID string, index int) string {
	return sessionID + subtitleInfix + strconv.Itoa(index)
}

// OwnsSubtitle reports whether subtitleID was produced by the session.
func OwnsSubtitle(sessionID, subtitleID string) bool {
	rest, ok := strings.CutPrefix(subtitleID, sessionID+subtitleInfix)
	if !ok || rest == "" {
		return false
	}
	_, err := strconv.Atoi(rest)
	return err == nil
}

const subtitleInfix = "_sub_"
