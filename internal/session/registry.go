package session

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/llehouerou/subcue/internal/cue"
	"github.com/llehouerou/subcue/internal/logging"
	"github.com/llehouerou/subcue/internal/media"
)

// ErrUnknownSession is returned for operations naming no active session.
var ErrUnknownSession = errors.New("unknown session")

// DefaultMasterVolume is the master volume at startup.
const DefaultMasterVolume = 0.7

// Registry maps session ids to sessions. At most one session exists per id.
//
// A Registry is not safe for concurrent use; it is owned by the engine loop.
type Registry struct {
	backend  media.Backend
	master   float64
	sessions map[string]*Session
	logger   *slog.Logger
	now      func() time.Time

	// generation numbers every opened media, so a replaced session's
	// late events never match its successor.
	generation uint64
}

// NewRegistry creates an empty registry opening media through backend.
func NewRegistry(backend media.Backend, master float64, logger *slog.Logger) *Registry {
	return &Registry{
		backend:  backend,
		master:   clampUnit(master),
		sessions: make(map[string]*Session),
		logger:   logging.NewComponentLogger(logger, "session"),
		now:      time.Now,
	}
}

// WithClock sets the time source used for StartedAt.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Create opens the audio for spec and registers the session. A session
// already registered under the same id is destroyed first. Open and
// autoplay failures are wrapped in media.ErrPlaybackFailure and leave no
// session behind.
func (r *Registry) Create(spec Spec) (*Session, error) {
	if _, exists := r.sessions[spec.ID]; exists {
		r.logger.Debug("replacing session", logging.Session(spec.ID))
		_ = r.Destroy(spec.ID)
	}

	relative := r.master
	if spec.Volume != nil {
		relative = clampUnit(*spec.Volume)
	}

	r.generation++
	m, err := r.backend.Open(media.Request{
		SessionID:  spec.ID,
		Generation: r.generation,
		Path:       spec.AudioFile,
		Volume:     relative * r.master,
		Loop:       spec.Loop,
	})
	if err != nil {
		return nil, wrapPlayback(err)
	}

	r.warnNegative(spec.ID, spec.Cues...)
	s := &Session{
		ID:          spec.ID,
		Generation:  r.generation,
		AudioFile:   spec.AudioFile,
		Track:       cue.NewTrack(spec.Cues),
		Media:       m,
		Loop:        spec.Loop,
		StartedAt:   r.now(),
		CustomEvent: spec.CustomEvent,
		ServerEvent: spec.ServerEvent,
		relative:    relative,
	}

	if spec.Autoplay == nil || *spec.Autoplay {
		if err := m.Play(); err != nil {
			_ = m.Close()
			return nil, wrapPlayback(err)
		}
	}

	r.sessions[spec.ID] = s
	r.logger.Info("session created",
		logging.Session(spec.ID),
		logging.String("audio_file", spec.AudioFile),
		logging.Int("cues", s.Track.Len()),
		logging.Float64("volume", m.Volume()),
		logging.Bool("loop", spec.Loop),
	)
	return s, nil
}

// Get returns the session registered under id.
func (r *Registry) Get(id string) (*Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of active sessions.
func (r *Registry) Len() int { return len(r.sessions) }

// IDs returns the active session ids in lexical order.
func (r *Registry) IDs() []string {
	return slices.Sorted(maps.Keys(r.sessions))
}

// Destroy stops and releases the session's media and unregisters it.
func (r *Registry) Destroy(id string) error {
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	delete(r.sessions, id)

	s.Media.Pause()
	if err := s.Media.Close(); err != nil {
		r.logger.Warn("closing media failed", logging.Session(id), logging.Error(err))
	}
	r.logger.Debug("session destroyed", logging.Session(id))
	return nil
}

// DestroyAll destroys every session and returns how many there were.
func (r *Registry) DestroyAll() int {
	ids := r.IDs()
	for _, id := range ids {
		_ = r.Destroy(id)
	}
	return len(ids)
}

// MasterVolume returns the master volume.
func (r *Registry) MasterVolume() float64 { return r.master }

// SetMasterVolume clamps level to [0,1] and rescales every session so its
// volume keeps the same ratio to the master.
func (r *Registry) SetMasterVolume(level float64) float64 {
	old := r.master
	r.master = clampUnit(level)

	for _, s := range r.sessions {
		if old > 0 {
			s.relative = s.Media.Volume() / old
		}
		s.Media.SetVolume(s.relative * r.master)
	}
	r.logger.Debug("master volume changed",
		logging.Float64("from", old),
		logging.Float64("to", r.master),
	)
	return r.master
}

// SetVolume sets a session volume relative to the master and returns the
// resulting effective volume.
func (r *Registry) SetVolume(id string, level float64) (float64, error) {
	s, ok := r.sessions[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	s.relative = clampUnit(level)
	s.Media.SetVolume(s.relative * r.master)
	return s.Media.Volume(), nil
}

// InsertCue adds a cue to a session track.
func (r *Registry) InsertCue(id string, c cue.Cue) error {
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	r.warnNegative(id, c)
	s.Track.Insert(c)
	return nil
}

// ResyncCue inserts c into a session track at the given time.
func (r *Registry) ResyncCue(id string, at float64, c cue.Cue) error {
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	c.Time = at
	r.warnNegative(id, c)
	s.Track.Resync(at, c)
	return nil
}

// warnNegative logs cues whose negative time the track moves to 0.
func (r *Registry) warnNegative(id string, cues ...cue.Cue) {
	for _, c := range cues {
		if c.Negative() {
			r.logger.Warn("cue time before start, moved to 0",
				logging.Session(id),
				logging.Float64("time", c.Time),
				logging.String("text", c.Text),
			)
		}
	}
}

func wrapPlayback(err error) error {
	if errors.Is(err, media.ErrPlaybackFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", media.ErrPlaybackFailure, err)
}

func clampUnit(v float64) float64 {
	return max(0, min(1, v))
}
