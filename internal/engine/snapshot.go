package engine

import (
	"fmt"
	"time"

	"github.com/llehouerou/subcue/internal/logging"
)

// Snapshot is the diagnostic view of the engine.
type Snapshot struct {
	ActiveSessions int           `json:"activeSessions"`
	MasterVolume   float64       `json:"masterVolume"`
	ActiveSubtitle string        `json:"activeSubtitle"`
	OverlayState   string        `json:"overlayState"`
	ConfigLoaded   bool          `json:"configLoaded"`
	PendingTasks   int           `json:"pendingTasks"`
	Sessions       []SessionInfo `json:"sessions"`
}

// SessionInfo describes one active session.
type SessionInfo struct {
	ID        string    `json:"audioId"`
	AudioFile string    `json:"audioFile"`
	State     string    `json:"state"`
	Position  float64   `json:"position"`
	Duration  float64   `json:"duration"`
	Volume    float64   `json:"volume"`
	Cues      int       `json:"cues"`
	Cursor    int       `json:"cursor"`
	Loop      bool      `json:"loop"`
	StartedAt time.Time `json:"startedAt"`
}

// Snapshot captures the current state.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		ActiveSessions: e.registry.Len(),
		MasterVolume:   e.registry.MasterVolume(),
		ActiveSubtitle: e.overlay.ActiveID(),
		OverlayState:   e.overlay.State().String(),
		ConfigLoaded:   e.overlay.Configured(),
		PendingTasks:   e.sched.Len(),
		Sessions:       make([]SessionInfo, 0, e.registry.Len()),
	}
	for _, id := range e.registry.IDs() {
		s, _ := e.registry.Get(id)
		snap.Sessions = append(snap.Sessions, SessionInfo{
			ID:        s.ID,
			AudioFile: s.AudioFile,
			State:     s.Media.State().String(),
			Position:  s.Position(),
			Duration:  s.Track.Duration(),
			Volume:    s.Media.Volume(),
			Cues:      s.Track.Len(),
			Cursor:    s.Track.Cursor(),
			Loop:      s.Loop,
			StartedAt: s.StartedAt,
		})
	}
	return snap
}

// String renders the summary line shown by the debug key.
func (s Snapshot) String() string {
	active := s.ActiveSubtitle
	if active == "" {
		active = "none"
	}
	return fmt.Sprintf("sessions: %d | master: %.2f | subtitle: %s | config: %t",
		s.ActiveSessions, s.MasterVolume, active, s.ConfigLoaded)
}

func (e *Engine) logDebug(s Snapshot) {
	e.local.Info("debug info",
		logging.Int("active_sessions", s.ActiveSessions),
		logging.Float64("master_volume", s.MasterVolume),
		logging.String("active_subtitle", s.ActiveSubtitle),
		logging.Bool("config_loaded", s.ConfigLoaded),
	)
}
