package media

// State represents the playback state of one media resource.
//
//	┌──────────┐      play       ┌──────────┐
//	│  Stopped │ ───────────────▶│  Playing │
//	└──────────┘                 └──────────┘
//	     ▲                        pause │ ▲ play
//	     │ close                        ▼ │
//	     │                       ┌──────────┐
//	     └───────────────────────│  Paused  │
//	                             └──────────┘
//
// Closing from any state releases the resource; a closed media never plays
// again.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

// String returns the state name for debugging.
func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// IsActive returns true if playback is active (Playing or Paused).
func (s State) IsActive() bool {
	return s == Playing || s == Paused
}
