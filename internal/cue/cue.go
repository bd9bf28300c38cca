// Package cue holds timed subtitle cues and the per-session track that
// decides which cue is due at a given playback position.
package cue

import (
	"errors"
	"sort"
)

// ErrCueOutOfRange is reported for cues starting after the end of the audio.
var ErrCueOutOfRange = errors.New("cue time exceeds audio duration")

// Cue is a single subtitle entry.
type Cue struct {
	Time     float64 `json:"time"               yaml:"time"`               // seconds from start
	Text     string  `json:"text"               yaml:"text"`               // displayed text
	Duration float64 `json:"duration,omitempty" yaml:"duration,omitempty"` // ms, 0 = estimate
	Position string  `json:"position,omitempty" yaml:"position,omitempty"` // layout position key
	Style    string  `json:"style,omitempty"    yaml:"style,omitempty"`    // layout style key
}

// Display duration bounds in milliseconds.
const (
	minGapDuration  = 1000
	maxGapDuration  = 5000
	minTailDuration = 2000
	maxTailDuration = 8000
)

// Validate drops cues starting after total (seconds) and returns the kept
// cues sorted by time, along with the dropped ones in their original order.
// Negative times are moved to 0.
func Validate(cues []Cue, total float64) (kept, dropped []Cue) {
	kept = make([]Cue, 0, len(cues))
	for _, c := range cues {
		c = c.clamped()
		if c.Time > total {
			dropped = append(dropped, c)
			continue
		}
		kept = append(kept, c)
	}
	sortCues(kept)
	return kept, dropped
}

// Negative reports whether c starts before the beginning of the audio.
func (c Cue) Negative() bool { return c.Time < 0 }

func (c Cue) clamped() Cue {
	c.Time = max(c.Time, 0)
	return c
}

// sortCues orders cues by time, keeping insertion order for ties.
func sortCues(cues []Cue) {
	sort.SliceStable(cues, func(i, j int) bool {
		return cues[i].Time < cues[j].Time
	})
}

func clamp(lo, hi, v float64) float64 {
	return max(lo, min(hi, v))
}
