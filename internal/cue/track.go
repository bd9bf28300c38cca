package cue

// noCursor marks a track on which no cue has been triggered yet.
const noCursor = -1

// Track is the ordered cue list of one playback session and the cursor of
// the last cue already triggered.
//
// A Track is not safe for concurrent use; it is owned by the engine loop.
type Track struct {
	cues   []Cue
	cursor int
	total  float64
}

// NewTrack creates a track from cues, sorted by time. Negative times are
// moved to 0.
func NewTrack(cues []Cue) *Track {
	t := &Track{
		cues:   make([]Cue, 0, len(cues)),
		cursor: noCursor,
	}
	for _, c := range cues {
		t.cues = append(t.cues, c.clamped())
	}
	sortCues(t.cues)
	return t
}

// Len returns the number of cues.
func (t *Track) Len() int { return len(t.cues) }

// Cursor returns the index of the last triggered cue, or -1.
func (t *Track) Cursor() int { return t.cursor }

// Duration returns the known audio duration in seconds (0 when unknown).
func (t *Track) Duration() float64 { return t.total }

// Cues returns a copy of the cue list.
func (t *Track) Cues() []Cue {
	return append([]Cue(nil), t.cues...)
}

// At returns the cue at index i.
func (t *Track) At(i int) (Cue, bool) {
	if i < 0 || i >= len(t.cues) {
		return Cue{}, false
	}
	return t.cues[i], true
}

// SetDuration records the audio duration once the media reports it and
// drops the cues that start after it. The dropped cues are returned.
func (t *Track) SetDuration(total float64) []Cue {
	t.total = total
	kept, dropped := Validate(t.cues, total)
	t.cues = kept
	if t.cursor >= len(t.cues) {
		t.cursor = len(t.cues) - 1
	}
	return dropped
}

// Insert adds a cue and re-sorts the track. The cursor is reset, so cues
// already shown before the new one become due again.
func (t *Track) Insert(c Cue) {
	t.cues = append(t.cues, c.clamped())
	sortCues(t.cues)
	t.cursor = noCursor
}

// Resync moves c to the given time before inserting it.
func (t *Track) Resync(at float64, c Cue) {
	c.Time = at
	t.Insert(c)
}

// Seek resets the cursor after the playback position jumped.
func (t *Track) Seek() {
	t.cursor = noCursor
}

// Due returns the next cue to trigger at position now (seconds) and advances
// the cursor past it. At most one cue is returned per call; overdue cues
// behind it are returned by the following calls.
func (t *Track) Due(now float64) (int, Cue, bool) {
	next := t.cursor + 1
	if next >= len(t.cues) {
		return noCursor, Cue{}, false
	}
	c := t.cues[next]
	if c.Time*1000 > now*1000 {
		return noCursor, Cue{}, false
	}
	t.cursor = next
	return next, c, true
}

// Estimate returns a display duration in milliseconds for the cue at index i,
// based on the gap to the next cue or to the end of the audio.
func (t *Track) Estimate(i int) float64 {
	c, ok := t.At(i)
	if !ok {
		return minTailDuration
	}
	if next, ok := t.At(i + 1); ok {
		return clamp(minGapDuration, maxGapDuration, (next.Time-c.Time)*1000)
	}
	return clamp(minTailDuration, maxTailDuration, (t.total-c.Time)*1000)
}

// DisplayDuration returns the cue's explicit duration, or the estimate when
// it has none.
func (t *Track) DisplayDuration(i int) float64 {
	c, ok := t.At(i)
	if ok && c.Duration > 0 {
		return c.Duration
	}
	return t.Estimate(i)
}
