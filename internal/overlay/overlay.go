// Package overlay drives the single on-screen subtitle surface.
//
// The surface moves through three states:
//
//	┌──────────┐  show   ┌──────────┐
//	│  Hidden  │────────▶│ Showing  │◀──┐ show (preempts)
//	└──────────┘         └──────────┘───┘
//	     ▲                    │ hide / duration elapsed
//	     │ fade done          ▼
//	     │              ┌───────────┐
//	     └──────────────│ FadingOut │
//	                    └───────────┘
//
// Show and Hide are valid from any state. Both cancel whatever hide or fade
// task is pending before scheduling their own.
package overlay

import (
	"log/slog"
	"math"
	"time"

	"github.com/llehouerou/subcue/internal/logging"
	"github.com/llehouerou/subcue/internal/timer"
)

// maxDurationMs is the longest display time a time.Duration can hold.
const maxDurationMs = float64(math.MaxInt64 / int64(time.Millisecond))

// DefaultFade is how long the fade-out lasts before the surface is cleared.
const DefaultFade = 300 * time.Millisecond

// State is the overlay state.
type State int

const (
	Hidden State = iota
	Showing
	FadingOut
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Hidden:
		return "Hidden"
	case Showing:
		return "Showing"
	case FadingOut:
		return "FadingOut"
	default:
		return "Unknown"
	}
}

// Frame is what the surface draws for one subtitle.
type Frame struct {
	ID        string
	Text      string
	Placement Placement
	Style     Style
}

// Surface renders overlay transitions.
type Surface interface {
	Render(f Frame)
	FadeOut(id string)
	Clear()
}

// Shown describes a subtitle that has just been displayed.
type Shown struct {
	ID       string
	Text     string
	Duration float64 // ms
	At       time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithFade overrides the fade-out duration.
func WithFade(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.fade = d
		}
	}
}

// WithShownHook registers fn to be called after every successful Show.
func WithShownHook(fn func(Shown)) Option {
	return func(c *Controller) { c.onShown = fn }
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// Controller is the display lifecycle state machine.
//
// A Controller is not safe for concurrent use; it lives on the engine loop.
type Controller struct {
	sched   *timer.Scheduler
	surface Surface
	layout  *Layout
	fade    time.Duration
	onShown func(Shown)
	logger  *slog.Logger

	hideTask *timer.Slot
	fadeTask *timer.Slot

	state     State
	activeID  string
	expiresAt time.Time
}

// New creates a hidden controller with no layout.
func New(sched *timer.Scheduler, surface Surface, opts ...Option) *Controller {
	c := &Controller{
		sched:    sched,
		surface:  surface,
		fade:     DefaultFade,
		hideTask: timer.NewSlot(sched),
		fadeTask: timer.NewSlot(sched),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	return c
}

// SetLayout installs the position and style tables. An empty layout is
// ignored, leaving the controller as it was; SetLayout reports whether l was
// installed.
func (c *Controller) SetLayout(l Layout) bool {
	if l.IsZero() {
		return false
	}
	c.layout = &l
	return true
}

// Configured reports whether a layout has been installed.
func (c *Controller) Configured() bool { return c.layout != nil }

// State returns the current state.
func (c *Controller) State() State { return c.state }

// ActiveID returns the id of the displayed or fading subtitle.
func (c *Controller) ActiveID() string { return c.activeID }

// ExpiresAt returns when the current subtitle is due to hide. The zero time
// means it stays until hidden explicitly.
func (c *Controller) ExpiresAt() time.Time { return c.expiresAt }

// Show displays text, replacing anything on screen. A positive durationMs
// schedules the hide; otherwise the text stays until Hide. Show does nothing
// before a layout is installed and reports whether it displayed anything.
func (c *Controller) Show(text string, durationMs float64, position, style, id string) bool {
	if c.layout == nil {
		c.logger.Debug("subtitle skipped, layout not initialized", logging.String("subtitle_id", id))
		return false
	}

	placement, st, ok := c.layout.Resolve(position, style)
	if !ok {
		c.logger.Warn("layout has no entry for subtitle",
			logging.String("position", position),
			logging.String("style", style),
		)
	}

	c.hideTask.Stop()
	c.fadeTask.Stop()

	c.surface.Render(Frame{ID: id, Text: text, Placement: placement, Style: st})
	c.state = Showing
	c.activeID = id
	c.expiresAt = time.Time{}

	now := c.sched.Clock().Now()
	if durationMs > 0 {
		d := time.Duration(min(durationMs, maxDurationMs) * float64(time.Millisecond))
		c.expiresAt = now.Add(d)
		c.hideTask.Arm(d, c.Hide)
	}

	if c.onShown != nil {
		c.onShown(Shown{ID: id, Text: text, Duration: durationMs, At: now})
	}
	return true
}

// Hide starts the fade-out of the current subtitle. Calling it again while
// fading restarts the fade, so a single clear happens in the end.
func (c *Controller) Hide() {
	c.hideTask.Stop()
	c.fadeTask.Stop()

	c.surface.FadeOut(c.activeID)
	c.state = FadingOut
	c.expiresAt = time.Time{}
	c.fadeTask.Arm(c.fade, c.finishFade)
}

func (c *Controller) finishFade() {
	c.surface.Clear()
	c.state = Hidden
	c.activeID = ""
}

// Reset cancels pending tasks and clears the surface immediately.
func (c *Controller) Reset() {
	c.hideTask.Stop()
	c.fadeTask.Stop()
	c.surface.Clear()
	c.state = Hidden
	c.activeID = ""
	c.expiresAt = time.Time{}
}
