package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/subcue/internal/timer"
)

var epoch = time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

type harness struct {
	clock   *timer.Fake
	sched   *timer.Scheduler
	surface *Recorder
	shown   []Shown
	c       *Controller
}

func newHarness(t *testing.T, configured bool) *harness {
	t.Helper()
	h := &harness{
		clock:   timer.NewFake(epoch),
		surface: &Recorder{},
	}
	h.sched = timer.New(h.clock)
	h.c = New(h.sched, h.surface, WithShownHook(func(s Shown) { h.shown = append(h.shown, s) }))
	if configured {
		h.c.SetLayout(DefaultLayout())
	}
	return h
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.sched.RunDue()
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Hidden", Hidden.String())
	assert.Equal(t, "Showing", Showing.String())
	assert.Equal(t, "FadingOut", FadingOut.String())
	assert.Equal(t, "Unknown", State(42).String())
}

func TestShow_WithoutLayoutIsNoop(t *testing.T) {
	h := newHarness(t, false)

	assert.False(t, h.c.Show("hi", 1000, "bottom", "default", "x"))
	assert.Equal(t, Hidden, h.c.State())
	assert.Empty(t, h.surface.Frames)
	assert.Empty(t, h.shown)
	assert.Equal(t, 0, h.sched.Len())
}

func TestShow_TimedLifecycle(t *testing.T) {
	h := newHarness(t, true)

	require.True(t, h.c.Show("hello", 1000, "top", "warning", "a_sub_0"))
	assert.Equal(t, Showing, h.c.State())
	assert.Equal(t, "a_sub_0", h.c.ActiveID())
	assert.Equal(t, epoch.Add(time.Second), h.c.ExpiresAt())

	f, _ := h.surface.Last()
	assert.Equal(t, "hello", f.Text)
	assert.Equal(t, Placement{X: 50, Y: 10}, f.Placement)
	assert.Equal(t, "#ffd84d", f.Style.Color)

	require.Len(t, h.shown, 1)
	assert.Equal(t, Shown{ID: "a_sub_0", Text: "hello", Duration: 1000, At: epoch}, h.shown[0])

	h.advance(999 * time.Millisecond)
	assert.Equal(t, Showing, h.c.State())

	h.advance(time.Millisecond)
	assert.Equal(t, FadingOut, h.c.State())
	assert.Equal(t, "a_sub_0", h.c.ActiveID())

	h.advance(DefaultFade)
	assert.Equal(t, Hidden, h.c.State())
	assert.Empty(t, h.c.ActiveID())
	assert.Equal(t, 1, h.surface.Clears)
}

func TestSetLayout_EmptyIgnored(t *testing.T) {
	h := newHarness(t, false)

	assert.False(t, h.c.SetLayout(Layout{}))
	assert.False(t, h.c.Configured())
	assert.False(t, h.c.Show("hi", 1000, "", "", "x"))
	assert.Empty(t, h.surface.Frames)

	require.True(t, h.c.SetLayout(DefaultLayout()))
	assert.False(t, h.c.SetLayout(Layout{Positions: map[string]Placement{}}))
	assert.True(t, h.c.Configured(), "an empty layout keeps the installed one")
}

func TestShow_HugeDurationStays(t *testing.T) {
	h := newHarness(t, true)

	h.c.Show("long", 1e13, "", "", "id")
	h.advance(time.Millisecond)

	assert.Equal(t, Showing, h.c.State())
	assert.True(t, h.c.ExpiresAt().After(epoch.Add(24*time.Hour)))
}

func TestShow_UnknownKeysFallBack(t *testing.T) {
	h := newHarness(t, true)

	h.c.Show("x", 0, "nowhere", "fancy", "id")

	f, _ := h.surface.Last()
	assert.Equal(t, DefaultLayout().Positions[DefaultPosition], f.Placement)
	assert.Equal(t, DefaultLayout().Styles[DefaultStyle], f.Style)
}

func TestShow_ZeroDurationStays(t *testing.T) {
	h := newHarness(t, true)

	h.c.Show("sticky", 0, "", "", "manual_subtitle")
	assert.True(t, h.c.ExpiresAt().IsZero())
	assert.Equal(t, 0, h.sched.Len())

	h.advance(time.Hour)
	assert.Equal(t, Showing, h.c.State())
}

func TestShow_PreemptsPendingHide(t *testing.T) {
	h := newHarness(t, true)

	h.c.Show("first", 500, "", "", "1")
	h.advance(400 * time.Millisecond)
	h.c.Show("second", 500, "", "", "2")

	// The first hide would have fired here.
	h.advance(200 * time.Millisecond)
	assert.Equal(t, Showing, h.c.State())
	assert.Equal(t, "2", h.c.ActiveID())
	assert.Equal(t, 1, h.sched.Len())
}

func TestShow_DuringFadeCancelsFade(t *testing.T) {
	h := newHarness(t, true)

	h.c.Show("first", 100, "", "", "1")
	h.advance(100 * time.Millisecond)
	require.Equal(t, FadingOut, h.c.State())

	h.c.Show("second", 0, "", "", "2")
	h.advance(time.Second)

	assert.Equal(t, Showing, h.c.State())
	assert.Equal(t, "2", h.c.ActiveID())
	assert.Equal(t, 0, h.surface.Clears, "stale fade must not clear the new subtitle")
}

func TestHide_TwiceSingleFade(t *testing.T) {
	h := newHarness(t, true)
	h.c.Show("x", 0, "", "", "id")

	h.c.Hide()
	h.advance(100 * time.Millisecond)
	h.c.Hide()

	assert.Equal(t, FadingOut, h.c.State())
	assert.Equal(t, 1, h.sched.Len())

	h.advance(DefaultFade)
	assert.Equal(t, Hidden, h.c.State())
	assert.Equal(t, 1, h.surface.Clears)

	h.advance(time.Second)
	assert.Equal(t, 1, h.surface.Clears)
}

func TestHide_WhileHidden(t *testing.T) {
	h := newHarness(t, true)

	h.c.Hide()
	assert.Equal(t, FadingOut, h.c.State())

	h.advance(DefaultFade)
	assert.Equal(t, Hidden, h.c.State())
}

func TestReset_CancelsEverything(t *testing.T) {
	h := newHarness(t, true)
	h.c.Show("x", 1000, "", "", "id")

	h.c.Reset()

	assert.Equal(t, Hidden, h.c.State())
	assert.Empty(t, h.c.ActiveID())
	assert.Equal(t, 0, h.sched.Len())
	assert.Equal(t, 1, h.surface.Clears)
}

func TestWithFade(t *testing.T) {
	h := newHarness(t, true)
	h.c = New(h.sched, h.surface, WithFade(time.Second))
	h.c.SetLayout(DefaultLayout())

	h.c.Hide()
	h.advance(DefaultFade)
	assert.Equal(t, FadingOut, h.c.State())
	h.advance(time.Second)
	assert.Equal(t, Hidden, h.c.State())
}

func TestLayout_Resolve(t *testing.T) {
	l := Layout{Positions: map[string]Placement{"top": {X: 1, Y: 2}}}

	p, _, ok := l.Resolve("top", "default")
	assert.False(t, ok, "style table is empty")
	assert.Equal(t, Placement{X: 1, Y: 2}, p)

	assert.True(t, Layout{}.IsZero())
	assert.False(t, DefaultLayout().IsZero())
}
