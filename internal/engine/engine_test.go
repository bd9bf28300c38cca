package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/subcue/internal/callback"
	"github.com/llehouerou/subcue/internal/cue"
	"github.com/llehouerou/subcue/internal/media"
	"github.com/llehouerou/subcue/internal/overlay"
	"github.com/llehouerou/subcue/internal/protocol"
	"github.com/llehouerou/subcue/internal/timer"
)

var epoch = time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	clock    *timer.Fake
	backend  *media.MockBackend
	notifier *callback.Recorder
	surface  *overlay.Recorder
	logs     *syncBuffer
	e        *Engine
}

func newHarness(t *testing.T, configure ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		clock:    timer.NewFake(epoch),
		backend:  media.NewMockBackend(nil),
		notifier: &callback.Recorder{},
		surface:  &overlay.Recorder{},
		logs:     &syncBuffer{},
	}
	layout := overlay.DefaultLayout()
	opts := Options{
		Backend:      h.backend,
		Notifier:     h.notifier,
		Surface:      h.surface,
		Clock:        h.clock,
		Layout:       &layout,
		MasterVolume: 1,
		Logger:       slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
	for _, fn := range configure {
		fn(&opts)
	}
	h.e = New(opts)
	return h
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.e.Scheduler().RunDue()
}

func (h *harness) play(id string, cues ...cue.Cue) *media.Mock {
	h.e.Handle(protocol.PlayAudio{AudioID: id, AudioFile: id + ".mp3", Subtitles: cues})
	return h.backend.Last()
}

func (h *harness) shown() []protocol.SubtitleShown {
	var out []protocol.SubtitleShown
	for _, ev := range h.notifier.Named(protocol.EventSubtitleShown) {
		out = append(out, ev.(protocol.SubtitleShown))
	}
	return out
}

func loaded(m *media.Mock, d time.Duration) media.Event {
	ev := m.Event(media.Loaded)
	ev.Duration = d
	return ev
}

func abc() []cue.Cue {
	return []cue.Cue{{Time: 0, Text: "a"}, {Time: 2, Text: "b"}, {Time: 5, Text: "c"}}
}

func TestScenario_EstimatedDurations(t *testing.T) {
	h := newHarness(t)
	m := h.play("x", abc()...)
	h.e.HandleMediaEvent(loaded(m, 6*time.Second))

	h.e.Tick()
	m.SetPosition(2 * time.Second)
	h.e.Tick()
	m.SetPosition(5 * time.Second)
	h.e.Tick()

	shown := h.shown()
	require.Len(t, shown, 3)
	assert.Equal(t, protocol.SubtitleShown{Text: "a", Duration: 2000, SubtitleID: "x_sub_0", Timestamp: epoch.UnixMilli()}, shown[0])
	assert.Equal(t, "b", shown[1].Text)
	assert.InDelta(t, 3000.0, shown[1].Duration, 1e-9)
	assert.Equal(t, "c", shown[2].Text)
	assert.InDelta(t, 2000.0, shown[2].Duration, 1e-9)
	assert.Equal(t, "x_sub_2", h.e.Overlay().ActiveID())
}

func TestTick_RepeatedTicksShowOnce(t *testing.T) {
	h := newHarness(t)
	h.play("x", abc()...)

	for range 5 {
		h.e.Tick()
	}

	assert.Len(t, h.shown(), 1)
	assert.Len(t, h.surface.Frames, 1)
}

func TestTick_SkipsPausedSessions(t *testing.T) {
	h := newHarness(t)
	m := h.play("x", abc()...)
	h.e.Handle(protocol.ControlAudio{Control: protocol.ControlPause, AudioID: "x"})
	require.Equal(t, media.Paused, m.State())

	h.e.Tick()
	assert.Empty(t, h.shown())

	h.e.Handle(protocol.ControlAudio{Control: protocol.ControlPlay, AudioID: "x"})
	h.e.Tick()
	assert.Len(t, h.shown(), 1)
}

func TestTick_WithoutLayoutShowsNothing(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Layout = nil })
	h.play("x", abc()...)

	h.e.Tick()
	assert.Empty(t, h.shown())
	assert.Empty(t, h.surface.Frames)
}

func TestScenario_SameIDReplacesSession(t *testing.T) {
	h := newHarness(t)
	h.play("x", abc()...)
	h.play("x")

	assert.Equal(t, 1, h.e.Registry().Len())
	require.Len(t, h.backend.Opened, 2)
	assert.True(t, h.backend.Opened[0].Closed())
	assert.False(t, h.backend.Opened[1].Closed())
}

func TestScenario_SetVolumeUnknownSession(t *testing.T) {
	h := newHarness(t)

	assert.NotPanics(t, func() {
		h.e.Handle(protocol.ControlAudio{
			Control: protocol.ControlSetVolume,
			AudioID: "ghost",
			Params:  protocol.ControlParams{Volume: ptr(0.5)},
		})
	})

	assert.Empty(t, h.notifier.Events())
	assert.Contains(t, h.logs.String(), "unknown session")
}

func TestHandle_UnknownAction(t *testing.T) {
	h := newHarness(t)

	h.e.Handle(protocol.Unknown{Name: "explode"})

	assert.Contains(t, h.logs.String(), "unknown action")
	assert.Contains(t, h.logs.String(), "explode")
	assert.Empty(t, h.notifier.Events())
}

func TestHandle_UnknownControl(t *testing.T) {
	h := newHarness(t)
	h.play("x")

	h.e.Handle(protocol.ControlAudio{Control: "rewind", AudioID: "x"})

	assert.Contains(t, h.logs.String(), "unknown action")
	assert.Equal(t, 1, h.e.Registry().Len())
}

func TestHandle_Initialize(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Layout = nil })
	require.False(t, h.e.Overlay().Configured())

	h.e.Handle(protocol.Initialize{Config: overlay.DefaultLayout()})

	assert.True(t, h.e.Overlay().Configured())
	assert.True(t, h.e.Snapshot().ConfigLoaded)
}

func TestHandle_InitializeWithoutConfig(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Layout = nil })

	msg, err := protocol.Decode([]byte(`{"action":"initialize","config":null}`))
	require.NoError(t, err)
	h.e.Handle(msg)
	h.e.Handle(protocol.Initialize{})

	assert.False(t, h.e.Overlay().Configured())
	assert.Contains(t, h.logs.String(), "initialize ignored")

	h.e.Handle(protocol.ShowSubtitle{Text: "hi", Duration: 1000})
	assert.Empty(t, h.surface.Frames, "show is a no-op until configured")
	assert.Empty(t, h.shown())
}

func TestPlay_OpenFailureReportsAudioError(t *testing.T) {
	h := newHarness(t)
	h.backend.OpenErr = errors.New("no such file")

	h.e.Handle(protocol.PlayAudio{AudioID: "x", AudioFile: "missing.mp3"})

	assert.Equal(t, 0, h.e.Registry().Len())
	errs := h.notifier.Named(protocol.EventAudioError)
	require.Len(t, errs, 1)
	ae := errs[0].(protocol.AudioError)
	assert.Equal(t, "x", ae.AudioID)
	assert.Equal(t, "missing.mp3", ae.AudioFile)
	assert.Contains(t, ae.Error, "no such file")
}

func TestPlay_VolumeAndAutoplay(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.MasterVolume = 0.7 })
	no := false

	h.e.Handle(protocol.PlayAudio{AudioID: "x", Autoplay: &no})
	m := h.backend.Last()

	assert.Equal(t, media.Stopped, m.State())
	assert.InDelta(t, 0.49, m.Volume(), 1e-9)
}

func TestPlay_SubtitlesFileIsMerged(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.LoadCues = func(path string) ([]cue.Cue, error) {
			if path != "intro.lrc" {
				return nil, errors.New("not found")
			}
			return []cue.Cue{{Time: 1, Text: "from file"}}, nil
		}
	})

	h.e.Handle(protocol.PlayAudio{
		AudioID:       "x",
		Subtitles:     []cue.Cue{{Time: 3, Text: "inline"}},
		SubtitlesFile: "intro.lrc",
	})
	h.e.Handle(protocol.PlayAudio{AudioID: "y", SubtitlesFile: "missing.lrc"})

	x, _ := h.e.Registry().Get("x")
	cues := x.Track.Cues()
	require.Len(t, cues, 2)
	assert.Equal(t, "from file", cues[0].Text)
	assert.Equal(t, "inline", cues[1].Text)

	y, ok := h.e.Registry().Get("y")
	require.True(t, ok, "a broken cue file does not prevent playback")
	assert.Equal(t, 0, y.Track.Len())
	assert.Contains(t, h.logs.String(), "Failed to load cue sheet")
}

func TestMediaEvent_LoadedDropsLateCues(t *testing.T) {
	h := newHarness(t)
	m := h.play("x", cue.Cue{Time: 1, Text: "ok"}, cue.Cue{Time: 9, Text: "late"})

	h.e.HandleMediaEvent(loaded(m, 4*time.Second))

	s, _ := h.e.Registry().Get("x")
	assert.Equal(t, 1, s.Track.Len())
	assert.InDelta(t, 4.0, s.Track.Duration(), 1e-9)
	assert.Contains(t, h.logs.String(), "cue dropped")
}

func TestMediaEvent_UnknownSessionIgnored(t *testing.T) {
	h := newHarness(t)

	assert.NotPanics(t, func() {
		h.e.HandleMediaEvent(media.Event{SessionID: "ghost", Kind: media.Ended})
	})
	assert.Empty(t, h.notifier.Events())
}

func TestMediaEvent_ReplacedSessionLoadedIgnored(t *testing.T) {
	h := newHarness(t)
	old := h.play("x", cue.Cue{Time: 0, Text: "a"})
	h.play("x", cue.Cue{Time: 0, Text: "a"}, cue.Cue{Time: 30, Text: "late"})

	h.e.HandleMediaEvent(loaded(old, 10*time.Second))

	s, ok := h.e.Registry().Get("x")
	require.True(t, ok)
	assert.Equal(t, 2, s.Track.Len(), "the old file's duration must not drop the new cues")
	assert.Zero(t, s.Track.Duration())
	assert.Contains(t, h.logs.String(), "media event of replaced session dropped")
}

func TestMediaEvent_ReplacedSessionEndedIgnored(t *testing.T) {
	h := newHarness(t)
	old := h.play("x")
	fresh := h.play("x")
	require.True(t, old.Closed())

	h.e.HandleMediaEvent(old.Event(media.Ended))
	failed := old.Event(media.Failed)
	failed.Err = media.ErrPlaybackFailure
	h.e.HandleMediaEvent(failed)

	_, ok := h.e.Registry().Get("x")
	assert.True(t, ok, "the new session survives")
	assert.False(t, fresh.Closed())
	assert.Empty(t, h.notifier.Events())

	h.e.HandleMediaEvent(fresh.Event(media.Ended))
	assert.Len(t, h.notifier.Named(protocol.EventAudioEnded), 1)
	assert.Equal(t, 0, h.e.Registry().Len())
}

func TestMediaEvent_EndedNotifiesAndTearsDown(t *testing.T) {
	h := newHarness(t)
	h.e.Handle(protocol.PlayAudio{
		AudioID:     "x",
		AudioFile:   "x.mp3",
		Subtitles:   abc(),
		CustomEvent: json.RawMessage(`"quest:done"`),
	})
	m := h.backend.Last()
	h.e.Tick()
	require.Equal(t, overlay.Showing, h.e.Overlay().State())

	h.e.HandleMediaEvent(m.Event(media.Ended))

	ended := h.notifier.Named(protocol.EventAudioEnded)
	require.Len(t, ended, 1)
	data, err := json.Marshal(ended[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"audioId":"x","audioFile":"x.mp3","customEvent":"quest:done","serverEvent":null}`, string(data))

	assert.Equal(t, 0, h.e.Registry().Len())
	assert.True(t, m.Closed())
	assert.Equal(t, overlay.FadingOut, h.e.Overlay().State(), "the session's subtitle fades out")
}

func TestMediaEvent_FailedNotifiesAudioError(t *testing.T) {
	h := newHarness(t)
	m := h.play("x")

	failed := m.Event(media.Failed)
	failed.Err = media.ErrPlaybackFailure
	h.e.HandleMediaEvent(failed)

	errs := h.notifier.Named(protocol.EventAudioError)
	require.Len(t, errs, 1)
	assert.Equal(t, protocol.AudioError{AudioID: "x", Error: "playback failure", AudioFile: "x.mp3"}, errs[0])
	assert.Equal(t, 0, h.e.Registry().Len())
}

func TestControl_StopLeavesOtherSubtitle(t *testing.T) {
	h := newHarness(t)
	h.play("x", abc()...)
	h.play("y")
	h.e.Tick()
	require.Equal(t, "x_sub_0", h.e.Overlay().ActiveID())

	h.e.Handle(protocol.ControlAudio{Control: protocol.ControlStop, AudioID: "y"})
	assert.Equal(t, overlay.Showing, h.e.Overlay().State())

	h.e.Handle(protocol.ControlAudio{Control: protocol.ControlStop, AudioID: "x"})
	assert.Equal(t, overlay.FadingOut, h.e.Overlay().State())
	assert.Equal(t, 0, h.e.Registry().Len())
}

func TestControl_PlayFailureTearsDown(t *testing.T) {
	h := newHarness(t)
	m := h.play("x")
	m.Pause()
	m.SetPlayError(errors.New("device busy"))

	h.e.Handle(protocol.ControlAudio{Control: protocol.ControlPlay, AudioID: "x"})

	assert.Len(t, h.notifier.Named(protocol.EventAudioError), 1)
	assert.Equal(t, 0, h.e.Registry().Len())
}

func TestControl_SetVolume(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.MasterVolume = 0.5 })
	m := h.play("x")

	h.e.Handle(protocol.ControlAudio{Control: protocol.ControlSetVolume, AudioID: "x"})
	assert.InDelta(t, 0.25, m.Volume(), 1e-9, "missing volume defaults to 0.5")

	h.e.Handle(protocol.ControlAudio{
		Control: protocol.ControlSetVolume, AudioID: "x",
		Params: protocol.ControlParams{Volume: ptr(4.0)},
	})
	assert.InDelta(t, 0.5, m.Volume(), 1e-9)
}

func TestControl_SetTimeReplaysCues(t *testing.T) {
	h := newHarness(t)
	m := h.play("x", abc()...)
	h.e.Tick()
	require.Len(t, h.shown(), 1)

	h.e.Handle(protocol.ControlAudio{
		Control: protocol.ControlSetTime, AudioID: "x",
		Params: protocol.ControlParams{Time: ptr(-3.0)},
	})
	assert.Equal(t, []time.Duration{0}, m.SeekCalls())

	h.e.Tick()
	assert.Len(t, h.shown(), 2, "cue a shows again after the seek")
}

func TestControl_GetCurrentTime(t *testing.T) {
	h := newHarness(t)
	m := h.play("x")
	m.SetPosition(1500 * time.Millisecond)
	m.SetDuration(6 * time.Second)

	h.e.Handle(protocol.ControlAudio{Control: protocol.ControlGetCurrentTime, AudioID: "x"})

	resp := h.notifier.Named(protocol.EventAudioTimeResponse)
	require.Len(t, resp, 1)
	assert.Equal(t, protocol.AudioTimeResponse{AudioID: "x", CurrentTime: 1.5, Duration: 6}, resp[0])
}

func TestHandle_AddAndSyncSubtitle(t *testing.T) {
	h := newHarness(t)
	m := h.play("x", cue.Cue{Time: 0, Text: "a"})
	h.e.Tick()

	m.SetPosition(3 * time.Second)
	h.e.Handle(protocol.AddSubtitle{AudioID: "x", Subtitle: cue.Cue{Time: 2, Text: "added"}})
	h.e.Handle(protocol.SyncSubtitle{AudioID: "x", Time: 2.5, Subtitle: cue.Cue{Text: "synced"}})

	// The cursor reset replays "a" before reaching the new cues.
	h.e.Tick()
	h.e.Tick()
	h.e.Tick()

	var texts []string
	for _, s := range h.shown() {
		texts = append(texts, s.Text)
	}
	assert.Equal(t, []string{"a", "a", "added", "synced"}, texts)

	h.e.Handle(protocol.AddSubtitle{AudioID: "ghost", Subtitle: cue.Cue{Text: "lost"}})
	assert.Contains(t, h.logs.String(), "subtitle not added")
}

func TestHandle_StopAllResetsOverlay(t *testing.T) {
	h := newHarness(t)
	h.play("x", abc()...)
	h.play("y")
	h.e.Tick()
	require.Equal(t, overlay.Showing, h.e.Overlay().State())

	h.e.Handle(protocol.StopAll{})

	assert.Equal(t, 0, h.e.Registry().Len())
	assert.Equal(t, overlay.Hidden, h.e.Overlay().State())
	assert.Equal(t, 0, h.e.Scheduler().Len(), "no late task may bring the subtitle back")
	for _, m := range h.backend.Opened {
		assert.True(t, m.Closed())
	}
}

func TestHandle_MasterVolume(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.MasterVolume = 0.8 })
	m := h.play("x")
	require.InDelta(t, 0.64, m.Volume(), 1e-9)

	h.e.Handle(protocol.SetMasterVolume{Volume: 0.4})

	assert.InDelta(t, 0.32, m.Volume(), 1e-9)
	assert.InDelta(t, 0.4, h.e.Snapshot().MasterVolume, 1e-9)
}

func TestHandle_ManualSubtitle(t *testing.T) {
	h := newHarness(t)

	h.e.Handle(protocol.ShowSubtitle{Text: "hello", Duration: 1000, Position: "top", Style: "warning"})

	shown := h.shown()
	require.Len(t, shown, 1)
	assert.Equal(t, ManualSubtitleID, shown[0].SubtitleID)

	h.advance(time.Second)
	assert.Equal(t, overlay.FadingOut, h.e.Overlay().State())
	h.advance(overlay.DefaultFade)
	assert.Equal(t, overlay.Hidden, h.e.Overlay().State())

	h.e.Handle(protocol.ShowSubtitle{Text: "sticky"})
	h.e.Handle(protocol.HideSubtitle{})
	assert.Equal(t, overlay.FadingOut, h.e.Overlay().State())
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t)
	m := h.play("x", abc()...)
	m.SetPosition(time.Second)
	h.e.Tick()

	snap := h.e.Snapshot()
	assert.Equal(t, 1, snap.ActiveSessions)
	assert.Equal(t, "x_sub_0", snap.ActiveSubtitle)
	assert.Equal(t, "Showing", snap.OverlayState)
	require.Len(t, snap.Sessions, 1)
	assert.Equal(t, SessionInfo{
		ID: "x", AudioFile: "x.mp3", State: "Playing", Position: 1, Volume: 1,
		Cues: 3, Cursor: 0, StartedAt: epoch,
	}, snap.Sessions[0])
	assert.Equal(t, "sessions: 1 | master: 1.00 | subtitle: x_sub_0 | config: true", snap.String())
}

func TestRun_ProcessesSubmittedMessages(t *testing.T) {
	events := make(chan media.Event)
	backend := media.NewMockBackend(events)
	notifier := &callback.Recorder{}
	layout := overlay.DefaultLayout()
	local := &syncBuffer{}
	e := New(Options{
		Backend:      backend,
		Events:       events,
		Notifier:     notifier,
		Surface:      &overlay.Recorder{},
		Layout:       &layout,
		MasterVolume: 1,
		TickInterval: 5 * time.Millisecond,
		Fade:         10 * time.Millisecond,
		LocalLogger:  slog.New(slog.NewTextHandler(local, nil)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.NoError(t, e.Submit(ctx, protocol.PlayAudio{
		AudioID:   "x",
		Subtitles: []cue.Cue{{Time: 0, Text: "a", Duration: 20}},
	}))
	require.Eventually(t, func() bool {
		return len(notifier.Named(protocol.EventSubtitleShown)) == 1
	}, time.Second, 5*time.Millisecond)

	// The hide and fade tasks run off the scheduler deadline.
	require.Eventually(t, func() bool {
		snap, err := e.Query(ctx)
		return err == nil && snap.OverlayState == "Hidden"
	}, time.Second, 5*time.Millisecond)

	go backend.Emit(backend.Last().Event(media.Ended))
	require.Eventually(t, func() bool {
		return len(notifier.Named(protocol.EventAudioEnded)) == 1
	}, time.Second, 5*time.Millisecond)

	snap, err := e.DumpDebug(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.ActiveSessions)
	assert.Contains(t, local.String(), "debug info")

	cancel()
	require.NoError(t, <-done)

	assert.ErrorIs(t, e.Submit(context.Background(), protocol.StopAll{}), ErrStopped)
	_, err = e.Query(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestRun_ShutdownClosesSessions(t *testing.T) {
	backend := media.NewMockBackend(nil)
	e := New(Options{Backend: backend, Surface: &overlay.Recorder{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.NoError(t, e.Submit(ctx, protocol.PlayAudio{AudioID: "x"}))
	require.Eventually(t, func() bool {
		snap, err := e.Query(ctx)
		return err == nil && snap.ActiveSessions == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, backend.Last().Closed())
}

func ptr[T any](v T) *T { return &v }
