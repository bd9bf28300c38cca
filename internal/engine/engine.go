// Package engine owns the session registry, the overlay and the task
// scheduler, and runs the single event loop every mutation happens on.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/llehouerou/subcue/internal/callback"
	"github.com/llehouerou/subcue/internal/cue"
	"github.com/llehouerou/subcue/internal/logging"
	"github.com/llehouerou/subcue/internal/media"
	"github.com/llehouerou/subcue/internal/overlay"
	"github.com/llehouerou/subcue/internal/protocol"
	"github.com/llehouerou/subcue/internal/session"
	"github.com/llehouerou/subcue/internal/timer"
)

// ManualSubtitleID is the overlay id of subtitles shown by showSubtitle.
const ManualSubtitleID = "manual_subtitle"

// DefaultTickInterval is how often playing sessions are polled for due cues.
const DefaultTickInterval = 250 * time.Millisecond

// ErrStopped is returned by Submit and Query once Run has returned.
var ErrStopped = errors.New("engine stopped")

// Options configures an Engine.
type Options struct {
	Backend  media.Backend
	Events   <-chan media.Event
	Notifier callback.Notifier
	Surface  overlay.Surface
	Clock    timer.Clock

	// Layout, when set, is installed before any initialize message.
	Layout       *overlay.Layout
	MasterVolume float64
	TickInterval time.Duration
	Fade         time.Duration

	// Logger may mirror records to the host. LocalLogger never does and
	// receives debug dumps.
	Logger      *slog.Logger
	LocalLogger *slog.Logger

	// LoadCues reads a cue file named by a play request.
	LoadCues func(path string) ([]cue.Cue, error)
}

// Engine coordinates sessions, the overlay and callbacks.
//
// Handle, HandleMediaEvent, Tick and Snapshot must only be called from the
// goroutine running Run, or from a single goroutine when Run is not used.
// Submit and Query are safe for concurrent use.
type Engine struct {
	clock    timer.Clock
	sched    *timer.Scheduler
	overlay  *overlay.Controller
	registry *session.Registry
	notifier callback.Notifier
	events   <-chan media.Event
	tick     time.Duration
	loadCues func(string) ([]cue.Cue, error)

	logger *slog.Logger
	local  *slog.Logger

	inbox   chan protocol.Message
	queries chan query
	done    chan struct{}
}

type query struct {
	dump  bool
	reply chan Snapshot
}

// New builds an engine. Backend is required; other options have defaults.
func New(opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = timer.Real()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = callback.Nop{}
	}
	surface := opts.Surface
	if surface == nil {
		surface = overlay.NewLogSurface(opts.LocalLogger)
	}
	tick := opts.TickInterval
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	loadCues := opts.LoadCues
	if loadCues == nil {
		loadCues = cue.Load
	}
	local := opts.LocalLogger
	if local == nil {
		local = opts.Logger
	}

	e := &Engine{
		clock:    clock,
		sched:    timer.New(clock),
		notifier: notifier,
		events:   opts.Events,
		tick:     tick,
		loadCues: loadCues,
		logger:   logging.NewComponentLogger(opts.Logger, "engine"),
		local:    logging.NewComponentLogger(local, "engine"),
		inbox:    make(chan protocol.Message, 64),
		queries:  make(chan query),
		done:     make(chan struct{}),
	}
	e.registry = session.NewRegistry(opts.Backend, opts.MasterVolume, opts.Logger).
		WithClock(clock.Now)
	e.overlay = overlay.New(e.sched, surface,
		overlay.WithFade(opts.Fade),
		overlay.WithShownHook(e.subtitleShown),
		overlay.WithLogger(logging.NewComponentLogger(opts.Logger, "overlay")),
	)
	if opts.Layout != nil {
		e.overlay.SetLayout(*opts.Layout)
	}
	return e
}

// Registry returns the session registry.
func (e *Engine) Registry() *session.Registry { return e.registry }

// Overlay returns the overlay controller.
func (e *Engine) Overlay() *overlay.Controller { return e.overlay }

// Scheduler returns the task scheduler driving overlay timers.
func (e *Engine) Scheduler() *timer.Scheduler { return e.sched }

func (e *Engine) subtitleShown(s overlay.Shown) {
	e.notifier.Notify(protocol.SubtitleShown{
		Text:       s.Text,
		Duration:   s.Duration,
		SubtitleID: s.ID,
		Timestamp:  s.At.UnixMilli(),
	})
}

// Tick shows the next due cue of every playing session.
func (e *Engine) Tick() {
	for _, id := range e.registry.IDs() {
		s, _ := e.registry.Get(id)
		if !s.Playing() {
			continue
		}
		i, c, ok := s.Due()
		if !ok {
			continue
		}
		e.overlay.Show(c.Text, s.Track.DisplayDuration(i), c.Position, c.Style, s.SubtitleID(i))
	}
}

// HandleMediaEvent applies an event reported by a session's media.
func (e *Engine) HandleMediaEvent(ev media.Event) {
	s, ok := e.registry.Get(ev.SessionID)
	if !ok {
		e.logger.Debug("media event for unknown session dropped",
			logging.Session(ev.SessionID),
			logging.String(logging.FieldEventType, ev.Kind.String()),
		)
		return
	}
	if !s.Owns(ev) {
		e.logger.Debug("media event of replaced session dropped",
			logging.Session(ev.SessionID),
			logging.String(logging.FieldEventType, ev.Kind.String()),
		)
		return
	}

	switch ev.Kind {
	case media.Loaded:
		dropped := s.Track.SetDuration(ev.Duration.Seconds())
		for _, c := range dropped {
			e.logger.Warn("cue dropped",
				logging.Session(s.ID),
				logging.String("text", c.Text),
				logging.Float64("time", c.Time),
				logging.Error(cue.ErrCueOutOfRange),
			)
		}
		e.logger.Info("audio loaded",
			logging.Session(s.ID),
			logging.String("audio_file", s.AudioFile),
			logging.Duration("duration", ev.Duration),
		)
	case media.Ended:
		e.logger.Info("audio ended", logging.Session(s.ID))
		e.notifier.Notify(protocol.NewAudioEnded(s.ID, s.AudioFile, s.CustomEvent, s.ServerEvent))
		e.stopSession(s.ID)
	case media.Failed:
		e.playbackFailed(s.ID, s.AudioFile, ev.Err)
	}
}

// playbackFailed reports err to the host and tears the session down.
func (e *Engine) playbackFailed(id, audioFile string, err error) {
	e.logger.Error("audio error", logging.Session(id), logging.Error(err))
	e.notifier.Notify(protocol.AudioError{AudioID: id, Error: errorText(err), AudioFile: audioFile})
	e.stopSession(id)
}

// stopSession destroys a session and fades out its subtitle if it is the
// one on screen.
func (e *Engine) stopSession(id string) {
	if err := e.registry.Destroy(id); err != nil {
		e.logger.Debug("stop ignored", logging.Session(id), logging.Error(err))
		return
	}
	if e.overlay.State() == overlay.Showing && session.OwnsSubtitle(id, e.overlay.ActiveID()) {
		e.overlay.Hide()
	}
	e.logger.Info("audio stopped", logging.Session(id))
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// Run processes messages, media events, ticks and due tasks until ctx is
// done. Every session is destroyed on return.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	defer e.shutdown()

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	deadline := time.NewTimer(time.Hour)
	deadline.Stop()
	defer deadline.Stop()

	for {
		e.sched.RunDue()

		var due <-chan time.Time
		if next, ok := e.sched.NextDeadline(); ok {
			deadline.Reset(max(next.Sub(e.clock.Now()), 0))
			due = deadline.C
		}

		select {
		case <-ctx.Done():
			return nil
		case msg := <-e.inbox:
			e.Handle(msg)
		case ev := <-e.events:
			e.HandleMediaEvent(ev)
		case <-ticker.C:
			e.Tick()
		case <-due:
		case q := <-e.queries:
			snap := e.Snapshot()
			if q.dump {
				e.logDebug(snap)
			}
			q.reply <- snap
		}
	}
}

func (e *Engine) shutdown() {
	if n := e.registry.DestroyAll(); n > 0 {
		e.logger.Info("sessions closed on shutdown", logging.Int("count", n))
	}
	e.overlay.Reset()
	e.sched.CancelAll()
}

// Submit queues msg for the loop.
func (e *Engine) Submit(ctx context.Context, msg protocol.Message) error {
	select {
	case <-e.done:
		return ErrStopped
	default:
	}
	select {
	case e.inbox <- msg:
		return nil
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Query returns a snapshot taken on the loop.
func (e *Engine) Query(ctx context.Context) (Snapshot, error) {
	return e.query(ctx, false)
}

// DumpDebug logs a snapshot locally, never to the host, and returns it.
func (e *Engine) DumpDebug(ctx context.Context) (Snapshot, error) {
	return e.query(ctx, true)
}

func (e *Engine) query(ctx context.Context, dump bool) (Snapshot, error) {
	q := query{dump: dump, reply: make(chan Snapshot, 1)}
	select {
	case e.queries <- q:
	case <-e.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-q.reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}
