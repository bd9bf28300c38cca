package media

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/llehouerou/subcue/internal/errmsg"
	"github.com/llehouerou/subcue/internal/logging"
)

// Supported audio file extensions.
const (
	extMP3  = ".mp3"
	extFLAC = ".flac"
	extOGG  = ".ogg"
	extWAV  = ".wav"
)

// speakerRate is the output rate every stream is resampled to.
const speakerRate = beep.SampleRate(44100)

// BeepBackend plays local audio files through the system speaker. Every
// opened track is mixed into the same speaker output.
type BeepBackend struct {
	events chan<- Event
	logger *slog.Logger

	initOnce sync.Once
	initErr  error
}

// NewBeepBackend creates a backend reporting to events.
func NewBeepBackend(events chan<- Event, logger *slog.Logger) *BeepBackend {
	return &BeepBackend{
		events: events,
		logger: logging.NewComponentLogger(logger, "media"),
	}
}

// IsAudioFile reports whether path has a supported extension.
func IsAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case extMP3, extFLAC, extOGG, extWAV:
		return true
	}
	return false
}

// Open decodes the file and adds it, paused, to the speaker mix. The Loaded
// event carrying the duration is sent right after.
func (b *BeepBackend) Open(req Request) (Media, error) {
	path := strings.TrimPrefix(req.Path, "file://")

	streamer, format, err := decodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPlaybackFailure, path, err)
	}

	b.initOnce.Do(func() {
		b.initErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	if b.initErr != nil {
		streamer.Close()
		return nil, fmt.Errorf("%w: init speaker: %w", ErrPlaybackFailure, b.initErr)
	}

	var playStreamer beep.Streamer = streamer
	if req.Loop {
		looped, err := beep.Loop2(streamer)
		if err != nil {
			streamer.Close()
			return nil, fmt.Errorf("%w: loop %s: %w", ErrPlaybackFailure, path, err)
		}
		playStreamer = looped
	}
	if format.SampleRate != speakerRate {
		playStreamer = beep.Resample(4, format.SampleRate, speakerRate, playStreamer)
	}

	t := &beepTrack{
		backend:    b,
		sessionID:  req.SessionID,
		generation: req.Generation,
		source:     req.Path,
		streamer:   streamer,
		format:     format,
		duration:   format.SampleRate.D(streamer.Len()),
		state:      Stopped,
	}
	t.ctrl = &beep.Ctrl{Streamer: playStreamer, Paused: true}
	t.volume = &effects.Volume{Streamer: t.ctrl, Base: 2}
	t.SetVolume(req.Volume)

	speaker.Play(beep.Seq(t.volume, beep.Callback(t.finished)))

	b.logger.Debug("audio opened",
		logging.Session(req.SessionID),
		logging.String("path", path),
		logging.Duration("duration", t.duration),
	)
	b.emit(t.event(Loaded))
	return t, nil
}

// emit delivers an event without blocking the caller, which may be the
// speaker goroutine.
func (b *BeepBackend) emit(ev Event) {
	if b.events == nil {
		return
	}
	go func() { b.events <- ev }()
}

// decodeFile opens path and picks a decoder from its extension.
func decodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsAudioFile(path) {
		return nil, beep.Format{}, fmt.Errorf("unsupported format: %s", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext {
	case extMP3:
		streamer, format, err = decodeMP3(f)
	case extFLAC:
		// Some taggers prepend an ID3v2 tag the FLAC decoder doesn't expect
		if err := skipID3v2(f); err != nil {
			f.Close()
			return nil, beep.Format{}, err
		}
		streamer, format, err = flac.Decode(f)
	case extOGG:
		streamer, format, err = vorbis.Decode(f)
	case extWAV:
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, err
	}
	return streamer, format, nil
}

// skipID3v2 skips an ID3v2 tag if present at the beginning of the file.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := io.ReadFull(r, header)
	if err != nil && n < len(header) {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}
	if string(header[0:3]) != "ID3" {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}

	// Syncsafe size: 7 bits per byte
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
	_, err = r.Seek(10+size, io.SeekStart)
	return err
}

// beepTrack is one opened file in the speaker mix.
type beepTrack struct {
	backend    *BeepBackend
	sessionID  string
	generation uint64
	source     string

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	duration time.Duration

	state  State
	level  float64
	closed atomic.Bool
}

func (t *beepTrack) Play() error {
	if t.closed.Load() {
		return fmt.Errorf("%w: %s is closed", ErrPlaybackFailure, t.source)
	}
	speaker.Lock()
	t.ctrl.Paused = false
	speaker.Unlock()
	t.state = Playing
	return nil
}

func (t *beepTrack) Pause() {
	if t.state != Playing || t.closed.Load() {
		return
	}
	speaker.Lock()
	t.ctrl.Paused = true
	speaker.Unlock()
	t.state = Paused
}

// Close drops the track from the mix and releases the file. The end
// callback of a closed track emits nothing.
func (t *beepTrack) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	speaker.Lock()
	t.ctrl.Streamer = nil
	speaker.Unlock()
	t.state = Stopped
	return t.streamer.Close()
}

func (t *beepTrack) State() State { return t.state }

func (t *beepTrack) Source() string { return t.source }

// SetVolume sets the volume level (0.0 to 1.0).
func (t *beepTrack) SetVolume(level float64) {
	level = max(0, min(1, level))
	t.level = level
	speaker.Lock()
	t.volume.Volume = levelToVolume(level)
	t.volume.Silent = level <= 0
	speaker.Unlock()
}

func (t *beepTrack) Volume() float64 { return t.level }

func (t *beepTrack) Position() time.Duration {
	if t.closed.Load() {
		return 0
	}
	speaker.Lock()
	pos := t.format.SampleRate.D(t.streamer.Position())
	speaker.Unlock()
	return pos
}

func (t *beepTrack) Duration() time.Duration { return t.duration }

func (t *beepTrack) SeekTo(pos time.Duration) {
	if t.closed.Load() {
		return
	}
	n := t.format.SampleRate.N(max(pos, 0))
	speaker.Lock()
	n = min(n, max(t.streamer.Len()-1, 0))
	err := t.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		t.backend.logger.Warn(errmsg.FormatWith(errmsg.OpPlaybackSeek, t.source, err), logging.Session(t.sessionID))
	}
}

// finished runs on the speaker goroutine when the stream is drained.
func (t *beepTrack) finished() {
	if t.closed.Load() {
		return
	}
	if err := t.streamer.Err(); err != nil {
		ev := t.event(Failed)
		ev.Err = fmt.Errorf("%w: %w", ErrPlaybackFailure, err)
		t.backend.emit(ev)
		return
	}
	t.backend.emit(t.event(Ended))
}

func (t *beepTrack) event(kind EventKind) Event {
	ev := Event{SessionID: t.sessionID, Generation: t.generation, Kind: kind}
	if kind == Loaded {
		ev.Duration = t.duration
	}
	return ev
}

// levelToVolume converts a 0.0-1.0 level to beep's base-2 Volume value.
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> -10 (essentially silent).
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}

var _ Backend = (*BeepBackend)(nil)
