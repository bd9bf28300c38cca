package engine

import (
	"fmt"

	"github.com/llehouerou/subcue/internal/errmsg"
	"github.com/llehouerou/subcue/internal/logging"
	"github.com/llehouerou/subcue/internal/protocol"
	"github.com/llehouerou/subcue/internal/session"
)

// Handle applies one inbound message. Failures are logged and, for playback
// failures, reported to the host; nothing is returned to the sender.
func (e *Engine) Handle(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.Initialize:
		if !e.overlay.SetLayout(m.Config) {
			e.logger.Warn("initialize ignored, configuration is empty",
				logging.Bool("configured", e.overlay.Configured()),
			)
			return
		}
		e.logger.Info("configuration loaded",
			logging.Int("positions", len(m.Config.Positions)),
			logging.Int("styles", len(m.Config.Styles)),
		)
	case protocol.PlayAudio:
		e.playAudio(m)
	case protocol.ControlAudio:
		e.controlAudio(m)
	case protocol.AddSubtitle:
		if err := e.registry.InsertCue(m.AudioID, m.Subtitle); err != nil {
			e.logger.Warn("subtitle not added", logging.Session(m.AudioID), logging.Error(err))
			return
		}
		e.logger.Info("subtitle added", logging.Session(m.AudioID), logging.String("text", m.Subtitle.Text))
	case protocol.StopAll:
		n := e.registry.DestroyAll()
		e.overlay.Reset()
		e.logger.Info("all audio stopped", logging.Int("count", n))
	case protocol.SetMasterVolume:
		level := e.registry.SetMasterVolume(m.Volume)
		e.logger.Info("master volume set", logging.Float64("volume", level))
	case protocol.ShowSubtitle:
		e.overlay.Show(m.Text, m.Duration, m.Position, m.Style, ManualSubtitleID)
	case protocol.HideSubtitle:
		e.overlay.Hide()
	case protocol.SyncSubtitle:
		if err := e.registry.ResyncCue(m.AudioID, m.Time, m.Subtitle); err != nil {
			e.logger.Warn("subtitle not synced", logging.Session(m.AudioID), logging.Error(err))
			return
		}
		e.logger.Info("subtitle synced",
			logging.Session(m.AudioID),
			logging.Float64("time", m.Time),
			logging.String("text", m.Subtitle.Text),
		)
	case protocol.Unknown:
		e.logger.Error("message ignored",
			logging.Error(fmt.Errorf("%w: %q", protocol.ErrUnknownAction, m.Name)),
		)
	default:
		e.logger.Error("message ignored",
			logging.Error(fmt.Errorf("%w: %T", protocol.ErrUnknownAction, msg)),
		)
	}
}

func (e *Engine) playAudio(m protocol.PlayAudio) {
	cues := m.Subtitles
	if m.SubtitlesFile != "" {
		loaded, err := e.loadCues(m.SubtitlesFile)
		if err != nil {
			e.logger.Warn(errmsg.FormatWith(errmsg.OpCueLoad, m.SubtitlesFile, err), logging.Session(m.AudioID))
		} else {
			cues = append(append(cues[:0:0], cues...), loaded...)
		}
	}

	s, err := e.registry.Create(session.Spec{
		ID:          m.AudioID,
		AudioFile:   m.AudioFile,
		Cues:        cues,
		Autoplay:    m.Autoplay,
		Volume:      m.Volume,
		Loop:        m.Loop,
		CustomEvent: m.CustomEvent,
		ServerEvent: m.ServerEvent,
	})
	if err != nil {
		e.logger.Error(errmsg.FormatWith(errmsg.OpPlaybackStart, m.AudioFile, err), logging.Session(m.AudioID))
		e.notifier.Notify(protocol.AudioError{AudioID: m.AudioID, Error: errorText(err), AudioFile: m.AudioFile})
		return
	}
	e.logger.Info("audio started",
		logging.Session(s.ID),
		logging.Int("cues", s.Track.Len()),
		logging.String("state", s.Media.State().String()),
	)
}

func (e *Engine) controlAudio(m protocol.ControlAudio) {
	s, ok := e.registry.Get(m.AudioID)
	if !ok {
		e.logger.Warn("control ignored",
			logging.String("control", m.Control),
			logging.Error(fmt.Errorf("%w: %s", session.ErrUnknownSession, m.AudioID)),
		)
		return
	}

	switch m.Control {
	case protocol.ControlPlay:
		if err := s.Media.Play(); err != nil {
			e.playbackFailed(s.ID, s.AudioFile, err)
		}
	case protocol.ControlPause:
		s.Media.Pause()
	case protocol.ControlStop:
		e.stopSession(s.ID)
	case protocol.ControlSetVolume:
		level, _ := e.registry.SetVolume(s.ID, m.Params.VolumeOr(protocol.DefaultControlVolume))
		e.logger.Debug("volume set", logging.Session(s.ID), logging.Float64("volume", level))
	case protocol.ControlSetTime:
		at := m.Params.TimeOr(0)
		s.Seek(at)
		e.logger.Info("audio time set", logging.Session(s.ID), logging.Float64("time", max(at, 0)))
	case protocol.ControlGetCurrentTime:
		e.notifier.Notify(protocol.AudioTimeResponse{
			AudioID:     s.ID,
			CurrentTime: s.Position(),
			Duration:    s.Media.Duration().Seconds(),
		})
	default:
		e.logger.Error("control ignored", logging.Session(s.ID), logging.Error(protocol.ValidateControl(m.Control)))
	}
}
