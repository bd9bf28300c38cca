package overlay

import (
	"log/slog"

	"github.com/llehouerou/subcue/internal/logging"
)

// LogSurface is a headless surface that writes transitions to a logger.
type LogSurface struct {
	logger *slog.Logger
}

// NewLogSurface creates a surface logging at info level.
func NewLogSurface(logger *slog.Logger) *LogSurface {
	return &LogSurface{logger: logging.NewComponentLogger(logger, "surface")}
}

func (s *LogSurface) Render(f Frame) {
	s.logger.Info("subtitle on",
		logging.String("subtitle_id", f.ID),
		logging.String("text", f.Text),
		logging.Float64("x", f.Placement.X),
		logging.Float64("y", f.Placement.Y),
	)
}

func (s *LogSurface) FadeOut(id string) {
	s.logger.Debug("subtitle fading", logging.String("subtitle_id", id))
}

func (s *LogSurface) Clear() {
	s.logger.Debug("subtitle off")
}

// Recorder is a surface that records calls, for tests.
type Recorder struct {
	Frames []Frame
	Fades  []string
	Clears int
}

func (r *Recorder) Render(f Frame)    { r.Frames = append(r.Frames, f) }
func (r *Recorder) FadeOut(id string) { r.Fades = append(r.Fades, id) }
func (r *Recorder) Clear()            { r.Clears++ }

// Last returns the last rendered frame.
func (r *Recorder) Last() (Frame, bool) {
	if len(r.Frames) == 0 {
		return Frame{}, false
	}
	return r.Frames[len(r.Frames)-1], true
}

var (
	_ Surface = (*LogSurface)(nil)
	_ Surface = (*Recorder)(nil)
)
