package subtitle

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/subcue/internal/overlay"
)

// RenderMsg asks the model to draw a subtitle.
type RenderMsg struct{ Frame overlay.Frame }

// FadeMsg marks the displayed subtitle as fading out.
type FadeMsg struct{ ID string }

// ClearMsg removes the subtitle.
type ClearMsg struct{}

// DebugMsg carries the debug summary to display.
type DebugMsg struct{ Text string }

// Surface forwards overlay transitions to a running program.
type Surface struct {
	send func(tea.Msg)
}

// NewSurface creates a surface sending to p.
func NewSurface(p *tea.Program) *Surface {
	return &Surface{send: p.Send}
}

// NewSurfaceFunc creates a surface sending through fn.
func NewSurfaceFunc(fn func(tea.Msg)) *Surface {
	return &Surface{send: fn}
}

func (s *Surface) Render(f overlay.Frame) { s.send(RenderMsg{Frame: f}) }
func (s *Surface) FadeOut(id string)      { s.send(FadeMsg{ID: id}) }
func (s *Surface) Clear()                 { s.send(ClearMsg{}) }

var _ overlay.Surface = (*Surface)(nil)
