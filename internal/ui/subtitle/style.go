package subtitle

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/subcue/internal/overlay"
)

// boldFromPixels is the font size from which text is drawn bold. Terminals
// have a single font size, so weight is the only way to show emphasis.
const boldFromPixels = 26

// textStyle maps an overlay style onto lipgloss. The font family has no
// terminal equivalent and is ignored.
func textStyle(st overlay.Style, fading bool) lipgloss.Style {
	s := lipgloss.NewStyle().Padding(0, 1)
	if fg, ok := parseColor(st.Color); ok {
		s = s.Foreground(fg)
	}
	if bg, ok := parseColor(st.BackgroundColor); ok {
		s = s.Background(bg)
	}
	if fontPixels(st.FontSize) >= boldFromPixels {
		s = s.Bold(true)
	}
	if fading {
		s = s.Faint(true)
	}
	return s
}
