// Package subtitle renders the overlay in the terminal with bubbletea.
package subtitle

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/subcue/internal/keymap"
	"github.com/llehouerou/subcue/internal/overlay"
)

// maxTextRatio bounds the subtitle width to a share of the terminal width.
const maxTextRatio = 0.8

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	debugStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f1a208"))
)

// Hooks connects the model to the engine. Both run inside tea commands.
type Hooks struct {
	// Debug returns the debug summary line.
	Debug func() string
	// Hide fades out the current subtitle.
	Hide func()
}

// Model is the terminal overlay.
type Model struct {
	hooks    Hooks
	resolver *keymap.Resolver

	width  int
	height int

	frame    *overlay.Frame
	fading   bool
	debug    string
	showHelp bool
	status   string
}

// New creates the model.
func New(hooks Hooks, status string) Model {
	return Model{
		hooks:    hooks,
		resolver: keymap.NewResolver(keymap.All),
		status:   status,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case RenderMsg:
		f := msg.Frame
		m.frame = &f
		m.fading = false
	case FadeMsg:
		if m.frame != nil && m.frame.ID == msg.ID {
			m.fading = true
		}
	case ClearMsg:
		m.frame = nil
		m.fading = false
	case DebugMsg:
		m.debug = msg.Text
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.resolver.Resolve(msg.String()) {
	case keymap.ActionQuit:
		return m, tea.Quit
	case keymap.ActionHelp:
		m.showHelp = !m.showHelp
	case keymap.ActionDebug:
		if m.hooks.Debug == nil {
			return m, nil
		}
		debug := m.hooks.Debug
		return m, func() tea.Msg { return DebugMsg{Text: debug()} }
	case keymap.ActionHide:
		if m.hooks.Hide == nil {
			return m, nil
		}
		hide := m.hooks.Hide
		return m, func() tea.Msg {
			hide()
			return nil
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	lines := make([]string, m.height)
	for i := range lines {
		lines[i] = strings.Repeat(" ", m.width)
	}
	if m.debug != "" {
		lines[0] = debugStyle.Render(truncate(m.debug, m.width))
	}
	lines[m.height-1] = statusStyle.Render(truncate(m.footer(), m.width))
	view := strings.Join(lines, "\n")

	if m.frame == nil {
		return view
	}
	block := m.renderFrame()
	row, col := anchor(m.frame.Placement.X, m.frame.Placement.Y,
		lipgloss.Width(block), lipgloss.Height(block), m.width, m.height)
	return compose(view, block, row, col, m.width)
}

func (m Model) renderFrame() string {
	textWidth := max(int(float64(m.width)*maxTextRatio)-2, 1)
	style := textStyle(m.frame.Style, m.fading)

	wrapped := wrapText(m.frame.Text, textWidth)
	rendered := make([]string, len(wrapped))
	for i, line := range wrapped {
		rendered[i] = style.Render(line)
	}
	return lipgloss.JoinVertical(lipgloss.Center, rendered...)
}

func (m Model) footer() string {
	if !m.showHelp {
		return m.status + "  ? keys"
	}
	return strings.Join(m.resolver.Help(), " · ")
}

// Frame returns the displayed frame and whether it is fading.
func (m Model) Frame() (overlay.Frame, bool, bool) {
	if m.frame == nil {
		return overlay.Frame{}, false, false
	}
	return *m.frame, m.fading, true
}
