package subtitle

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/subcue/internal/overlay"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want lipgloss.Color
		ok   bool
	}{
		{"#ffd84d", "#ffd84d", true},
		{"#FFF", "#ffffff", true},
		{"white", "#ffffff", true},
		{"rgb(255, 0, 0)", "#ff0000", true},
		{"rgba(255, 255, 255, 0.5)", "#808080", true},
		{"rgba(0, 0, 0, 0)", "", false},
		{"not a color", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseColor(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"hello world"}, wrapText("hello world", 20))
	assert.Equal(t, []string{"hello", "world"}, wrapText("hello world", 8))
	assert.Equal(t, []string{"one", "two"}, wrapText("one\ntwo", 20))
	assert.Equal(t, []string{""}, wrapText("", 10))

	for _, line := range wrapText("a fairly long sentence with a supercalifragilistic word", 10) {
		assert.LessOrEqual(t, ansi.StringWidth(line), 10, line)
	}
}

func TestAnchor(t *testing.T) {
	row, col := anchor(50, 50, 10, 2, 80, 24)
	assert.Equal(t, 11, row)
	assert.Equal(t, 35, col)

	// Kept inside the canvas.
	row, col = anchor(100, 100, 10, 2, 80, 24)
	assert.Equal(t, 22, row)
	assert.Equal(t, 70, col)

	row, col = anchor(0, 0, 10, 2, 80, 24)
	assert.Equal(t, 0, row)
	assert.Equal(t, 0, col)
}

func TestCompose(t *testing.T) {
	base := strings.Repeat(".", 10) + "\n" + strings.Repeat(".", 10)
	got := compose(base, "ab", 1, 3, 10)
	assert.Equal(t, "..........\n...ab.....", got)

	// Leading spaces keep the base visible.
	got = compose(base, "  x", 0, 0, 10)
	assert.Equal(t, "..x.......\n..........", got)

	// Out of bounds rows are skipped.
	assert.Equal(t, base, compose(base, "zz", 5, 0, 10))
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestModel_Lifecycle(t *testing.T) {
	m := sized(t, New(Hooks{}, "listening"))
	frame := overlay.Frame{
		ID:        "a_sub_0",
		Text:      "hello",
		Placement: overlay.Placement{X: 50, Y: 50},
		Style:     overlay.DefaultLayout().Styles[overlay.DefaultStyle],
	}

	m, _ = update(t, m, RenderMsg{Frame: frame})
	got, fading, ok := m.Frame()
	require.True(t, ok)
	assert.False(t, fading)
	assert.Equal(t, "a_sub_0", got.ID)
	assert.Contains(t, ansi.Strip(m.View()), "hello")

	m, _ = update(t, m, FadeMsg{ID: "other"})
	_, fading, _ = m.Frame()
	assert.False(t, fading, "fade for another id is ignored")

	m, _ = update(t, m, FadeMsg{ID: "a_sub_0"})
	_, fading, _ = m.Frame()
	assert.True(t, fading)

	m, _ = update(t, m, ClearMsg{})
	_, _, ok = m.Frame()
	assert.False(t, ok)
	assert.NotContains(t, ansi.Strip(m.View()), "hello")
}

func TestModel_ViewBeforeSize(t *testing.T) {
	assert.Empty(t, New(Hooks{}, "").View())
}

func TestModel_ViewHasCanvasSize(t *testing.T) {
	m := sized(t, New(Hooks{}, "listening"))
	lines := strings.Split(m.View(), "\n")
	assert.Len(t, lines, 10)
	assert.Contains(t, ansi.Strip(lines[9]), "listening")
}

func TestModel_Keys(t *testing.T) {
	hidden := 0
	m := sized(t, New(Hooks{
		Debug: func() string { return "sessions: 1" },
		Hide:  func() { hidden++ },
	}, ""))

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyF8})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, DebugMsg{Text: "sessions: 1"}, msg)
	m, _ = update(t, m, msg)
	assert.Contains(t, ansi.Strip(m.View()), "sessions: 1")

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, hidden)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Contains(t, ansi.Strip(m.View()), "Quit")

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_KeysWithoutHooks(t *testing.T) {
	m := sized(t, New(Hooks{}, ""))
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyF8})
	assert.Nil(t, cmd)
	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
}

func TestSurface_Forwards(t *testing.T) {
	var got []tea.Msg
	s := NewSurfaceFunc(func(msg tea.Msg) { got = append(got, msg) })

	s.Render(overlay.Frame{ID: "x"})
	s.FadeOut("x")
	s.Clear()

	assert.Equal(t, []tea.Msg{
		RenderMsg{Frame: overlay.Frame{ID: "x"}},
		FadeMsg{ID: "x"},
		ClearMsg{},
	}, got)
}
