package keymap

// Binding describes a single key binding.
type Binding struct {
	Action      Action
	Keys        []string
	Description string
}

// All contains all key bindings, in help order.
var All = []Binding{
	{ActionQuit, []string{"q", "ctrl+c"}, "Quit"},
	{ActionHelp, []string{"?"}, "Toggle key help"},
	{ActionDebug, []string{"f8"}, "Show debug info"},
	{ActionHide, []string{"esc"}, "Hide subtitle"},
}
