// Package keymap defines key bindings and action dispatch for the terminal
// surface.
package keymap

// Action represents a user-triggerable action.
type Action string

const (
	ActionQuit  Action = "quit"
	ActionDebug Action = "debug" // dump engine state locally
	ActionHide  Action = "hide"  // fade out the current subtitle
	ActionHelp  Action = "help"
)
