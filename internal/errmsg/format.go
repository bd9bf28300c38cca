// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Playback operations
	OpPlaybackStart Op = "start playback"
	OpPlaybackSeek  Op = "seek"

	// Cue operations
	OpCueLoad Op = "load cue sheet"

	// Host communication
	OpCallbackDeliver Op = "deliver callback"
	OpMessageDecode   Op = "decode message"
	OpMessageSend     Op = "send message"
	OpStatusQuery     Op = "query status"

	// Daemon
	OpConfigLoad Op = "load configuration"
	OpServe      Op = "serve"
	OpLock       Op = "acquire instance lock"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
