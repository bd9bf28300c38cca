//go:build windows

// Package stderr is a no-op on Windows, whose audio stack does not write
// to the console.
package stderr

import "log/slog"

// Capture does nothing on Windows.
type Capture struct{}

// Start returns an inactive capture.
func Start(*slog.Logger) (*Capture, error) { return &Capture{}, nil }

// Stop does nothing.
func (*Capture) Stop() {}
