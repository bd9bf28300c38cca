//go:build !windows

// Package stderr redirects file descriptor 2 while the terminal overlay is
// drawn. Audio libraries below the speaker (ALSA through oto) write there
// directly, bypassing os.Stderr; captured lines go to a logger instead.
package stderr

import (
	"bufio"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/llehouerou/subcue/internal/logging"
)

// Capture is an active redirection of fd 2.
type Capture struct {
	orig   int
	read   *os.File
	write  *os.File
	done   chan struct{}
	stopMu sync.Once
}

// Start redirects fd 2 into a pipe whose lines are logged at warn level.
// On error nothing is redirected and the program can go on without capture.
func Start(logger *slog.Logger) (*Capture, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	fd := int(os.Stderr.Fd())
	orig, err := unix.Dup(fd)
	if err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	if err := unix.Dup2(int(w.Fd()), fd); err != nil {
		unix.Close(orig)
		r.Close()
		w.Close()
		return nil, err
	}

	c := &Capture{orig: orig, read: r, write: w, done: make(chan struct{})}
	go c.forward(logging.NewComponentLogger(logger, "stderr"))
	return c, nil
}

func (c *Capture) forward(logger *slog.Logger) {
	defer close(c.done)
	scanner := bufio.NewScanner(c.read)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			logger.Warn("native output", logging.String("line", line))
		}
	}
}

// Stop restores fd 2 and waits for pending lines to be logged.
func (c *Capture) Stop() {
	c.stopMu.Do(func() {
		_ = unix.Dup2(c.orig, int(os.Stderr.Fd()))
		_ = unix.Close(c.orig)
		c.write.Close()
		<-c.done
		c.read.Close()
	})
}
