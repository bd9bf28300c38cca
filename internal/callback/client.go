// Package callback posts outbound events to the host as JSON over HTTP.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/llehouerou/subcue/internal/errmsg"
	"github.com/llehouerou/subcue/internal/logging"
	"github.com/llehouerou/subcue/internal/protocol"
)

const userAgent = "subcue/0.1"

// DefaultTimeout bounds a single callback request.
const DefaultTimeout = 5 * time.Second

// ErrNotificationFailure wraps every failed callback delivery.
var ErrNotificationFailure = errors.New("notification failure")

// Notifier delivers outbound events without blocking the caller.
type Notifier interface {
	Notify(ev protocol.Event)
}

// BaseURL returns the callback base for a host resource name.
func BaseURL(resource string) string {
	return "https://" + strings.Trim(resource, "/")
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// Logger receives delivery failures. It must not mirror records back
	// into this client.
	Logger *slog.Logger
}

// Client posts events to <BaseURL>/<event name>.
type Client struct {
	base   string
	client *http.Client
	logger *slog.Logger
	wg     sync.WaitGroup
}

// New builds a client.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base:   strings.TrimRight(opts.BaseURL, "/"),
		client: &http.Client{Timeout: timeout},
		logger: logging.NewComponentLogger(opts.Logger, "callback"),
	}
}

// Notify posts ev in the background. Failures are logged, never retried.
func (c *Client) Notify(ev protocol.Event) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Post(context.Background(), ev); err != nil {
			c.logger.Warn(errmsg.FormatWith(errmsg.OpCallbackDeliver, ev.EventName(), err),
				logging.String(logging.FieldEventType, ev.EventName()),
				logging.Error(err),
			)
		}
	}()
}

// Post delivers ev and waits for the response.
func (c *Client) Post(ctx context.Context, ev protocol.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrNotificationFailure, ev.EventName(), err)
	}

	url := c.base + "/" + ev.EventName()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrNotificationFailure, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotificationFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: %s returned %d: %s",
			ErrNotificationFailure, ev.EventName(), resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Wait blocks until every pending Notify has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(protocol.Event) {}

// Recorder keeps notified events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []protocol.Event
}

func (r *Recorder) Notify(ev protocol.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []protocol.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Event(nil), r.events...)
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []protocol.Event {
	var out []protocol.Event
	for _, ev := range r.Events() {
		if ev.EventName() == name {
			out = append(out, ev)
		}
	}
	return out
}

var (
	_ Notifier = (*Client)(nil)
	_ Notifier = Nop{}
	_ Notifier = (*Recorder)(nil)
)
