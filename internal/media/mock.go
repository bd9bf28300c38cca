package media

import (
	"sync"
	"time"
)

// MockBackend is a test double for Backend. It records every opened mock.
type MockBackend struct {
	mu     sync.Mutex
	events chan<- Event

	// OpenErr, when set, is returned by the next Open calls.
	OpenErr error
	Opened  []*Mock
}

// NewMockBackend creates a mock backend reporting to events, which may be nil.
func NewMockBackend(events chan<- Event) *MockBackend {
	return &MockBackend{events: events}
}

func (b *MockBackend) Open(req Request) (Media, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	m := NewMock(req)
	m.backend = b
	b.Opened = append(b.Opened, m)
	return m, nil
}

// Last returns the most recently opened mock, or nil.
func (b *MockBackend) Last() *Mock {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Opened) == 0 {
		return nil
	}
	return b.Opened[len(b.Opened)-1]
}

// Emit sends ev to the backend channel, as a real track would.
func (b *MockBackend) Emit(ev Event) {
	if b.events != nil {
		b.events <- ev
	}
}

// Mock is a test double for Media.
type Mock struct {
	backend *MockBackend
	req     Request

	state     State
	level     float64
	position  time.Duration
	duration  time.Duration
	playErr   error
	playCalls int
	seekCalls []time.Duration
	closed    bool
}

// NewMock creates a stopped mock for req.
func NewMock(req Request) *Mock {
	return &Mock{req: req, level: req.Volume, state: Stopped}
}

func (m *Mock) Play() error {
	m.playCalls++
	if m.playErr != nil {
		return m.playErr
	}
	m.state = Playing
	return nil
}

func (m *Mock) Pause() {
	if m.state == Playing {
		m.state = Paused
	}
}

func (m *Mock) Close() error {
	m.closed = true
	m.state = Stopped
	return nil
}

func (m *Mock) State() State { return m.state }

func (m *Mock) SetVolume(level float64) { m.level = max(0, min(1, level)) }

func (m *Mock) Volume() float64 { return m.level }

func (m *Mock) Position() time.Duration { return m.position }

func (m *Mock) Duration() time.Duration { return m.duration }

func (m *Mock) SeekTo(pos time.Duration) {
	m.seekCalls = append(m.seekCalls, pos)
	m.position = max(pos, 0)
}

func (m *Mock) Source() string { return m.req.Path }

// Event builds an event as this mock's backend would report it.
func (m *Mock) Event(kind EventKind) Event {
	return Event{SessionID: m.req.SessionID, Generation: m.req.Generation, Kind: kind}
}

// Test helpers

func (m *Mock) Request() Request { return m.req }

func (m *Mock) SetState(s State) { m.state = s }

func (m *Mock) SetPlayError(err error) { m.playErr = err }

func (m *Mock) SetPosition(d time.Duration) { m.position = d }

func (m *Mock) SetDuration(d time.Duration) { m.duration = d }

func (m *Mock) PlayCalls() int { return m.playCalls }

func (m *Mock) SeekCalls() []time.Duration { return m.seekCalls }

func (m *Mock) Closed() bool { return m.closed }

var (
	_ Backend = (*MockBackend)(nil)
	_ Media   = (*Mock)(nil)
)
