// Package timer provides deferred tasks for a single-threaded event loop.
//
// Tasks never run on their own goroutine: the loop owning a Scheduler asks
// for the next deadline, sleeps until then, and calls RunDue. Every task is
// identified by a Handle so it can be cancelled without touching the
// callback itself.
package timer

import (
	"container/heap"
	"time"
)

// Handle identifies a scheduled task. The zero Handle never refers to a task.
type Handle uint64

type task struct {
	handle   Handle
	deadline time.Time
	fn       func()
	index    int
}

// Scheduler keeps pending tasks ordered by deadline.
//
// A Scheduler is not safe for concurrent use.
type Scheduler struct {
	clock   Clock
	last    Handle
	queue   taskQueue
	pending map[Handle]*task
}

// New creates a scheduler reading time from clock.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = Real()
	}
	return &Scheduler{
		clock:   clock,
		pending: make(map[Handle]*task),
	}
}

// Clock returns the scheduler's time source.
func (s *Scheduler) Clock() Clock { return s.clock }

// After schedules fn to run once d has elapsed. A non-positive d makes the
// task due on the next RunDue.
func (s *Scheduler) After(d time.Duration, fn func()) Handle {
	s.last++
	t := &task{
		handle:   s.last,
		deadline: s.clock.Now().Add(max(d, 0)),
		fn:       fn,
	}
	heap.Push(&s.queue, t)
	s.pending[t.handle] = t
	return t.handle
}

// Cancel removes a pending task. It reports whether the task was pending.
func (s *Scheduler) Cancel(h Handle) bool {
	t, ok := s.pending[h]
	if !ok {
		return false
	}
	heap.Remove(&s.queue, t.index)
	delete(s.pending, h)
	return true
}

// Pending reports whether h is still waiting to run.
func (s *Scheduler) Pending(h Handle) bool {
	_, ok := s.pending[h]
	return ok
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int { return len(s.pending) }

// NextDeadline returns the deadline of the earliest pending task.
func (s *Scheduler) NextDeadline() (time.Time, bool) {
	if len(s.queue) == 0 {
		return time.Time{}, false
	}
	return s.queue[0].deadline, true
}

// RunDue runs every task whose deadline has passed, earliest first, and
// returns how many ran. Tasks scheduled by a running task are picked up in
// the same pass when they are already due.
func (s *Scheduler) RunDue() int {
	ran := 0
	for len(s.queue) > 0 {
		now := s.clock.Now()
		t := s.queue[0]
		if t.deadline.After(now) {
			break
		}
		heap.Pop(&s.queue)
		delete(s.pending, t.handle)
		t.fn()
		ran++
	}
	return ran
}

// CancelAll drops every pending task.
func (s *Scheduler) CancelAll() {
	s.queue = nil
	clear(s.pending)
}

// taskQueue implements heap.Interface ordered by deadline, then handle.
type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].deadline.Equal(q[j].deadline) {
		return q[i].handle < q[j].handle
	}
	return q[i].deadline.Before(q[j].deadline)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*task) //nolint:forcetypeassert // heap only stores tasks
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
