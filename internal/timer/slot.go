package timer

import "time"

// Slot holds at most one pending task. Arming a slot cancels whatever it
// held before, so a slot can never fan out into overlapping callbacks.
type Slot struct {
	sched  *Scheduler
	handle Handle
}

// NewSlot creates an empty slot on sched.
func NewSlot(sched *Scheduler) *Slot {
	return &Slot{sched: sched}
}

// Arm replaces the slot's task with fn, due after d.
func (s *Slot) Arm(d time.Duration, fn func()) Handle {
	s.Stop()
	s.handle = s.sched.After(d, fn)
	return s.handle
}

// Stop cancels the slot's task. It reports whether a task was pending.
func (s *Slot) Stop() bool {
	if s.handle == 0 {
		return false
	}
	h := s.handle
	s.handle = 0
	return s.sched.Cancel(h)
}

// Armed reports whether the slot's task is still pending.
func (s *Slot) Armed() bool {
	return s.handle != 0 && s.sched.Pending(s.handle)
}
