package animation

import (
	"strings"
	"time"
)

// Scheduler runs delayed callbacks on the frame clock. Each task is keyed by
// the logical operation it belongs to; scheduling a key that is already
// pending cancels the earlier task, so at most one task per operation is
// ever outstanding.
//
// Scheduler is driven by Advance from the frame loop and is not safe for
// concurrent use.
type Scheduler struct {
	now   time.Duration
	seq   uint64
	tasks map[string]*Task
}

// Task is a handle to a scheduled callback.
type Task struct {
	key   string
	due   time.Duration
	seq   uint64
	fn    func()
	owner *Scheduler
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{tasks: make(map[string]*Task)}
}

// Schedule runs fn once delay has elapsed on the frame clock, replacing any
// pending task with the same key.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) *Task {
	if delay < 0 {
		delay = 0
	}
	s.seq++
	t := &Task{key: key, due: s.now + delay, seq: s.seq, fn: fn, owner: s}
	s.tasks[key] = t
	return t
}

// Cancel removes the task if it is still pending. It reports whether it
// was.
func (t *Task) Cancel() bool {
	if !t.Pending() {
		return false
	}
	delete(t.owner.tasks, t.key)
	return true
}

// Pending reports whether the task has neither fired nor been cancelled or
// replaced.
func (t *Task) Pending() bool {
	return t.owner.tasks[t.key] == t
}

// Pending reports whether a task is outstanding for key.
func (s *Scheduler) Pending(key string) bool {
	_, ok := s.tasks[key]
	return ok
}

// Len returns the number of outstanding tasks.
func (s *Scheduler) Len() int { return len(s.tasks) }

// CancelPrefix cancels every task whose key starts with prefix.
func (s *Scheduler) CancelPrefix(prefix string) {
	for key := range s.tasks {
		if strings.HasPrefix(key, prefix) {
			delete(s.tasks, key)
		}
	}
}

// CancelAll drops every outstanding task.
func (s *Scheduler) CancelAll() {
	clear(s.tasks)
}

// Advance moves the frame clock forward by dt and runs every task now due,
// earliest first. Tasks scheduled by a callback run in the same call if
// they are already due.
func (s *Scheduler) Advance(dt time.Duration) {
	if dt > 0 {
		s.now += dt
	}
	for {
		next := s.nextDue()
		if next == nil {
			return
		}
		delete(s.tasks, next.key)
		next.fn()
	}
}

func (s *Scheduler) nextDue() *Task {
	var next *Task
	for _, t := range s.tasks {
		if t.due > s.now {
			continue
		}
		if next == nil || t.due < next.due || (t.due == next.due && t.seq < next.seq) {
			next = t
		}
	}
	return next
}
