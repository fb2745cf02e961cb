package resilience

import (
	"sync"
	"time"
)

// Scheduler runs delayed tasks and keeps track of the ones still pending, so
// that Close can cancel them all.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[uint64]*time.Timer
	nextID uint64
	closed bool
}

// Task is a handle to a scheduled function.
type Task struct {
	id    uint64
	sched *Scheduler
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{tasks: make(map[uint64]*time.Timer)}
}

// After runs fn once d has elapsed, unless the task is cancelled first.
func (s *Scheduler) After(d time.Duration, fn func()) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSchedulerClosed
	}

	s.nextID++
	id := s.nextID
	s.tasks[id] = time.AfterFunc(d, func() {
		if s.remove(id) {
			fn()
		}
	})

	return &Task{id: id, sched: s}, nil
}

// Cancel stops the task. It reports whether the task was still pending.
func (t *Task) Cancel() bool {
	if t == nil {
		return false
	}
	t.sched.mu.Lock()
	timer, ok := t.sched.tasks[t.id]
	if ok {
		delete(t.sched.tasks, t.id)
	}
	t.sched.mu.Unlock()

	if !ok {
		return false
	}
	timer.Stop()
	return true
}

// Pending returns the number of tasks that have neither fired nor been
// cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Close cancels every pending task. Later calls to After fail with
// ErrSchedulerClosed.
func (s *Scheduler) Close() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = make(map[uint64]*time.Timer)
	s.closed = true
	s.mu.Unlock()

	for _, timer := range tasks {
		timer.Stop()
	}
}

// remove deletes id and reports whether it was still registered. A fired
// timer that lost the race with Cancel or Close finds nothing to remove.
func (s *Scheduler) remove(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	return true
}
