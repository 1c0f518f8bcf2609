package tasktimer

import (
	"fmt"
	"sync"
	"time"
)

// Callback is the work a task performs. It receives the task itself so it
// can inspect its own name and counters. A returned error (or a panic,
// which is recovered) is surfaced through an EventTaskError event; the
// execution still counts toward the task's run bookkeeping either way.
type Callback func(*Task) error

// Task is a named, independently configured unit of repeating work. Tasks
// are created through NewTask or Timer.Add and owned by a single timer;
// the timer mutates the run counters, the caller may toggle enablement at
// any time.
type Task struct {
	mu           sync.Mutex
	name         string
	tickInterval int
	totalRuns    int
	stopDate     time.Time
	callback     Callback

	currentRuns int
	enabled     bool
	completed   bool
}

// NewTask validates opts and builds a task. The name may be left empty, in
// which case the timer assigns one ("task-N", lowest unused N) at Add time.
func NewTask(opts TaskOptions) (*Task, error) {
	if opts.Callback == nil {
		return nil, ErrNoCallback
	}
	ti := opts.TickInterval
	if ti == 0 {
		ti = 1
	}
	if ti < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadTickInterval, opts.TickInterval)
	}
	total := opts.TotalRuns
	if total < 0 {
		total = 0
	}
	return &Task{
		name:         opts.Name,
		tickInterval: ti,
		totalRuns:    total,
		stopDate:     opts.StopDate,
		callback:     opts.Callback,
		enabled:      !opts.Disabled,
	}, nil
}

// Name returns the task's registry name.
func (t *Task) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

func (t *Task) setName(name string) {
	t.mu.Lock()
	t.name = name
	t.mu.Unlock()
}

// TickInterval is the modulus determining which ticks the task runs on.
func (t *Task) TickInterval() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tickInterval
}

// TotalRuns is the execution cap; 0 means unbounded.
func (t *Task) TotalRuns() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalRuns
}

// StopDate is the expiry date; the zero time means none.
func (t *Task) StopDate() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopDate
}

// CurrentRuns reports how many times the task has executed.
func (t *Task) CurrentRuns() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentRuns
}

// Enabled reports whether the task is eligible for scheduling. A disabled
// task is skipped but stays registered.
func (t *Task) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// SetEnabled toggles scheduling eligibility.
func (t *Task) SetEnabled(v bool) {
	t.mu.Lock()
	t.enabled = v
	t.mu.Unlock()
}

// Completed reports whether the task reached its run limit or expiry date.
// Completion is terminal.
func (t *Task) Completed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// shouldRun reports whether the task is eligible on the given tick. An
// expiry date that has already passed flips the task to completed here,
// before it would otherwise run; justCompleted reports that transition so
// the timer can keep its aggregate accounting consistent.
func (t *Task) shouldRun(now time.Time, tick int) (run, justCompleted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || t.completed {
		return false, false
	}
	if t.expiredLocked(now) {
		t.completed = true
		return false, true
	}
	return tick%t.tickInterval == 0, false
}

// execute invokes the callback and updates the run bookkeeping. The
// counters advance even when the callback fails or panics; a faulty
// callback must not be able to corrupt completion detection.
func (t *Task) execute(now time.Time) (justCompleted bool, err error) {
	err = t.invoke()

	t.mu.Lock()
	t.currentRuns++
	if !t.completed {
		if (t.totalRuns > 0 && t.currentRuns >= t.totalRuns) || t.expiredLocked(now) {
			t.completed = true
			justCompleted = true
		}
	}
	t.mu.Unlock()
	return justCompleted, err
}

func (t *Task) expiredLocked(now time.Time) bool {
	return !t.stopDate.IsZero() && !now.Before(t.stopDate)
}

// invoke runs the callback with panic containment so a faulty callback
// cannot unwind the tick loop.
func (t *Task) invoke() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("callback panic: %v", r)
		}
	}()
	return t.callback(t)
}
