package tasktimer

import (
	"fmt"
	"sync"
	"time"

	"github.com/sliterok/tasktimer/emitter"
	"github.com/sliterok/tasktimer/pkg/logx"
	"github.com/sliterok/tasktimer/ticker"
)

// State is the timer lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// TimeInfo reports the timer's wall-clock bookkeeping. Elapsed is measured
// against "now" while running and against the stop time once stopped.
type TimeInfo struct {
	Started time.Time
	Stopped time.Time
	Elapsed time.Duration
}

// Timer evaluates a registered set of tasks on every tick of one
// underlying clock.
//
// Lifecycle methods are chainable and tolerant: Pause outside Running,
// Resume outside Paused and Stop outside Running are no-ops. Add and
// Remove are strict and return errors.
//
// All methods are safe for concurrent use. Task callbacks and event
// listeners run without the timer lock held, so they may call back into
// the timer (add or remove tasks, pause, stop) freely.
type Timer struct {
	mu sync.Mutex

	interval        time.Duration
	stopOnCompleted bool
	clock           ticker.Clock
	log             logx.Logger

	state  State
	handle ticker.Handle
	// sched counts (re)schedules; a wakeup from a canceled stream carries
	// a stale generation and is dropped.
	sched uint64

	tasks          map[string]*Task
	order          []string
	tickCount      int
	runCount       int
	completedCount int
	startTime      time.Time
	stopTime       time.Time

	events *emitter.Emitter[Event]
}

// New builds an idle timer. Nothing runs until Start.
func New(opts Options) *Timer {
	opts = opts.withDefaults()
	return &Timer{
		interval:        opts.Interval,
		stopOnCompleted: opts.StopOnCompleted,
		clock:           opts.Clock,
		log:             opts.Logger,
		tasks:           map[string]*Task{},
		events:          emitter.New[Event](),
	}
}

// On registers fn for the given event type and returns its unsubscribe
// func. Listeners are invoked synchronously, in subscription order, from
// whichever goroutine triggered the event.
func (t *Timer) On(typ EventType, fn func(Event)) (off func()) {
	return t.events.On(string(typ), fn)
}

// Once registers fn for a single delivery.
func (t *Timer) Once(typ EventType, fn func(Event)) (off func()) {
	return t.events.Once(string(typ), fn)
}

func (t *Timer) emit(e Event) {
	e.Source = t
	t.events.Emit(string(e.Type), e)
}

// Start (re)starts the timer from any state: tick and run counters reset,
// the clock is rescheduled, registered tasks keep their own run state.
func (t *Timer) Start() *Timer {
	t.mu.Lock()
	t.cancelClockLocked()
	t.tickCount = 0
	t.runCount = 0
	t.startTime = time.Now()
	t.stopTime = time.Time{}
	t.state = Running
	t.scheduleLocked()
	interval := t.interval
	t.mu.Unlock()

	t.log.Debug("timer started", logx.Duration("interval", interval))
	t.emit(Event{Type: EventStarted})
	return t
}

// Pause freezes the timer: future wakeups are canceled, counters and task
// state stay put. No-op unless Running.
func (t *Timer) Pause() *Timer {
	t.mu.Lock()
	if t.state != Running {
		t.mu.Unlock()
		return t
	}
	t.cancelClockLocked()
	t.state = Paused
	t.mu.Unlock()

	t.log.Debug("timer paused")
	t.emit(Event{Type: EventPaused})
	return t
}

// Resume restarts the clock without touching any counters. No-op unless
// Paused.
func (t *Timer) Resume() *Timer {
	t.mu.Lock()
	if t.state != Paused {
		t.mu.Unlock()
		return t
	}
	t.state = Running
	t.scheduleLocked()
	t.mu.Unlock()

	t.log.Debug("timer resumed")
	t.emit(Event{Type: EventResumed})
	return t
}

// Stop halts the timer and records the stop time. No-op unless Running.
func (t *Timer) Stop() *Timer {
	t.mu.Lock()
	if t.state != Running {
		t.mu.Unlock()
		return t
	}
	t.cancelClockLocked()
	t.stopTime = time.Now()
	t.state = Stopped
	t.mu.Unlock()

	t.log.Debug("timer stopped")
	t.emit(Event{Type: EventStopped})
	return t
}

// Reset returns the timer to Idle: the clock is canceled and the registry,
// counters and timestamps are cleared. Task removal during reset is
// silent; only the reset event fires.
func (t *Timer) Reset() *Timer {
	t.mu.Lock()
	t.cancelClockLocked()
	t.state = Idle
	t.tasks = map[string]*Task{}
	t.order = nil
	t.tickCount = 0
	t.runCount = 0
	t.completedCount = 0
	t.startTime = time.Time{}
	t.stopTime = time.Time{}
	t.mu.Unlock()

	t.log.Debug("timer reset")
	t.emit(Event{Type: EventReset})
	return t
}

func (t *Timer) scheduleLocked() {
	t.sched++
	gen := t.sched
	t.handle = t.clock.Schedule(t.interval, func() { t.tick(gen) })
}

func (t *Timer) cancelClockLocked() {
	if t.handle != nil {
		t.handle.Cancel()
		t.handle = nil
	}
	t.sched++
}

// Add registers one or more tasks, in input order, emitting taskAdded per
// task. A failing input stops the batch; tasks added before it stay
// registered.
func (t *Timer) Add(inputs ...Input) error {
	for _, in := range inputs {
		task, err := in.toTask()
		if err != nil {
			return err
		}
		if err := t.insert(task); err != nil {
			return err
		}
	}
	return nil
}

func (t *Timer) insert(task *Task) error {
	t.mu.Lock()
	name := task.Name()
	if name == "" {
		name = t.nextNameLocked()
		task.setName(name)
	} else if _, ok := t.tasks[name]; ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrTaskExists, name)
	}
	t.tasks[name] = task
	t.order = append(t.order, name)
	if task.Completed() {
		t.completedCount++
	}
	t.mu.Unlock()

	t.emit(Event{Type: EventTaskAdded, Task: task})
	return nil
}

func (t *Timer) nextNameLocked() string {
	for n := 1; ; n++ {
		name := fmt.Sprintf("task-%d", n)
		if _, ok := t.tasks[name]; !ok {
			return name
		}
	}
}

// Remove deletes a task by name and emits taskRemoved. Removing a
// completed task gives its completion slot back, so a later aggregate
// completed event reflects only the tasks still registered.
func (t *Timer) Remove(name string) error {
	t.mu.Lock()
	task, ok := t.tasks[name]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrTaskNotFound, name)
	}
	delete(t.tasks, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			break
		}
	}
	if task.Completed() && t.completedCount > 0 {
		t.completedCount--
	}
	t.mu.Unlock()

	t.emit(Event{Type: EventTaskRemoved, Task: task})
	return nil
}

// RemoveTask removes by task reference.
func (t *Timer) RemoveTask(task *Task) error {
	if task == nil {
		return fmt.Errorf("%w: <nil>", ErrTaskNotFound)
	}
	return t.Remove(task.Name())
}

// Get returns the named task, or nil.
func (t *Timer) Get(name string) *Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tasks[name]
}

// Interval returns the base tick resolution.
func (t *Timer) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// SetInterval changes the base tick resolution. While running, the clock
// is rescheduled immediately and the new spacing applies from the next
// cycle. Non-positive values are ignored.
func (t *Timer) SetInterval(d time.Duration) *Timer {
	t.mu.Lock()
	if d <= 0 {
		t.mu.Unlock()
		return t
	}
	t.interval = d
	if t.state == Running {
		t.cancelClockLocked()
		t.scheduleLocked()
	}
	t.mu.Unlock()
	return t
}

// StopOnCompleted reports the auto-stop policy.
func (t *Timer) StopOnCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopOnCompleted
}

// SetStopOnCompleted changes the auto-stop policy.
func (t *Timer) SetStopOnCompleted(v bool) *Timer {
	t.mu.Lock()
	t.stopOnCompleted = v
	t.mu.Unlock()
	return t
}

// State returns the lifecycle state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// TickCount reports ticks elapsed since the last Start or Reset. It is
// preserved across Pause/Resume.
func (t *Timer) TickCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tickCount
}

// TaskCount reports the number of registered tasks.
func (t *Timer) TaskCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tasks)
}

// RunCount reports total task executions since the last Start.
func (t *Timer) RunCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runCount
}

// Time reports start/stop timestamps and elapsed time.
func (t *Timer) Time() TimeInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	ti := TimeInfo{Started: t.startTime, Stopped: t.stopTime}
	switch {
	case t.startTime.IsZero():
	case !t.stopTime.IsZero():
		ti.Elapsed = t.stopTime.Sub(t.startTime)
	default:
		ti.Elapsed = time.Since(t.startTime)
	}
	return ti
}

// tick runs one evaluation pass. The clock invokes it serially; a stale
// generation means the wakeup raced a cancel and is dropped. The pass
// iterates a snapshot of the registry, so callbacks may add or remove
// tasks without disturbing it; a pass always runs to completion even if a
// callback stops the timer mid-way.
func (t *Timer) tick(gen uint64) {
	t.mu.Lock()
	if t.state != Running || gen != t.sched {
		t.mu.Unlock()
		return
	}
	count := t.tickCount
	snap := make([]*Task, 0, len(t.order))
	for _, name := range t.order {
		snap = append(snap, t.tasks[name])
	}
	t.mu.Unlock()

	now := time.Now()
	for _, task := range snap {
		t.evaluate(task, now, count)
	}

	t.mu.Lock()
	t.tickCount++
	t.mu.Unlock()
	t.emit(Event{Type: EventTick})
}

// evaluate checks one task's eligibility and, when eligible, executes it
// and applies the post-execution accounting.
func (t *Timer) evaluate(task *Task, now time.Time, count int) {
	t.mu.Lock()
	_, present := t.tasks[task.Name()]
	t.mu.Unlock()
	if !present {
		// removed earlier in this pass by a callback or listener
		return
	}

	run, expired := task.shouldRun(now, count)
	if expired {
		// stop date passed before this tick; completion without a run
		t.recordCompletion(task)
		return
	}
	if !run {
		return
	}

	justCompleted, cbErr := task.execute(now)

	t.mu.Lock()
	t.runCount++
	t.mu.Unlock()

	t.emit(Event{Type: EventTask, Task: task})
	if cbErr != nil {
		t.log.Error("task callback failed",
			logx.String("task", task.Name()), logx.Err(cbErr))
		t.emit(Event{Type: EventTaskError, Task: task, Err: cbErr})
	}
	if justCompleted {
		t.recordCompletion(task)
	}
}

// recordCompletion folds a task's completion transition into the
// aggregate counters and emits taskCompleted, plus completed when the
// whole registry is done. Aggregate completion is only reachable through
// a task transition, so it can never fire on an empty registry.
func (t *Timer) recordCompletion(task *Task) {
	t.mu.Lock()
	if _, ok := t.tasks[task.Name()]; !ok {
		// removed by its own callback; no longer counts
		t.mu.Unlock()
		return
	}
	t.completedCount++
	allDone := t.completedCount == len(t.tasks)
	stop := allDone && t.stopOnCompleted
	t.mu.Unlock()

	t.emit(Event{Type: EventTaskCompleted, Task: task})
	if allDone {
		t.log.Debug("all tasks completed", logx.Int("tasks", t.TaskCount()))
		t.emit(Event{Type: EventCompleted})
		if stop {
			t.Stop()
		}
	}
}
