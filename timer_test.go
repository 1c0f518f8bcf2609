package tasktimer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sliterok/tasktimer/ticker"
)

func newTestTimer(t *testing.T, opts Options) (*Timer, *ticker.Manual) {
	t.Helper()
	clk := ticker.NewManual()
	opts.Clock = clk
	if opts.Interval == 0 {
		opts.Interval = 100 * time.Millisecond
	}
	return New(opts), clk
}

func noop(*Task) error { return nil }

// eventLog records event types across all topics in emission order.
type eventLog struct {
	mu    sync.Mutex
	types []EventType
}

func (l *eventLog) watch(tm *Timer) {
	all := []EventType{
		EventTick, EventStarted, EventResumed, EventPaused, EventStopped,
		EventReset, EventTask, EventTaskAdded, EventTaskRemoved,
		EventTaskCompleted, EventCompleted, EventTaskError,
	}
	for _, typ := range all {
		typ := typ
		tm.On(typ, func(Event) {
			l.mu.Lock()
			l.types = append(l.types, typ)
			l.mu.Unlock()
		})
	}
}

func (l *eventLog) count(typ EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, got := range l.types {
		if got == typ {
			n++
		}
	}
	return n
}

func (l *eventLog) all() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]EventType(nil), l.types...)
}

func TestTickCounting(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{})

	tm.Start()
	clk.Advance(5)
	if got := tm.TickCount(); got != 5 {
		t.Fatalf("TickCount = %d, want 5", got)
	}

	// Start resets the count.
	tm.Start()
	if got := tm.TickCount(); got != 0 {
		t.Fatalf("TickCount after restart = %d, want 0", got)
	}
}

func TestEligibilityAndCompletion(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{})
	log := &eventLog{}
	log.watch(tm)

	var ranAt []int
	err := tm.Add(TaskOptions{
		Name:         "every-2",
		TickInterval: 2,
		TotalRuns:    3,
		Callback: func(task *Task) error {
			ranAt = append(ranAt, tm.TickCount())
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	tm.Start()
	clk.Advance(6)

	task := tm.Get("every-2")
	if task == nil {
		t.Fatal("task missing")
	}
	if got := task.CurrentRuns(); got != 3 {
		t.Fatalf("CurrentRuns = %d, want 3", got)
	}
	if !task.Completed() {
		t.Fatal("task should be completed")
	}
	// Eligible ticks were 0, 2, 4.
	want := []int{0, 2, 4}
	if len(ranAt) != len(want) {
		t.Fatalf("ran at %v, want %v", ranAt, want)
	}
	for i := range want {
		if ranAt[i] != want[i] {
			t.Fatalf("ran at %v, want %v", ranAt, want)
		}
	}
	if got := tm.RunCount(); got != 3 {
		t.Fatalf("RunCount = %d, want 3", got)
	}
	if got := log.count(EventCompleted); got != 1 {
		t.Fatalf("completed events = %d, want 1", got)
	}

	// Never an N+1-th run.
	clk.Advance(10)
	if got := task.CurrentRuns(); got != 3 {
		t.Fatalf("CurrentRuns after extra ticks = %d, want 3", got)
	}
}

func TestTickIntervalSkipsTicks(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		interval int
		ticks    int
		wantRuns int
	}{
		{name: "every tick", interval: 1, ticks: 4, wantRuns: 4},
		{name: "every third", interval: 3, ticks: 7, wantRuns: 3}, // ticks 0,3,6
		{name: "beyond horizon", interval: 10, ticks: 5, wantRuns: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tm, clk := newTestTimer(t, Options{})
			runs := 0
			if err := tm.Add(TaskOptions{
				Name:         "t",
				TickInterval: tt.interval,
				Callback:     func(*Task) error { runs++; return nil },
			}); err != nil {
				t.Fatalf("Add: %v", err)
			}
			tm.Start()
			clk.Advance(tt.ticks)
			if runs != tt.wantRuns {
				t.Fatalf("runs = %d, want %d", runs, tt.wantRuns)
			}
		})
	}
}

func TestDisabledTaskSkipped(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{})
	runs := 0
	if err := tm.Add(TaskOptions{
		Name:     "t",
		Disabled: true,
		Callback: func(*Task) error { runs++; return nil },
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	tm.Start()
	clk.Advance(3)
	if runs != 0 {
		t.Fatalf("disabled task ran %d times", runs)
	}

	tm.Get("t").SetEnabled(true)
	clk.Advance(2)
	if runs != 2 {
		t.Fatalf("runs after enable = %d, want 2", runs)
	}
}

func TestPauseResumePreservesCounters(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{})
	tm.Start()
	clk.Advance(3)

	tm.Pause()
	if got := tm.State(); got != Paused {
		t.Fatalf("State = %v, want Paused", got)
	}
	clk.Advance(5) // canceled stream; must not tick
	if got := tm.TickCount(); got != 3 {
		t.Fatalf("TickCount while paused = %d, want 3", got)
	}

	tm.Resume()
	clk.Advance(1)
	if got := tm.TickCount(); got != 4 {
		t.Fatalf("TickCount after resume = %d, want 4", got)
	}
}

func TestLifecycleNoOps(t *testing.T) {
	t.Parallel()
	tm, _ := newTestTimer(t, Options{})
	log := &eventLog{}
	log.watch(tm)

	if tm.Pause().State() != Idle {
		t.Fatal("Pause on idle must be a no-op")
	}
	if tm.Resume().State() != Idle {
		t.Fatal("Resume on idle must be a no-op")
	}
	if tm.Stop().State() != Idle {
		t.Fatal("Stop on idle must be a no-op")
	}
	if got := log.all(); len(got) != 0 {
		t.Fatalf("no-ops emitted events: %v", got)
	}

	tm.Start().Pause()
	if tm.Stop().State() != Paused {
		t.Fatal("Stop on paused must be a no-op")
	}
}

func TestStopRecordsTime(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{})
	tm.Start()
	clk.Advance(1)
	tm.Stop()

	ti := tm.Time()
	if ti.Started.IsZero() || ti.Stopped.IsZero() {
		t.Fatalf("Time() = %+v, want both timestamps set", ti)
	}
	if ti.Elapsed < 0 {
		t.Fatalf("Elapsed = %v, want >= 0", ti.Elapsed)
	}
	if ti.Elapsed != ti.Stopped.Sub(ti.Started) {
		t.Fatalf("Elapsed = %v, want stop-start = %v", ti.Elapsed, ti.Stopped.Sub(ti.Started))
	}
}

func TestResetIsSilentAboutTasks(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{})
	log := &eventLog{}
	log.watch(tm)

	if err := tm.Add(Callback(noop), Callback(noop)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	tm.Start()
	clk.Advance(2)
	tm.Reset()

	if got := tm.State(); got != Idle {
		t.Fatalf("State = %v, want Idle", got)
	}
	if got := tm.TaskCount(); got != 0 {
		t.Fatalf("TaskCount = %d, want 0", got)
	}
	if got := tm.TickCount(); got != 0 {
		t.Fatalf("TickCount = %d, want 0", got)
	}
	if got := log.count(EventReset); got != 1 {
		t.Fatalf("reset events = %d, want 1", got)
	}
	if got := log.count(EventTaskRemoved); got != 0 {
		t.Fatalf("taskRemoved events during reset = %d, want 0", got)
	}
}

func TestDuplicateNameRejected(t *testing.T) {
	t.Parallel()
	tm, _ := newTestTimer(t, Options{})

	first := 0
	if err := tm.Add(TaskOptions{Name: "x", Callback: func(*Task) error { first++; return nil }}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	original := tm.Get("x")

	err := tm.Add(TaskOptions{Name: "x", Callback: noop})
	if !errors.Is(err, ErrTaskExists) {
		t.Fatalf("err = %v, want ErrTaskExists", err)
	}
	if tm.Get("x") != original {
		t.Fatal("first registration must be untouched")
	}
	if got := tm.TaskCount(); got != 1 {
		t.Fatalf("TaskCount = %d, want 1", got)
	}
}

func TestAutoNames(t *testing.T) {
	t.Parallel()
	tm, _ := newTestTimer(t, Options{})

	if err := tm.Add(Callback(noop), Callback(noop), Callback(noop)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	for _, name := range []string{"task-1", "task-2", "task-3"} {
		if tm.Get(name) == nil {
			t.Fatalf("missing auto-named task %q", name)
		}
	}

	// The lowest unused slot is reused after removal.
	if err := tm.Remove("task-2"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := tm.Add(Callback(noop)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if tm.Get("task-2") == nil {
		t.Fatal("auto naming should reuse task-2")
	}
}

func TestAddValidation(t *testing.T) {
	t.Parallel()
	tm, _ := newTestTimer(t, Options{})

	if err := tm.Add(TaskOptions{Name: "x"}); !errors.Is(err, ErrNoCallback) {
		t.Fatalf("err = %v, want ErrNoCallback", err)
	}
	if tm.Get("x") != nil {
		t.Fatal("failed add must not register the task")
	}
	if err := tm.Add(TaskOptions{Name: "y", TickInterval: -1, Callback: noop}); !errors.Is(err, ErrBadTickInterval) {
		t.Fatalf("err = %v, want ErrBadTickInterval", err)
	}
}

func TestRemoveUnknown(t *testing.T) {
	t.Parallel()
	tm, _ := newTestTimer(t, Options{})
	if err := tm.Remove("ghost"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
	if err := tm.RemoveTask(nil); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestStopOnCompleted(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{StopOnCompleted: true})
	log := &eventLog{}

	if err := tm.Add(TaskOptions{Name: "once", TotalRuns: 1, Callback: noop}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	log.watch(tm)

	tm.Start()
	clk.Advance(1)

	if got := tm.State(); got != Stopped {
		t.Fatalf("State = %v, want Stopped", got)
	}
	want := []EventType{EventStarted, EventTask, EventTaskCompleted, EventCompleted, EventStopped, EventTick}
	got := log.all()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	// No further ticks after the auto-stop.
	clk.Advance(5)
	if got := tm.TickCount(); got != 1 {
		t.Fatalf("TickCount after stop = %d, want 1", got)
	}
}

func TestCompletedFiresPerTransition(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{})
	log := &eventLog{}
	log.watch(tm)

	if err := tm.Add(TaskOptions{Name: "a", TotalRuns: 1, Callback: noop}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	tm.Start()
	clk.Advance(1)
	if got := log.count(EventCompleted); got != 1 {
		t.Fatalf("completed events = %d, want 1", got)
	}

	// Removing the completed task gives its slot back; a new task must
	// trigger a fresh aggregate transition, not a stale event.
	if err := tm.Remove("a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := tm.Add(TaskOptions{Name: "b", TotalRuns: 2, Callback: noop}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	clk.Advance(1)
	if got := log.count(EventCompleted); got != 1 {
		t.Fatalf("completed events after partial progress = %d, want 1", got)
	}
	clk.Advance(1)
	if got := log.count(EventCompleted); got != 2 {
		t.Fatalf("completed events after b finished = %d, want 2", got)
	}
}

func TestCompletedNeverFiresOnEmptyRegistry(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{})
	log := &eventLog{}
	log.watch(tm)

	tm.Start()
	clk.Advance(5)
	if got := log.count(EventCompleted); got != 0 {
		t.Fatalf("completed events with zero tasks = %d, want 0", got)
	}
}

func TestCallbackErrorPolicy(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{})

	var faults []error
	tm.On(EventTaskError, func(e Event) { faults = append(faults, e.Err) })

	boom := errors.New("boom")
	if err := tm.Add(TaskOptions{Name: "bad", TotalRuns: 2, Callback: func(*Task) error { return boom }}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	tm.Start()
	clk.Advance(2)

	task := tm.Get("bad")
	if got := task.CurrentRuns(); got != 2 {
		t.Fatalf("CurrentRuns = %d, want 2 (failed runs still count)", got)
	}
	if !task.Completed() {
		t.Fatal("completion detection must survive failing callbacks")
	}
	if len(faults) != 2 || !errors.Is(faults[0], boom) {
		t.Fatalf("faults = %v, want two wrapped boom errors", faults)
	}
	if got := tm.RunCount(); got != 2 {
		t.Fatalf("RunCount = %d, want 2", got)
	}
}

func TestCallbackPanicRecovered(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{})

	var fault error
	tm.On(EventTaskError, func(e Event) { fault = e.Err })

	if err := tm.Add(TaskOptions{Name: "panicky", Callback: func(*Task) error { panic("kaboom") }}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := tm.Add(TaskOptions{Name: "after", Callback: noop}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	tm.Start()
	clk.Advance(1)

	if fault == nil {
		t.Fatal("panic must surface as a taskError event")
	}
	if got := tm.Get("panicky").CurrentRuns(); got != 1 {
		t.Fatalf("CurrentRuns = %d, want 1", got)
	}
	// The pass must survive the panic and reach later tasks.
	if got := tm.Get("after").CurrentRuns(); got != 1 {
		t.Fatalf("task after the panicking one ran %d times, want 1", got)
	}
}

func TestMutationDuringCallback(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{})

	if err := tm.Add(TaskOptions{
		Name: "spawner",
		Callback: func(*Task) error {
			if tm.Get("task-1") == nil {
				return tm.Add(Callback(noop))
			}
			return nil
		},
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := tm.Add(TaskOptions{
		Name:     "reaper",
		Callback: func(*Task) error { return tm.Remove("victim") },
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	victimRuns := 0
	if err := tm.Add(TaskOptions{
		Name:     "victim",
		Callback: func(*Task) error { victimRuns++; return nil },
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	tm.Start()
	clk.Advance(1)

	// The spawned task joined during the pass and must not run in it.
	spawned := tm.Get("task-1")
	if spawned == nil {
		t.Fatal("task added from a callback must be registered")
	}
	if got := spawned.CurrentRuns(); got != 0 {
		t.Fatalf("spawned task ran %d times in its joining pass, want 0", got)
	}
	// The removed task was later in the snapshot and must be skipped.
	if victimRuns != 0 {
		t.Fatalf("removed task ran %d times, want 0", victimRuns)
	}

	clk.Advance(1)
	if got := spawned.CurrentRuns(); got != 1 {
		t.Fatalf("spawned task runs = %d, want 1 after next tick", got)
	}
}

func TestStopDateExpiry(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{})
	log := &eventLog{}
	log.watch(tm)

	runs := 0
	if err := tm.Add(TaskOptions{
		Name:     "expired",
		StopDate: time.Now().Add(-time.Minute),
		Callback: func(*Task) error { runs++; return nil },
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	tm.Start()
	clk.Advance(1)

	task := tm.Get("expired")
	if !task.Completed() {
		t.Fatal("past stop date must complete the task")
	}
	if runs != 0 {
		t.Fatalf("expired task ran %d times, want 0", runs)
	}
	if got := log.count(EventTask); got != 0 {
		t.Fatalf("task events = %d, want 0 (no execution happened)", got)
	}
	if got := log.count(EventTaskCompleted); got != 1 {
		t.Fatalf("taskCompleted events = %d, want 1", got)
	}
	if got := log.count(EventCompleted); got != 1 {
		t.Fatalf("completed events = %d, want 1", got)
	}
}

func TestSetIntervalReschedules(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{Interval: 100 * time.Millisecond})
	tm.Start()

	tm.SetInterval(25 * time.Millisecond)
	if got := clk.Interval(); got != 25*time.Millisecond {
		t.Fatalf("clock interval = %v, want 25ms", got)
	}
	if !clk.Active() {
		t.Fatal("clock must stay scheduled across an interval change")
	}
	if got := tm.Interval(); got != 25*time.Millisecond {
		t.Fatalf("Interval = %v, want 25ms", got)
	}

	// Non-positive values are ignored.
	tm.SetInterval(0)
	if got := tm.Interval(); got != 25*time.Millisecond {
		t.Fatalf("Interval after SetInterval(0) = %v, want 25ms", got)
	}
}

func TestEventEnvelopeSource(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{})

	var got Event
	tm.On(EventTask, func(e Event) { got = e })
	if err := tm.Add(TaskOptions{Name: "t", Callback: noop}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	tm.Start()
	clk.Advance(1)

	if got.Source != tm {
		t.Fatal("event source must reference the emitting timer")
	}
	if got.Task == nil || got.Task.Name() != "t" {
		t.Fatalf("task event carries %v, want task t", got.Task)
	}
}

func TestOnceListener(t *testing.T) {
	t.Parallel()
	tm, clk := newTestTimer(t, Options{})

	ticks := 0
	tm.Once(EventTick, func(Event) { ticks++ })
	tm.Start()
	clk.Advance(4)
	if ticks != 1 {
		t.Fatalf("once listener fired %d times, want 1", ticks)
	}
}
