package tasktimer

import (
	"time"

	"github.com/sliterok/tasktimer/pkg/logx"
	"github.com/sliterok/tasktimer/ticker"
)

// Options configure a Timer. The zero value is usable: one tick per
// second, wall clock, no-op logger.
type Options struct {
	// Interval is the base tick resolution. Defaults to one second.
	Interval time.Duration

	// StopOnCompleted stops the timer as soon as every registered task
	// has completed.
	StopOnCompleted bool

	// Clock provides the periodic wakeups. Defaults to ticker.Wall().
	// Tests inject ticker.NewManual() for deterministic ticks.
	Clock ticker.Clock

	// Logger receives lifecycle and fault logs. Zero value is a no-op.
	Logger logx.Logger
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Clock == nil {
		o.Clock = ticker.Wall()
	}
	return o
}

// TaskOptions describe one task.
type TaskOptions struct {
	// Name must be unique within a timer; left empty, the timer assigns
	// the lowest unused "task-N".
	Name string

	// TickInterval makes the task run only on ticks divisible by it.
	// Defaults to 1 (every tick); values below 1 are rejected.
	TickInterval int

	// TotalRuns caps the number of executions; 0 means unbounded.
	TotalRuns int

	// StopDate makes the task permanently ineligible once reached; the
	// zero time means none.
	StopDate time.Time

	// Disabled registers the task without scheduling it.
	Disabled bool

	// Callback is the work to perform. Required.
	Callback Callback
}

// Input is a task source accepted by Timer.Add: a bare Callback, a
// TaskOptions record, or an existing *Task. The variants are explicit so
// Add never has to inspect runtime types.
type Input interface {
	toTask() (*Task, error)
}

func (c Callback) toTask() (*Task, error) {
	return NewTask(TaskOptions{Callback: c})
}

func (o TaskOptions) toTask() (*Task, error) {
	return NewTask(o)
}

func (t *Task) toTask() (*Task, error) {
	if t == nil || t.callback == nil {
		return nil, ErrNoCallback
	}
	return t, nil
}
