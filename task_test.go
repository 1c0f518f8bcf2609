package tasktimer

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewTaskDefaults(t *testing.T) {
	t.Parallel()
	task, err := NewTask(TaskOptions{Callback: noop})
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	if got := task.TickInterval(); got != 1 {
		t.Fatalf("TickInterval = %d, want default 1", got)
	}
	if got := task.TotalRuns(); got != 0 {
		t.Fatalf("TotalRuns = %d, want 0 (unbounded)", got)
	}
	if !task.Enabled() {
		t.Fatal("tasks default to enabled")
	}
	if task.Completed() {
		t.Fatal("new task must not be completed")
	}
}

func TestNewTaskValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		opts    TaskOptions
		wantErr error
	}{
		{name: "no callback", opts: TaskOptions{Name: "x"}, wantErr: ErrNoCallback},
		{name: "negative tick interval", opts: TaskOptions{TickInterval: -2, Callback: noop}, wantErr: ErrBadTickInterval},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewTask(tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestShouldRun(t *testing.T) {
	t.Parallel()
	now := time.Now()
	tests := []struct {
		name string
		opts TaskOptions
		tick int
		want bool
	}{
		{name: "aligned", opts: TaskOptions{TickInterval: 3, Callback: noop}, tick: 6, want: true},
		{name: "misaligned", opts: TaskOptions{TickInterval: 3, Callback: noop}, tick: 5, want: false},
		{name: "tick zero", opts: TaskOptions{TickInterval: 7, Callback: noop}, tick: 0, want: true},
		{name: "disabled", opts: TaskOptions{Disabled: true, Callback: noop}, tick: 0, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			task, err := NewTask(tt.opts)
			if err != nil {
				t.Fatalf("NewTask: %v", err)
			}
			run, justCompleted := task.shouldRun(now, tt.tick)
			if run != tt.want {
				t.Fatalf("shouldRun = %v, want %v", run, tt.want)
			}
			if justCompleted {
				t.Fatal("unexpected completion transition")
			}
		})
	}
}

func TestShouldRunExpiry(t *testing.T) {
	t.Parallel()
	task, err := NewTask(TaskOptions{StopDate: time.Now().Add(-time.Second), Callback: noop})
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}

	run, justCompleted := task.shouldRun(time.Now(), 0)
	if run {
		t.Fatal("expired task must not run")
	}
	if !justCompleted {
		t.Fatal("expiry at decision time must report the completion transition")
	}
	if !task.Completed() {
		t.Fatal("task must be completed after expiry")
	}

	// The transition is reported exactly once.
	run, justCompleted = task.shouldRun(time.Now(), 1)
	if run || justCompleted {
		t.Fatalf("second check = (%v, %v), want (false, false)", run, justCompleted)
	}
}

func TestExecuteCountsAndCompletes(t *testing.T) {
	t.Parallel()
	task, err := NewTask(TaskOptions{TotalRuns: 2, Callback: noop})
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	now := time.Now()

	just, execErr := task.execute(now)
	if execErr != nil || just {
		t.Fatalf("first execute = (%v, %v), want (false, nil)", just, execErr)
	}
	just, execErr = task.execute(now)
	if execErr != nil {
		t.Fatalf("second execute err = %v", execErr)
	}
	if !just {
		t.Fatal("second execute must report the completion transition")
	}
	if got := task.CurrentRuns(); got != 2 {
		t.Fatalf("CurrentRuns = %d, want 2", got)
	}
}

func TestExecuteSurvivesPanic(t *testing.T) {
	t.Parallel()
	task, err := NewTask(TaskOptions{TotalRuns: 1, Callback: func(*Task) error { panic("nope") }})
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}

	just, execErr := task.execute(time.Now())
	if execErr == nil || !strings.Contains(execErr.Error(), "callback panic") {
		t.Fatalf("execute err = %v, want recovered panic", execErr)
	}
	if !just {
		t.Fatal("run bookkeeping must proceed despite the panic")
	}
	if got := task.CurrentRuns(); got != 1 {
		t.Fatalf("CurrentRuns = %d, want 1", got)
	}
}

func TestCallbackSeesOwnTask(t *testing.T) {
	t.Parallel()
	var seen string
	task, err := NewTask(TaskOptions{
		Name:     "introspective",
		Callback: func(self *Task) error { seen = self.Name(); return nil },
	})
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	if _, err := task.execute(time.Now()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if seen != "introspective" {
		t.Fatalf("callback saw %q, want its own task", seen)
	}
}
