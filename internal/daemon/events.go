package daemon

import (
	tasktimer "github.com/sliterok/tasktimer"
	"github.com/sliterok/tasktimer/pkg/logx"
)

// subscribeEvents maps every timer event onto structured logs. Tick and
// per-run events are rate-limited so a 10ms interval doesn't flood the
// sinks.
func (s *Service) subscribeEvents() {
	var offs []func()
	on := func(typ tasktimer.EventType, fn func(tasktimer.Event)) {
		offs = append(offs, s.timer.On(typ, fn))
	}

	on(tasktimer.EventStarted, func(tasktimer.Event) {
		s.log.Info("timer started", logx.Duration("interval", s.timer.Interval()))
	})
	on(tasktimer.EventPaused, func(tasktimer.Event) {
		s.log.Info("timer paused", logx.Int("tick", s.timer.TickCount()))
	})
	on(tasktimer.EventResumed, func(tasktimer.Event) {
		s.log.Info("timer resumed", logx.Int("tick", s.timer.TickCount()))
	})
	on(tasktimer.EventStopped, func(tasktimer.Event) {
		s.log.Info("timer stopped",
			logx.Int("ticks", s.timer.TickCount()),
			logx.Int("runs", s.timer.RunCount()))
	})
	on(tasktimer.EventReset, func(tasktimer.Event) {
		s.log.Info("timer reset")
	})

	on(tasktimer.EventTaskAdded, func(e tasktimer.Event) {
		s.log.Info("task added",
			logx.String("task", e.Task.Name()),
			logx.Int("tick_interval", e.Task.TickInterval()),
			logx.Int("total_runs", e.Task.TotalRuns()))
	})
	on(tasktimer.EventTaskRemoved, func(e tasktimer.Event) {
		s.log.Info("task removed",
			logx.String("task", e.Task.Name()),
			logx.Int("runs", e.Task.CurrentRuns()))
	})
	on(tasktimer.EventTaskCompleted, func(e tasktimer.Event) {
		s.log.Info("task completed",
			logx.String("task", e.Task.Name()),
			logx.Int("runs", e.Task.CurrentRuns()))
	})
	on(tasktimer.EventCompleted, func(tasktimer.Event) {
		s.log.Info("all tasks completed", logx.Int("tasks", s.timer.TaskCount()))
	})

	on(tasktimer.EventTask, func(e tasktimer.Event) {
		if s.tickLog.Allow() {
			s.log.Debug("task ran",
				logx.String("task", e.Task.Name()),
				logx.Int("runs", e.Task.CurrentRuns()))
		}
	})
	on(tasktimer.EventTick, func(tasktimer.Event) {
		if s.tickLog.Allow() {
			s.log.Debug("tick", logx.Int("count", s.timer.TickCount()))
		}
	})
	on(tasktimer.EventTaskError, func(e tasktimer.Event) {
		s.log.Error("task failed",
			logx.String("task", e.Task.Name()),
			logx.Int("runs", e.Task.CurrentRuns()),
			logx.Err(e.Err))
	})

	s.mu.Lock()
	s.offs = append(s.offs, offs...)
	s.mu.Unlock()
}
