package daemon

import (
	sd "github.com/coreos/go-systemd/v22/daemon"

	tasktimer "github.com/sliterok/tasktimer"
	"github.com/sliterok/tasktimer/pkg/logx"
)

const watchdogTaskName = "systemd-watchdog"

// registerWatchdog wires the systemd watchdog into the timer itself: when
// WatchdogSec is set on the unit, a dedicated unbounded task issues
// WATCHDOG=1 keepalives on a tick cadence of roughly half the watchdog
// window. Outside systemd this is a no-op.
//
// The keepalive task never completes, so stop_on_completed cannot trigger
// while it is registered; the combination is reported once.
func (s *Service) registerWatchdog() {
	window, err := sd.SdWatchdogEnabled(false)
	if err != nil || window <= 0 {
		return
	}

	interval := s.timer.Interval()
	ticks := int(window / 2 / interval)
	if ticks < 1 {
		ticks = 1
	}

	addErr := s.timer.Add(tasktimer.TaskOptions{
		Name:         watchdogTaskName,
		TickInterval: ticks,
		Callback: func(*tasktimer.Task) error {
			_, nerr := sd.SdNotify(false, sd.SdNotifyWatchdog)
			return nerr
		},
	})
	if addErr != nil {
		s.log.Warn("watchdog task not registered", logx.Err(addErr))
		return
	}
	if s.timer.StopOnCompleted() {
		s.log.Warn("stop_on_completed is ineffective while the systemd watchdog task is registered")
	}
	s.log.Info("systemd watchdog keepalive registered",
		logx.Duration("window", window), logx.Int("tick_interval", ticks))
}
