package daemon

import (
	"errors"

	tasktimer "github.com/sliterok/tasktimer"
	"github.com/sliterok/tasktimer/internal/config"
	"github.com/sliterok/tasktimer/pkg/logx"
)

// Apply reconciles a new config against the running service: timer knobs
// are retuned in place and the task set is diffed by name. A changed task
// is replaced wholesale, which restarts its run counters. History
// location changes need a restart and are only reported.
func (s *Service) Apply(cfg *config.Config) error {
	interval, err := cfg.Timer.ParseInterval()
	if err != nil {
		return err
	}
	retention, err := cfg.History.ParseRetention()
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	s.retention = retention
	s.mu.Unlock()

	s.timer.SetInterval(interval)
	s.timer.SetStopOnCompleted(cfg.Timer.StopOnCompleted)

	if old != nil && (old.History.Enabled != cfg.History.Enabled || old.History.Path != cfg.History.Path ||
		old.History.Schedule() != cfg.History.Schedule()) {
		s.log.Warn("history backend/schedule changes require a restart")
	}

	var oldTasks map[string]config.TaskConfig
	if old != nil {
		oldTasks = taskConfigsByName(old.Tasks)
	}
	newTasks := taskConfigsByName(cfg.Tasks)

	for name := range oldTasks {
		if _, keep := newTasks[name]; keep {
			continue
		}
		if err := s.timer.Remove(name); err != nil && !errors.Is(err, tasktimer.ErrTaskNotFound) {
			s.log.Warn("task remove failed", logx.String("task", name), logx.Err(err))
		}
	}

	for _, tc := range cfg.Tasks {
		oldTC, existed := oldTasks[tc.Name]
		if existed && oldTC == tc {
			continue
		}
		if existed {
			// replace: drop the old definition first
			if err := s.timer.Remove(tc.Name); err != nil && !errors.Is(err, tasktimer.ErrTaskNotFound) {
				s.log.Warn("task replace failed", logx.String("task", tc.Name), logx.Err(err))
				continue
			}
		}
		topts, err := s.taskOptions(tc)
		if err != nil {
			s.log.Warn("task config invalid", logx.String("task", tc.Name), logx.Err(err))
			continue
		}
		if err := s.timer.Add(topts); err != nil {
			s.log.Warn("task add failed", logx.String("task", tc.Name), logx.Err(err))
		}
	}

	s.log.Info("config applied",
		logx.Duration("interval", interval),
		logx.Int("tasks", s.timer.TaskCount()))
	return nil
}

func taskConfigsByName(tasks []config.TaskConfig) map[string]config.TaskConfig {
	m := make(map[string]config.TaskConfig, len(tasks))
	for _, tc := range tasks {
		m[tc.Name] = tc
	}
	return m
}
