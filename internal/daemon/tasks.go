package daemon

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	tasktimer "github.com/sliterok/tasktimer"
	"github.com/sliterok/tasktimer/internal/config"
	"github.com/sliterok/tasktimer/internal/storage"
	"github.com/sliterok/tasktimer/pkg/logx"
)

// taskOptions turns one config entry into timer task options whose
// callback runs the configured command and records the result.
func (s *Service) taskOptions(tc config.TaskConfig) (tasktimer.TaskOptions, error) {
	stopDate, err := tc.ParseStopDate()
	if err != nil {
		return tasktimer.TaskOptions{}, err
	}
	timeout, err := tc.ParseTimeout()
	if err != nil {
		return tasktimer.TaskOptions{}, err
	}
	tickInterval := tc.TickInterval
	if tickInterval < 1 {
		tickInterval = 1
	}
	return tasktimer.TaskOptions{
		Name:         tc.Name,
		TickInterval: tickInterval,
		TotalRuns:    tc.TotalRuns,
		StopDate:     stopDate,
		Disabled:     tc.Disabled,
		Callback:     s.commandCallback(tc.Command, timeout),
	}, nil
}

func (s *Service) commandCallback(command string, timeout time.Duration) tasktimer.Callback {
	return func(task *tasktimer.Task) error {
		ctx := s.runContext()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		out, err := cmd.CombinedOutput()
		took := time.Since(start)

		rec := storage.RunRecord{
			Task:     task.Name(),
			Tick:     s.timer.TickCount(),
			RunIndex: task.CurrentRuns() + 1,
			At:       start,
			Took:     took,
			OK:       err == nil,
		}
		if err != nil {
			rec.Error = err.Error()
		}
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		if serr := s.store.AppendRun(sctx, rec); serr != nil {
			s.log.Warn("history write failed",
				logx.String("task", task.Name()), logx.Err(serr))
		}
		scancel()

		if err != nil {
			return fmt.Errorf("command failed: %w: %s", err, firstLine(out))
		}
		return nil
	}
}

// firstLine trims command output down to something loggable.
func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
