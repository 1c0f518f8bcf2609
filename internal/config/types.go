// Package config loads and watches the tasktimerd configuration file.
//
// The file may be YAML or JSON; YAML is coerced to JSON so both formats
// go through the same strict decoder (unknown fields are rejected).
package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Log     LogConfig     `json:"log"`
	Timer   TimerConfig   `json:"timer"`
	History HistoryConfig `json:"history"`
	Tasks   []TaskConfig  `json:"tasks"`
}

type LogConfig struct {
	Level   string `json:"level"`
	Console bool   `json:"console"`
	File    string `json:"file"`
}

type TimerConfig struct {
	// Interval is the base tick resolution as a duration string ("500ms",
	// "1s"). Defaults to 1s.
	Interval string `json:"interval"`

	// StopOnCompleted stops the timer once every task has completed.
	StopOnCompleted bool `json:"stop_on_completed"`
}

type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`

	// Retention bounds how long run records are kept. Defaults to 168h.
	Retention string `json:"retention"`

	// PruneSchedule is a cron spec for the retention sweep.
	// Defaults to "0 3 * * *".
	PruneSchedule string `json:"prune_schedule"`
}

type TaskConfig struct {
	Name string `json:"name"`

	// Command is run through `sh -c` on each eligible tick.
	Command string `json:"command"`

	TickInterval int    `json:"tick_interval"`
	TotalRuns    int    `json:"total_runs"`
	StopDate     string `json:"stop_date"` // RFC 3339
	Timeout      string `json:"timeout"`   // per-run command timeout
	Disabled     bool   `json:"disabled"`
}

// Validate checks the whole config and reports the first problem with its
// field path.
func (c *Config) Validate() error {
	if _, err := c.Timer.ParseInterval(); err != nil {
		return err
	}
	if _, err := c.History.ParseRetention(); err != nil {
		return err
	}
	seen := map[string]bool{}
	for i := range c.Tasks {
		t := &c.Tasks[i]
		path := fmt.Sprintf("tasks[%d]", i)
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("%s: name is required", path)
		}
		if seen[t.Name] {
			return fmt.Errorf("%s: duplicate task name %q", path, t.Name)
		}
		seen[t.Name] = true
		if strings.TrimSpace(t.Command) == "" {
			return fmt.Errorf("%s: command is required", path)
		}
		if t.TickInterval < 0 {
			return fmt.Errorf("%s: tick_interval must be >= 1", path)
		}
		if t.TotalRuns < 0 {
			return fmt.Errorf("%s: total_runs must be >= 0", path)
		}
		if _, err := t.ParseStopDate(); err != nil {
			return err
		}
		if _, err := t.ParseTimeout(); err != nil {
			return err
		}
	}
	return nil
}

func (c TimerConfig) ParseInterval() (time.Duration, error) {
	return durationOr("timer.interval", c.Interval, time.Second)
}

func (c HistoryConfig) ParseRetention() (time.Duration, error) {
	return durationOr("history.retention", c.Retention, 168*time.Hour)
}

func (c HistoryConfig) Schedule() string {
	if strings.TrimSpace(c.PruneSchedule) == "" {
		return "0 3 * * *"
	}
	return c.PruneSchedule
}

func (t TaskConfig) ParseStopDate() (time.Time, error) {
	s := strings.TrimSpace(t.StopDate)
	if s == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("task %q: invalid stop_date %q: %w", t.Name, t.StopDate, err)
	}
	return ts, nil
}

func (t TaskConfig) ParseTimeout() (time.Duration, error) {
	return durationOr("task "+t.Name+" timeout", t.Timeout, time.Minute)
}

// durationOr parses an optional duration field: empty or zero falls back
// to def, negative is rejected.
func durationOr(field, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: %q must not be negative", field, raw)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
