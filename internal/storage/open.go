package storage

import (
	"context"
	"time"

	"github.com/sliterok/tasktimer/pkg/logx"
)

// Open returns the configured store: SQLite when history is enabled, a
// no-op store otherwise.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	return openSQLite(cfg, log)
}

// Noop returns a store that drops writes and returns empty reads.
func Noop() Store { return noopStore{} }

type noopStore struct{}

func (noopStore) AppendRun(context.Context, RunRecord) error { return nil }
func (noopStore) RecentRuns(context.Context, string, int) ([]RunRecord, error) {
	return nil, nil
}
func (noopStore) PruneBefore(context.Context, time.Time) (int64, error) { return 0, nil }
func (noopStore) Close() error                                          { return nil }
