package storage

import (
	"context"
	"errors"
	"time"
)

type Config struct {
	Enabled     bool
	Path        string
	BusyTimeout time.Duration
}

// RunRecord is one task execution.
type RunRecord struct {
	Task     string
	Tick     int
	RunIndex int
	At       time.Time
	Took     time.Duration
	OK       bool
	Error    string
}

type Store interface {
	AppendRun(ctx context.Context, r RunRecord) error
	RecentRuns(ctx context.Context, task string, limit int) ([]RunRecord, error)
	// PruneBefore removes records older than cutoff and reports how many
	// were deleted.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// ErrDisabled is returned by stores that are configured off.
var ErrDisabled = errors.New("storage: disabled")
