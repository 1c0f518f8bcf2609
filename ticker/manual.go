package ticker

import (
	"sync"
	"time"
)

// Manual is a Clock driven explicitly by the caller, for deterministic
// tests: each Advance step fires the scheduled callback synchronously.
type Manual struct {
	mu       sync.Mutex
	interval time.Duration
	fn       func()
	active   bool
}

// NewManual returns a manual clock with nothing scheduled.
func NewManual() *Manual { return &Manual{} }

func (m *Manual) Schedule(interval time.Duration, fn func()) Handle {
	m.mu.Lock()
	m.interval = interval
	m.fn = fn
	m.active = true
	m.mu.Unlock()
	return manualHandle{m}
}

// Advance fires up to n wakeups, stopping early if the stream is canceled
// (possibly by the callback itself).
func (m *Manual) Advance(n int) {
	for i := 0; i < n; i++ {
		m.mu.Lock()
		fn := m.fn
		active := m.active
		m.mu.Unlock()
		if !active || fn == nil {
			return
		}
		fn()
	}
}

// Interval reports the spacing most recently passed to Schedule.
func (m *Manual) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval
}

// Active reports whether a wakeup stream is scheduled and not canceled.
func (m *Manual) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

type manualHandle struct{ m *Manual }

func (h manualHandle) Cancel() {
	h.m.mu.Lock()
	h.m.active = false
	h.m.mu.Unlock()
}
