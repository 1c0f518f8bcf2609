// Package ticker provides the periodic wakeup primitive a Timer runs on.
//
// The contract is deliberately loose: Schedule invokes the callback
// repeatedly at roughly the requested spacing until the handle is canceled.
// No wall-clock precision is promised. Callbacks for one handle are always
// invoked serially from a single goroutine.
package ticker

import (
	"sync"
	"time"
)

// Handle cancels a scheduled wakeup stream.
type Handle interface {
	// Cancel stops future wakeups. A callback already in flight runs to
	// completion. Cancel is idempotent and safe to call from within the
	// callback itself.
	Cancel()
}

// Clock schedules a callback to fire repeatedly until canceled.
type Clock interface {
	Schedule(interval time.Duration, fn func()) Handle
}

// Wall returns a Clock backed by time.Ticker.
func Wall() Clock { return wallClock{} }

type wallClock struct{}

func (wallClock) Schedule(interval time.Duration, fn func()) Handle {
	h := &wallHandle{stop: make(chan struct{})}
	go func() {
		tk := time.NewTicker(interval)
		defer tk.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-tk.C:
				// The ticker channel and the stop channel may both be
				// ready; re-check so a canceled stream never fires again.
				select {
				case <-h.stop:
					return
				default:
				}
				fn()
			}
		}
	}()
	return h
}

type wallHandle struct {
	once sync.Once
	stop chan struct{}
}

func (h *wallHandle) Cancel() {
	h.once.Do(func() { close(h.stop) })
}
