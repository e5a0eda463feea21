package session

import (
	"sync"
	"time"

	"github.com/shopscope/shopscope/internal/metrics"
)

// scheduleFunc abstracts time.AfterFunc so tests can fire pending work
// deterministically.
type scheduleFunc func(d time.Duration, fn func()) *time.Timer

// debouncer holds at most one pending call. Each Trigger replaces the
// pending call, so a burst of mutations inside the quiescence window
// collapses into a single execution of the last one.
type debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	schedule scheduleFunc
	pending  *time.Timer
}

func newDebouncer(interval time.Duration, schedule scheduleFunc) *debouncer {
	if schedule == nil {
		schedule = time.AfterFunc
	}
	return &debouncer{interval: interval, schedule: schedule}
}

// Trigger schedules fn after the quiescence window, replacing any
// pending call.
func (d *debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil && d.pending.Stop() {
		metrics.DebounceCoalescedTotal.Inc()
	}
	d.pending = d.schedule(d.interval, fn)
}

// Cancel drops the pending call, if any.
func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
