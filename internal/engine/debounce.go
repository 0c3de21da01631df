// internal/engine/debounce.go
package engine

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of rapid trigger events into one delayed
// invocation per project. Each new event cancels and restarts the pending
// timer; the action runs only once the burst goes quiet. An optional
// max-wait ceiling keeps continuous activity from deferring the action
// forever.
type Debouncer struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	first  map[string]time.Time
}

func NewDebouncer() *Debouncer {
	return &Debouncer{
		timers: make(map[string]*time.Timer),
		first:  make(map[string]time.Time),
	}
}

// Schedule arms (or re-arms) the project's timer. If maxWait > 0 and the
// project has been continuously deferred for that long, action runs now
// instead of being pushed out again.
func (d *Debouncer) Schedule(projectID string, delay, maxWait time.Duration, action func()) {
	d.mu.Lock()

	if t, ok := d.timers[projectID]; ok {
		t.Stop()
	} else {
		d.first[projectID] = time.Now()
	}

	if maxWait > 0 && time.Since(d.first[projectID]) >= maxWait {
		delete(d.timers, projectID)
		delete(d.first, projectID)
		d.mu.Unlock()
		go action()
		return
	}

	d.timers[projectID] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.timers, projectID)
		delete(d.first, projectID)
		d.mu.Unlock()
		action()
	})
	d.mu.Unlock()
}

// Cancel drops the project's pending timer, if any.
func (d *Debouncer) Cancel(projectID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[projectID]; ok {
		t.Stop()
		delete(d.timers, projectID)
		delete(d.first, projectID)
	}
}

// Stop cancels every pending timer.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
		delete(d.first, id)
	}
}
