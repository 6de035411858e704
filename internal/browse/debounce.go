package browse

import (
	"sync"
	"time"
)

// Debouncer runs only the most recently scheduled task, after a quiet period.
// Scheduling a task cancels the one still pending.
type Debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	timer  *time.Timer
	seq    uint64
	firing int
	closed bool
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule replaces any pending task with fn.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.stopLocked()
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// a newer Schedule or Cancel may have raced with this timer firing
		if d.closed || d.seq != seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.firing++
		d.mu.Unlock()

		fn()

		d.mu.Lock()
		d.firing--
		d.mu.Unlock()
	})
}

// Cancel drops the pending task, if any. A task already running is not
// interrupted.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.seq++
}

// Pending reports whether a task is waiting to fire or still running.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil || d.firing > 0
}

// Stop cancels the pending task and refuses further ones.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.seq++
	d.closed = true
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
