package remote

import (
	"sync"
	"time"
)

// DefaultPushDelay is the quiescence window before a snapshot push.
const DefaultPushDelay = time.Second

// Debouncer runs fn once after calls to Trigger have stopped for delay.
// fn is expected to read the latest state itself, so a burst of triggers
// results in a single run that sees the final state.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	pending bool
	closed  bool
	running sync.WaitGroup
}

// NewDebouncer returns a Debouncer running fn; a non-positive delay means DefaultPushDelay.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	if delay <= 0 {
		delay = DefaultPushDelay
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger cancels any pending run and schedules a new one.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.cancelLocked()
	d.seq++
	seq := d.seq
	d.pending = true
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush runs a scheduled task right away. It does nothing when nothing is pending.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if !d.pending || d.closed {
		d.mu.Unlock()
		return
	}
	d.cancelLocked()
	d.running.Add(1)
	d.mu.Unlock()

	defer d.running.Done()
	d.fn()
}

// Stop cancels a scheduled task without running it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Close flushes a scheduled task, waits for running ones and rejects
// further triggers.
func (d *Debouncer) Close() {
	d.Flush()

	d.mu.Lock()
	d.closed = true
	d.cancelLocked()
	d.mu.Unlock()

	d.running.Wait()
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if d.closed || !d.pending || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.running.Add(1)
	d.mu.Unlock()

	defer d.running.Done()
	d.fn()
}

// cancelLocked must be called with mu held.
func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
	d.seq++
}
