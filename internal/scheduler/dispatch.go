package scheduler

import (
	"context"
	"sync"
	"time"

	"remindbot/internal/remind"
	logx "remindbot/pkg/logx"
)

// Dispatch owns the live reminder queue and the single timer armed at
// the queue head's due time.
//
// States: Idle (queue empty, no timer) and Armed (timer set to fire at
// queue[0].DueAt). All queue mutations happen under mu; the drain
// releases mu only around the actual delivery call, popping one head at
// a time, so a concurrent ReplaceQueue takes effect for every reminder
// not yet handed to the dispatcher.
type Dispatch struct {
	dispatcher Dispatcher
	log        logx.Logger

	// now is split out for tests.
	now func() time.Time

	mu      sync.Mutex
	ctx     context.Context
	queue   []remind.Reminder
	timer   *time.Timer
	armedAt time.Time

	// gen invalidates timers that were already past Stop() when the
	// queue was swapped: a fire whose generation no longer matches is a
	// stale wake-up and must do nothing.
	gen uint64

	// draining marks an in-flight drain loop. While set, ReplaceQueue
	// must not arm a second timer; the drain re-arms when it finishes.
	draining bool
}

func NewDispatch(dispatcher Dispatcher, log logx.Logger) *Dispatch {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatch{
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
		ctx:        context.Background(),
	}
}

// Start installs the context handed to dispatch calls. It does not spawn
// anything; the scheduler only runs work inside timer callbacks.
func (d *Dispatch) Start(ctx context.Context) {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()
}

// Stop disarms the timer and drops the queue. Safe to call when Idle.
func (d *Dispatch) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.armedAt = time.Time{}
	d.queue = nil
}

// ReplaceQueue atomically installs q as the live queue, cancelling any
// armed timer and re-arming against the new head (Idle when q is empty).
//
// Idempotent with respect to concurrent firing: if a drain is already in
// flight, the replacement takes effect for every reminder after the
// dispatch currently executing, and the drain re-arms from the new queue.
func (d *Dispatch) ReplaceQueue(q []remind.Reminder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.queue = append([]remind.Reminder(nil), q...)
	if d.draining {
		return
	}
	d.armLocked()
}

// Queue returns a snapshot of the pending queue. Used by the sync
// controller for structural change detection.
func (d *Dispatch) Queue() []remind.Reminder {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]remind.Reminder(nil), d.queue...)
}

// Armed reports the current timer target, if any.
func (d *Dispatch) Armed() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armedAt, d.timer != nil
}

// armLocked cancels any pending timer and arms against the queue head.
// A head already in the past fires immediately. Caller holds mu.
func (d *Dispatch) armLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.armedAt = time.Time{}
	if len(d.queue) == 0 {
		d.log.Debug("scheduler idle")
		return
	}
	due := d.queue[0].DueAt
	gen := d.gen
	d.armedAt = due
	d.timer = time.AfterFunc(due.Sub(d.now()), func() { d.fire(gen) })
	d.log.Debug("scheduler armed", logx.Time("due", due), logx.Int("pending", len(d.queue)))
}

// fire runs when the armed timer elapses: drain every due reminder
// oldest-first, one at a time, then re-arm against the new head.
//
// Catch-up policy: after a stall or restart every reminder whose due
// time has passed is still in the queue and is delivered now, in order,
// within this single wake.
func (d *Dispatch) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.draining {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.armedAt = time.Time{}
	d.draining = true
	ctx := d.ctx

	dispatched, failed := 0, 0
	for len(d.queue) > 0 && !d.queue[0].DueAt.After(d.now()) {
		head := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		// Delivery happens without the lock so a sync pass can swap the
		// queue mid-drain. A failure consumes the reminder regardless.
		if err := d.dispatcher.Dispatch(ctx, head); err != nil {
			failed++
		}
		dispatched++

		d.mu.Lock()
	}

	d.draining = false
	d.armLocked()
	d.mu.Unlock()

	if dispatched > 0 {
		d.log.Debug("drain complete", logx.Int("dispatched", dispatched), logx.Int("failed", failed))
	}
}
