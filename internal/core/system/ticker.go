package system

import (
	"context"
	"time"
)

// Ticker calls a function at a fixed rate on a virtual schedule: each tick
// is due one interval after the previous one was due, not after it
// finished. A loop that falls behind runs the next tick at once and never
// queues catch-up ticks.
type Ticker struct {
	interval time.Duration
	now      func() time.Time
}

func NewTicker(interval time.Duration) *Ticker {
	return &Ticker{interval: interval, now: time.Now}
}

// nextDelay returns how long to wait for the tick due at next, and the due
// time to use. More than one interval behind, the schedule is re-anchored
// at now.
func nextDelay(now, next time.Time, interval time.Duration) (time.Duration, time.Time) {
	d := next.Sub(now)
	if d > 0 {
		return d, next
	}
	if -d > interval {
		return 0, now
	}
	return 0, next
}

// Run blocks calling tick until ctx is cancelled. Cancellation is observed
// between ticks only.
func (t *Ticker) Run(ctx context.Context, tick func(dt time.Duration)) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	next := t.now()
	for {
		delay, due := nextDelay(t.now(), next, t.interval)
		next = due
		if delay > 0 {
			timer.Reset(delay)
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return
		}
		tick(t.interval)
		next = next.Add(t.interval)
	}
}
