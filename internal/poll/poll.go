// Package poll provides the readiness-polling primitive used by the
// orchestrators to bound waits on cluster and database state.
package poll

import (
	"context"
	"time"

	"k8s.io/utils/clock"
)

// DefaultInterval is the fixed delay between probe attempts.
const DefaultInterval = 5 * time.Second

// Probe inspects external state. Errors are treated as "not ready yet" and
// retried until the deadline.
type Probe func(ctx context.Context) (bool, error)

// Poller repeatedly evaluates a probe at a fixed interval until it succeeds
// or a deadline passes. The zero value uses DefaultInterval and the real
// clock; tests inject a fake clock.
type Poller struct {
	Interval time.Duration
	Clock    clock.Clock
}

// New returns a Poller with the given interval and the real clock.
func New(interval time.Duration) *Poller {
	return &Poller{Interval: interval, Clock: clock.RealClock{}}
}

// Wait polls probe until it returns true, the deadline elapses, or ctx is
// cancelled. Deadline exceeded returns false rather than an error; callers
// decide whether that is fatal.
func (p *Poller) Wait(ctx context.Context, deadline time.Duration, probe Probe) bool {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	c := p.Clock
	if c == nil {
		c = clock.RealClock{}
	}

	deadlineAt := c.Now().Add(deadline)
	for {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		ok, err := probe(ctx)
		if err == nil && ok {
			return true
		}

		remaining := deadlineAt.Sub(c.Now())
		if remaining <= 0 {
			return false
		}
		wait := interval
		if wait > remaining {
			wait = remaining
		}

		timer := c.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C():
		}
	}
}
