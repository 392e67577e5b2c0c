package monitor

import (
	"context"
	"time"
)

// DefaultInterval is the pause between polls when nothing else is configured.
const DefaultInterval = 30 * time.Second

// Policy controls poll pacing. The zero value polls every DefaultInterval
// forever, relying on the service's own timeout to end the run.
type Policy struct {
	// Interval is the first pause between polls.
	Interval time.Duration
	// MaxInterval caps the pause once backoff grows it. Values below Interval
	// keep the pause fixed.
	MaxInterval time.Duration
	// Multiplier grows the pause after every non-terminal poll. Values <= 1
	// disable backoff.
	Multiplier float64
	// Jitter spreads each pause by up to ±Jitter of its length (0..1).
	Jitter float64
	// MaxWait abandons a run that is still not terminal after this long.
	// Zero disables the cap.
	MaxWait time.Duration
}

// DefaultPolicy returns the fixed 30 second, uncapped policy.
func DefaultPolicy() Policy {
	return Policy{Interval: DefaultInterval}
}

func (p Policy) normalized() Policy {
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	if p.MaxInterval < p.Interval {
		p.MaxInterval = p.Interval
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Jitter > 1 {
		p.Jitter = 1
	}
	if p.MaxWait < 0 {
		p.MaxWait = 0
	}
	return p
}

// next grows the pause by the multiplier without passing MaxInterval.
func (p Policy) next(current time.Duration) time.Duration {
	grown := time.Duration(float64(current) * p.Multiplier)
	if grown > p.MaxInterval || grown <= 0 {
		return p.MaxInterval
	}
	return grown
}

// spread applies jitter using r, a uniform sample in [0,1).
func (p Policy) spread(d time.Duration, r float64) time.Duration {
	if p.Jitter == 0 {
		return d
	}
	offset := (r*2 - 1) * p.Jitter * float64(d)
	spread := time.Duration(float64(d) + offset)
	if spread <= 0 {
		return time.Millisecond
	}
	return spread
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
