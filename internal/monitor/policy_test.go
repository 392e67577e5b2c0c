package monitor

import (
	"testing"
	"time"
)

func TestPolicyDefaultsToFixedInterval(t *testing.T) {
	p := Policy{}.normalized()
	if p.Interval != DefaultInterval || p.MaxInterval != DefaultInterval {
		t.Fatalf("unexpected defaults %+v", p)
	}
	if got := p.next(p.Interval); got != DefaultInterval {
		t.Fatalf("expected fixed interval, got %s", got)
	}
}

func TestPolicyBackoffIsCapped(t *testing.T) {
	p := Policy{Interval: 10 * time.Second, MaxInterval: 25 * time.Second, Multiplier: 2}.normalized()
	first := p.next(p.Interval)
	if first != 20*time.Second {
		t.Fatalf("expected 20s, got %s", first)
	}
	if second := p.next(first); second != 25*time.Second {
		t.Fatalf("expected cap at 25s, got %s", second)
	}
}

func TestPolicyJitterStaysInBounds(t *testing.T) {
	p := Policy{Interval: 10 * time.Second, Jitter: 0.5}.normalized()
	if got := p.spread(10*time.Second, 0); got != 5*time.Second {
		t.Fatalf("expected lower bound 5s, got %s", got)
	}
	if got := p.spread(10*time.Second, 0.5); got != 10*time.Second {
		t.Fatalf("expected midpoint 10s, got %s", got)
	}
	if got := (Policy{Jitter: 0}).spread(time.Second, 0.9); got != time.Second {
		t.Fatalf("zero jitter must not change the pause, got %s", got)
	}
}

func TestPolicyClampsInvalidValues(t *testing.T) {
	p := Policy{Interval: time.Second, Multiplier: 0.5, Jitter: 3, MaxWait: -time.Second}.normalized()
	if p.Multiplier != 1 || p.Jitter != 1 || p.MaxWait != 0 {
		t.Fatalf("unexpected clamped policy %+v", p)
	}
}
