package orgsite

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(max int, window time.Duration) (*LoginLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)}
	l := NewLoginLimiter(max, window)
	l.now = clock.now
	return l, clock
}

func TestLoginLimiterBlocksAfterMax(t *testing.T) {
	limiter, _ := newTestLimiter(2, time.Minute)
	ip := "203.0.113.10"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if !limiter.Allow(ip) {
		t.Fatalf("expected second attempt to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected third attempt to be blocked")
	}
}

func TestLoginLimiterResetsAfterWindow(t *testing.T) {
	limiter, clock := newTestLimiter(1, time.Minute)
	ip := "203.0.113.20"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected second attempt to be blocked")
	}

	clock.advance(61 * time.Second)
	if !limiter.Allow(ip) {
		t.Fatalf("expected attempt after window to be allowed")
	}
}

func TestLoginLimiterIsPerIP(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)

	if !limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be allowed")
	}
	if !limiter.Allow("203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after max")
	}
}

func TestLoginLimiterCheckDoesNotConsume(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)
	ip := "203.0.113.40"

	for i := 0; i < 3; i++ {
		if !limiter.Check(ip) {
			t.Fatalf("check %d should not use up the budget", i)
		}
	}
	limiter.Record(ip)
	if limiter.Check(ip) {
		t.Fatalf("expected ip to be blocked after a recorded failure")
	}
}

func TestLoginLimiterForgetsIdleIPs(t *testing.T) {
	limiter, clock := newTestLimiter(1, time.Minute)
	limiter.Record("203.0.113.50")

	clock.advance(2 * time.Minute)
	limiter.Check("203.0.113.51")

	if _, ok := limiter.buckets["203.0.113.50"]; ok {
		t.Fatalf("expected idle bucket to be dropped")
	}
}
