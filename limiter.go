package orgsite

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter rate-limits login attempts per IP address with a token bucket
// per key: max attempts at once, refilled over window.
type LoginLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

type bucket struct {
	limiter *rate.Limiter
	expires time.Time
}

// NewLoginLimiter creates a LoginLimiter that allows max attempts per window.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	if max < 1 {
		max = 1
	}
	return &LoginLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(window / time.Duration(max)),
		burst:   max,
		idle:    window,
		now:     time.Now,
	}
}

// get returns the bucket for ip, dropping idle buckets on the way. Callers
// hold l.mu.
func (l *LoginLimiter) get(ip string, now time.Time) *rate.Limiter {
	for key, b := range l.buckets {
		if now.After(b.expires) {
			delete(l.buckets, key)
		}
	}
	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.expires = now.Add(l.idle)
	return b.limiter
}

// Allow checks if the IP has not exceeded the rate limit and records the attempt.
func (l *LoginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	return l.get(ip, now).AllowN(now, 1)
}

// Check returns true if the IP has not exceeded the rate limit.
// It does not record an attempt; call Record separately on failure.
func (l *LoginLimiter) Check(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	return l.get(ip, now).TokensAt(now) >= 1
}

// Record registers a failed login attempt for the given IP.
func (l *LoginLimiter) Record(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.get(ip, now).AllowN(now, 1)
}
