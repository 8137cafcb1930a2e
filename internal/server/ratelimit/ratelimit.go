// Package ratelimit throttles API clients with one token bucket per client and rule.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultRule labels requests that match no configured rule.
const DefaultRule = "default"

// bucket refills continuously at rate tokens per second up to capacity.
type bucket struct {
	capacity float64
	rate     float64
	tokens   float64
	updated  time.Time
	lastSeen time.Time
}

func newBucket(capacity int, rate float64, now time.Time) *bucket {
	return &bucket{
		capacity: float64(capacity),
		rate:     rate,
		tokens:   float64(capacity),
		updated:  now,
		lastSeen: now,
	}
}

// take refills the bucket up to now and consumes one token when available.
// The reset time is when the bucket will be full again; retry is the wait for
// the next token after a refusal.
func (b *bucket) take(now time.Time) (ok bool, remaining int, reset time.Time, retry time.Duration) {
	if elapsed := now.Sub(b.updated); elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed.Seconds()*b.rate)
		b.updated = now
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		ok = true
	} else {
		retry = seconds((1 - b.tokens) / b.rate)
	}

	reset = now
	if missing := b.capacity - b.tokens; missing > 0 {
		reset = now.Add(seconds(missing / b.rate))
	}
	return ok, int(b.tokens), reset, retry
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Info describes the outcome of one Allow call.
type Info struct {
	Allowed    bool
	Rule       string // matched rule path, DefaultRule, or "" when not limited
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter holds the buckets of every active client.
type Limiter struct {
	config *Config
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stop chan struct{}
	once sync.Once
}

// NewLimiter creates a limiter. A nil config enables the default limits only.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
		}
	}

	l := &Limiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		go l.evictLoop(config.CleanupInterval)
	}
	return l
}

// Allow reports whether the client may call method on path now. Requests
// matching the same rule share a bucket whatever their path parameters.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Trusted[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blocked[clientID] {
		return false, Info{Allowed: false}
	}

	rule := Match(path, method, l.config.Rules)
	name := DefaultRule
	if rule == nil {
		rule = &Rule{Limit: l.config.DefaultLimit, Window: l.config.DefaultWindow, Burst: l.config.DefaultLimit}
	} else {
		name = rule.Path
	}
	if rule.Limit <= 0 || rule.Window <= 0 {
		return true, Info{Allowed: true}
	}

	now := l.now()
	key := clientID + " " + method + " " + name

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = newBucket(rule.capacity(), float64(rule.Limit)/rule.Window.Seconds(), now)
		l.buckets[key] = b
	}
	allowed, remaining, reset, retry := b.take(now)
	l.mu.Unlock()

	return allowed, Info{
		Allowed:    allowed,
		Rule:       name,
		Limit:      rule.Limit,
		Remaining:  remaining,
		ResetTime:  reset,
		RetryAfter: retry,
	}
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Evict drops buckets idle for longer than the configured TTL.
func (l *Limiter) Evict() int {
	cutoff := l.now().Add(-l.config.idleTTL())

	l.mu.Lock()
	defer l.mu.Unlock()
	evicted := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			evicted++
		}
	}
	return evicted
}

func (l *Limiter) evictLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Evict()
		case <-l.stop:
			return
		}
	}
}

// Stop ends background eviction. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
