// Package ratelimit provides in-process rate limiting using token buckets.
// It throttles chatty outbound events (typing indicators fire on every
// keystroke) so the relay sees a bounded emission rate per action kind.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rule defines a throttling policy: the maximum number of events allowed in
// the window.
type Rule struct {
	Limit  int           // max count in the window
	Window time.Duration // time window
}

// RuleTyping allows 4 typing indicator emissions per 2 seconds. Message
// sends are not throttled client-side; any send policy belongs to the
// relay.
var RuleTyping = Rule{Limit: 4, Window: 2 * time.Second}

// Limiter performs rate limiting checks against per-key token buckets.
// It is goroutine-safe.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewLimiter creates an empty Limiter.
func NewLimiter() *Limiter {
	return &Limiter{buckets: make(map[string]*rate.Limiter)}
}

// Allow checks whether the given key is within the rate limit defined by
// rule. It consumes one token on success. The first call for a key creates
// its bucket full, so a burst up to rule.Limit passes immediately.
func (l *Limiter) Allow(key string, rule Rule) bool {
	return l.bucket(key, rule).Allow()
}

// Tokens returns the number of events the key has left in the current
// window for the given rule.
func (l *Limiter) Tokens(key string, rule Rule) int {
	n := int(l.bucket(key, rule).Tokens())
	if n < 0 {
		n = 0
	}
	return n
}

// bucket returns the token bucket for the key, creating it on first use
// with the refill interval derived from the rule.
func (l *Limiter) bucket(key string, rule Rule) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		interval := rule.Window / time.Duration(rule.Limit)
		b = rate.NewLimiter(rate.Every(interval), rule.Limit)
		l.buckets[key] = b
	}
	return b
}
