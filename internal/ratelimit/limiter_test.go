package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinBurst(t *testing.T) {
	l := NewLimiter()
	rule := Rule{Limit: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		if !l.Allow("typing", rule) {
			t.Fatalf("request %d should be allowed within the burst", i+1)
		}
	}
	if l.Allow("typing", rule) {
		t.Error("request beyond the burst should be denied")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := NewLimiter()
	rule := Rule{Limit: 1, Window: time.Minute}

	if !l.Allow("typing", rule) {
		t.Fatal("first typing event should pass")
	}
	if l.Allow("typing", rule) {
		t.Fatal("second typing event should be throttled")
	}
	if !l.Allow("other", rule) {
		t.Error("buckets must not share tokens across keys")
	}
}

func TestTokensRefill(t *testing.T) {
	l := NewLimiter()
	rule := Rule{Limit: 2, Window: 100 * time.Millisecond}

	l.Allow("k", rule)
	l.Allow("k", rule)
	if l.Allow("k", rule) {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(120 * time.Millisecond)
	if !l.Allow("k", rule) {
		t.Error("bucket should refill after the window")
	}
}

func TestTokensNeverNegative(t *testing.T) {
	l := NewLimiter()
	rule := Rule{Limit: 1, Window: time.Minute}

	l.Allow("k", rule)
	l.Allow("k", rule)
	if n := l.Tokens("k", rule); n < 0 {
		t.Errorf("tokens must not go negative, got %d", n)
	}
}
