package ratelimit

import (
	"testing"
	"time"
)

func TestAllowRefills(t *testing.T) {
	now := time.Unix(0, 0)
	l := New(2, 1)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("expected the full bucket to allow two requests")
	}
	if l.Allow("a") {
		t.Fatal("expected the empty bucket to reject")
	}
	if !l.Allow("b") {
		t.Fatal("keys must have separate buckets")
	}

	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("expected one token after a second")
	}
	if l.Allow("a") {
		t.Fatal("expected refill to be one token per second")
	}
}
