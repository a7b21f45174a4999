package server

import "testing"

func TestNewRateLimiter(t *testing.T) {
	limiter := newRateLimiter(3, 0)

	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Fatalf("event %d within burst was rejected", i)
		}
	}
	if limiter.Allow() {
		t.Error("event beyond burst should be rejected")
	}
}
