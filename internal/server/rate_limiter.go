// Package server builds the per-connection token bucket that protects the hub
// from clients flooding the relay.
package server

import (
	"time"

	"golang.org/x/time/rate"
)

// newRateLimiter allows bursts of capacity events and refills capacity tokens
// every interval.
func newRateLimiter(capacity int, interval time.Duration) *rate.Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	return rate.NewLimiter(rate.Limit(float64(capacity)/interval.Seconds()), capacity)
}
