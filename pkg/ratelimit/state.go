// Package ratelimit tracks the upstream catalog's request budget and gates
// requests before it runs out. It reads the X-RateLimit-Remaining and
// X-RateLimit-Reset response headers and shares the state through Redis, so
// every process talking to the same catalog sees one budget.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyRemaining      = "catalog:rate_limit:remaining"
	RedisKeyResetTimestamp = "catalog:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "catalog:rate_limit:last_update"
)

// Response headers read by the tracker.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Thresholds for rate limit decisions.
const (
	// ThresholdCritical blocks requests while fewer requests than this remain.
	ThresholdCritical = 2

	// ThresholdWarning throttles requests while fewer requests than this remain.
	ThresholdWarning = 10

	// ThresholdHealthy marks the budget as healthy at or above this value.
	ThresholdHealthy = 30
)

// RateLimitState is the last known upstream request budget.
type RateLimitState struct {
	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the state was last read from response headers.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state is older than maxAge.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// WindowElapsed reports whether the reset time has passed, making the
// recorded budget meaningless.
func (s *RateLimitState) WindowElapsed() bool {
	return !s.ResetAt.IsZero() && time.Now().After(s.ResetAt)
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Remaining < ThresholdCritical && !s.WindowElapsed()
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && !s.NeedsCriticalBlock() && !s.WindowElapsed()
}

// TimeUntilReset returns the duration until the window resets, 0 if passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates IsHealthy from Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
