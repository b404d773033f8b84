// Package ratelimit caps request rates with a sliding window. Writes are
// keyed by caller address and reads by client IP. The shared Redis window
// falls back to a process-local one while Redis is failing.
package ratelimit

import (
	"context"
	"time"
)

// Class selects which limit applies to a route.
type Class string

const (
	ClassRead  Class = "read"
	ClassWrite Class = "write"
)

// Limit allows Requests per Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Limits holds the per-class limits.
type Limits struct {
	Read  Limit
	Write Limit
}

func (l Limits) For(class Class) (Limit, bool) {
	switch class {
	case ClassRead:
		return l.Read, true
	case ClassWrite:
		return l.Write, true
	}
	return Limit{}, false
}

// Result is the outcome of one check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is in whole seconds, set when the request was denied.
	RetryAfter int
	// Degraded is set when the result came from the local fallback window.
	Degraded bool
}

// Store counts requests per key within a sliding window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

func retryAfter(now, resetAt time.Time) int {
	d := resetAt.Sub(now)
	if d <= 0 {
		return 1
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
