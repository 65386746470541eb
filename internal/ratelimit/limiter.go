package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a single rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter counts an event for key and decides whether it is within budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
