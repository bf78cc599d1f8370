package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Rule is a fixed-window admission budget.
type Rule struct {
	Limit  int
	Window time.Duration
}

// PerMinute builds a one-minute fixed-window rule.
func PerMinute(limit int) Rule {
	return Rule{Limit: limit, Window: time.Minute}
}

// Limiter provides rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule, now time.Time) (Result, error)
}
