package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterBlocksAfterLimit(t *testing.T) {
	limiter := NewMemoryLimiter()
	rule := PerMinute(2)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		result, errAllow := limiter.Allow(context.Background(), "login:1.2.3.4", rule, now)
		if errAllow != nil {
			t.Fatalf("allow: %v", errAllow)
		}
		if !result.Allowed {
			t.Fatalf("expected request %d allowed", i+1)
		}
	}

	result, errAllow := limiter.Allow(context.Background(), "login:1.2.3.4", rule, now)
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if result.Allowed {
		t.Fatalf("expected third request blocked")
	}

	// Other keys are unaffected.
	other, errOther := limiter.Allow(context.Background(), "login:5.6.7.8", rule, now)
	if errOther != nil {
		t.Fatalf("allow: %v", errOther)
	}
	if !other.Allowed {
		t.Fatalf("expected different client allowed")
	}
}

func TestMemoryLimiterWindowRollover(t *testing.T) {
	limiter := NewMemoryLimiter()
	rule := PerMinute(1)
	now := time.Date(2025, 1, 1, 0, 0, 30, 0, time.UTC)

	if result, _ := limiter.Allow(context.Background(), "k", rule, now); !result.Allowed {
		t.Fatalf("expected first request allowed")
	}
	if result, _ := limiter.Allow(context.Background(), "k", rule, now); result.Allowed {
		t.Fatalf("expected second request blocked")
	}
	if result, _ := limiter.Allow(context.Background(), "k", rule, now.Add(time.Minute)); !result.Allowed {
		t.Fatalf("expected next window allowed")
	}
}

func TestMemoryLimiterZeroBudgetAllows(t *testing.T) {
	limiter := NewMemoryLimiter()
	result, errAllow := limiter.Allow(context.Background(), "k", Rule{}, time.Now())
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if !result.Allowed {
		t.Fatalf("unconfigured rules must not block")
	}
}

func TestMemoryLimiterSubSecondWindowAllows(t *testing.T) {
	limiter := NewMemoryLimiter()
	rule := Rule{Limit: 1, Window: 500 * time.Millisecond}

	// Windows below the one-second resolution are treated as unconfigured
	// instead of dividing by a truncated-to-zero window.
	for i := 0; i < 3; i++ {
		result, errAllow := limiter.Allow(context.Background(), "k", rule, time.Now())
		if errAllow != nil {
			t.Fatalf("allow: %v", errAllow)
		}
		if !result.Allowed {
			t.Fatalf("sub-second window must not block")
		}
	}
}

func TestKeyForRoute(t *testing.T) {
	if got := KeyForRoute("login", "1.2.3.4"); got != "login:1.2.3.4" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := KeyForRoute("", "1.2.3.4"); got != "" {
		t.Fatalf("expected empty key without route, got %q", got)
	}
	if got := KeyForRoute("login", ""); got != "" {
		t.Fatalf("expected empty key without client, got %q", got)
	}
}
