package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Rate-limited actions.
const (
	ActionLogin    = "login"
	ActionVote     = "vote"
	ActionFinalize = "finalize"
	ActionSubmit   = "submit"
)

type ActionConfig struct {
	Limit  int64
	Window time.Duration
}

var DefaultLimits = map[string]ActionConfig{
	ActionLogin:    {Limit: 20, Window: time.Minute},
	ActionVote:     {Limit: 60, Window: time.Minute},
	ActionFinalize: {Limit: 30, Window: time.Minute},
	ActionSubmit:   {Limit: 10, Window: time.Minute},
}

// Counter is a fixed-window counter store.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
}

type Limiter struct {
	counter Counter
	limits  map[string]ActionConfig
}

type CheckResult struct {
	Allowed   bool  `json:"allowed"`
	Remaining int64 `json:"remaining"`
	ResetAt   int64 `json:"resetAt"`
	Limit     int64 `json:"limit"`
}

func NewLimiter(counter Counter, limits map[string]ActionConfig) *Limiter {
	if limits == nil {
		limits = DefaultLimits
	}
	return &Limiter{counter: counter, limits: limits}
}

// Check counts one request by clientID for action and reports whether it is
// within the window's limit.
func (l *Limiter) Check(ctx context.Context, clientID, action string) (*CheckResult, error) {
	config, ok := l.limits[action]
	if !ok {
		// Default limit for unknown actions
		config = ActionConfig{Limit: 100, Window: time.Minute}
	}

	key := fmt.Sprintf("rate:%s:%s", strings.ToLower(clientID), action)

	count, err := l.counter.Incr(ctx, key, config.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to increment counter: %w", err)
	}

	ttl, err := l.counter.TTL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get TTL: %w", err)
	}
	if ttl < 0 {
		ttl = config.Window
	}

	remaining := config.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	return &CheckResult{
		Allowed:   count <= config.Limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl).Unix(),
		Limit:     config.Limit,
	}, nil
}
