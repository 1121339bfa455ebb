package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/respectgame/api/internal/consensus"
)

// RoundCache keeps the computed round state of a session for a short TTL so
// polling clients do not recompute it on every request. It fails open: store
// errors are logged and treated as misses.
type RoundCache struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

func NewRoundCache(store Store, ttl time.Duration, logger *slog.Logger) *RoundCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoundCache{store: store, ttl: ttl, logger: logger.With("component", "round_cache")}
}

// RoundKey formats the cache key of a session's round, e.g. "round:42".
func RoundKey(sessionID int64) string {
	return fmt.Sprintf("round:%d", sessionID)
}

func (c *RoundCache) Get(ctx context.Context, sessionID int64) (*consensus.RoundState, bool) {
	if c == nil {
		return nil, false
	}
	b, err := c.store.Get(ctx, RoundKey(sessionID))
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("round cache read failed", "session_id", sessionID, "error", err)
		}
		return nil, false
	}

	var state consensus.RoundState
	if err := json.Unmarshal(b, &state); err != nil {
		c.logger.Warn("round cache entry corrupt", "session_id", sessionID, "error", err)
		return nil, false
	}
	return &state, true
}

func (c *RoundCache) Set(ctx context.Context, state *consensus.RoundState) {
	if c == nil || state == nil || c.ttl <= 0 {
		return
	}
	b, err := json.Marshal(state)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, RoundKey(state.SessionID), b, c.ttl); err != nil {
		c.logger.Warn("round cache write failed", "session_id", state.SessionID, "error", err)
	}
}

func (c *RoundCache) Invalidate(ctx context.Context, sessionID int64) {
	if c == nil {
		return
	}
	if err := c.store.Delete(ctx, RoundKey(sessionID)); err != nil {
		c.logger.Warn("round cache invalidation failed", "session_id", sessionID, "error", err)
	}
}
