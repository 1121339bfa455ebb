package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/respectgame/api/internal/consensus"
	"github.com/respectgame/api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return b, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRoundCache(t *testing.T) {
	store := newMemStore()
	c := NewRoundCache(store, 2*time.Second, quietLogger())
	ctx := context.Background()

	_, ok := c.Get(ctx, 7)
	assert.False(t, ok)

	state := &consensus.RoundState{
		SessionID:         7,
		SessionStatus:     model.SessionStatusVotingInProgress,
		RemainingRankings: []int{3, 2, 1},
		CurrentRanking:    3,
		CurrentVotes:      []consensus.Tally{{WalletAddress: "0xa", Votes: 2}},
		GroupMemberCount:  3,
	}
	c.Set(ctx, state)
	assert.Equal(t, 2*time.Second, store.ttls["round:7"])

	got, ok := c.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, state.RemainingRankings, got.RemainingRankings)
	assert.Equal(t, state.CurrentVotes[0].Votes, got.CurrentVotes[0].Votes)

	c.Invalidate(ctx, 7)
	_, ok = c.Get(ctx, 7)
	assert.False(t, ok)
}

func TestRoundCacheFailsOpen(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	c := NewRoundCache(store, time.Second, quietLogger())
	ctx := context.Background()

	c.Set(ctx, &consensus.RoundState{SessionID: 1})
	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)
	c.Invalidate(ctx, 1)

	store.err = nil
	store.data[RoundKey(1)] = []byte("{not json")
	_, ok = c.Get(ctx, 1)
	assert.False(t, ok)
}

func TestNilRoundCache(t *testing.T) {
	var c *RoundCache
	ctx := context.Background()

	c.Set(ctx, &consensus.RoundState{SessionID: 1})
	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)
	c.Invalidate(ctx, 1)
}

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	_, err := NewRedisCache("not-a-url")
	assert.Error(t, err)
}
