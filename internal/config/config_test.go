package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONSENSUS_LIMIT", "")
	t.Setenv("DEFAULT_RANKING_LIMIT", "")
	t.Setenv("RESPECT_GAME_ADMINS", "")

	cfg := Load()

	assert.Equal(t, 0.5, cfg.ConsensusLimit)
	assert.Equal(t, 6, cfg.DefaultRankingLimit)
	assert.Empty(t, cfg.AdminWallets)
	assert.Equal(t, 2*time.Second, cfg.RoundCacheTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RESPECT_GAME_ADMINS", " 0xAbC , ,0xdef")
	t.Setenv("CONSENSUS_LIMIT", "0.66")
	t.Setenv("DEFAULT_RANKING_LIMIT", "4")
	t.Setenv("SCHEDULER_ENABLED", "true")
	t.Setenv("SCHEDULER_INTERVAL", "30s")

	cfg := Load()

	assert.Equal(t, []string{"0xAbC", "0xdef"}, cfg.AdminWallets)
	assert.Equal(t, 0.66, cfg.ConsensusLimit)
	assert.Equal(t, 4, cfg.DefaultRankingLimit)
	assert.True(t, cfg.SchedulerEnabled)
	assert.Equal(t, 30*time.Second, cfg.SchedulerInterval)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CONSENSUS_LIMIT", "half")
	t.Setenv("DEFAULT_RANKING_LIMIT", "six")
	t.Setenv("ROUND_CACHE_TTL", "soon")

	cfg := Load()

	assert.Equal(t, 0.5, cfg.ConsensusLimit)
	assert.Equal(t, 6, cfg.DefaultRankingLimit)
	assert.Equal(t, 2*time.Second, cfg.RoundCacheTTL)
}

func TestSlogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "DEBUG"}
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	cfg.LogLevel = "nonsense"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestIdentityProviderSecretFallback(t *testing.T) {
	cfg := &Config{JWTSecret: "jwt"}
	assert.Equal(t, "jwt", cfg.IdentityProviderSecret())

	cfg.ProviderSecret = "provider"
	assert.Equal(t, "provider", cfg.IdentityProviderSecret())
}

func TestIdentityProviderSecretRejectsDefault(t *testing.T) {
	cfg := &Config{JWTSecret: DefaultJWTSecret}
	assert.Empty(t, cfg.IdentityProviderSecret())

	cfg.ProviderSecret = DefaultJWTSecret
	assert.Empty(t, cfg.IdentityProviderSecret())

	cfg.ProviderSecret = "provider"
	assert.Equal(t, "provider", cfg.IdentityProviderSecret())
}
