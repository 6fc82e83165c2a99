package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEnvConfigDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, ReadEnvConfig(&cfg))

	assert.Equal(t, "postgres", cfg.Repo.Driver)
	assert.Equal(t, 5, cfg.Chifumi.MaxAttempts)
	assert.Equal(t, 3, cfg.Chifumi.DefaultRounds)
	assert.Equal(t, time.Minute, cfg.Sweep.Interval)
	assert.False(t, cfg.HTTP.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "chifumi.events", cfg.Redis.Channel)
}

func TestReadEnvConfigOverrides(t *testing.T) {
	t.Setenv("REPO_DRIVER", "memory")
	t.Setenv("ADMIN_USER_IDS", "1,2")
	t.Setenv("CHIFUMI_MAX_ATTEMPTS", "9")
	t.Setenv("HTTP_ENABLED", "true")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SWEEP_INTERVAL", "30s")

	var cfg Config
	require.NoError(t, ReadEnvConfig(&cfg))

	assert.Equal(t, "memory", cfg.Repo.Driver)
	assert.Equal(t, []string{"1", "2"}, cfg.AdminUserIDs)
	assert.Equal(t, 9, cfg.Chifumi.MaxAttempts)
	assert.True(t, cfg.HTTP.Enabled)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 30*time.Second, cfg.Sweep.Interval)
}
