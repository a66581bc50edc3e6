package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Sweepers.SLAInterval)
	assert.Equal(t, 2*time.Minute, cfg.Sweepers.AutoAssignInterval)
	assert.Equal(t, 10, cfg.Sweepers.AutoAssignBatch)
	assert.Equal(t, 5*time.Minute, cfg.Sweepers.AutoAssignGrace)
	assert.Equal(t, 10, cfg.Assignment.SeniorCeiling)
	assert.Equal(t, 20, cfg.Assignment.RoundRobinCeiling)
	assert.Equal(t, 5*time.Second, cfg.Postgres.StoreTimeout)
	assert.False(t, cfg.Email.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SLA_SWEEP_INTERVAL", "30s")
	t.Setenv("AUTO_ASSIGN_SWEEP_BATCH_SIZE", "25")
	t.Setenv("POSTGRES_STORE_TIMEOUT", "not-a-duration")
	t.Setenv("SMTP_HOST", "smtp.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Sweepers.SLAInterval)
	assert.Equal(t, 25, cfg.Sweepers.AutoAssignBatch)
	assert.Equal(t, 5*time.Second, cfg.Postgres.StoreTimeout, "invalid durations fall back to the default")
	assert.True(t, cfg.Email.Enabled())
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "primary")

	_, err := Load()
	assert.Error(t, err)
}
