package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "clover-api", cfg.AppName)
	assert.Equal(t, 3004, cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyKeyTTL)
	assert.Equal(t, []string{"GET", "POST", "PUT", "DELETE"}, cfg.AllowMethods)
	assert.Equal(t, 0.85, cfg.DuplicateNameThreshold)
	assert.Equal(t, 0.8, cfg.AddressSimilarity)
	assert.Equal(t, 500, cfg.MatchBatchSize)
	assert.True(t, cfg.DatabaseMigrationAutoRollback)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clover.yaml")
	require.NoError(t, os.WriteFile(path, []byte("PORT: 8080\nMATCH_BATCH_SIZE: 50\nREDIS_ENABLED: true\n"), 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("STORE_TIMEOUT", "750ms")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 50, cfg.MatchBatchSize)
	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
