package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Batcher.ID)
	assert.Equal(t, 100, cfg.Batcher.MaxBatchSize)
	assert.Equal(t, int64(60000), cfg.Batcher.MaxWaitMs)
	assert.Equal(t, 3, cfg.Batcher.ConcurrentProcessors)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batcher:\n  maxBatchSize: 50\n  id: custom\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Batcher.ID)
	assert.Equal(t, 50, cfg.Batcher.MaxBatchSize)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batcher:\n  maxBatchSize: 50\n"), 0o600))

	t.Setenv("NOTIFYHUB_MAX_BATCH_SIZE", "7")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Batcher.MaxBatchSize)
}

func TestValidate_RejectsEnabledWebhookWithoutEndpoint(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Webhook.Enabled = true
	assert.Error(t, Validate(cfg))
}

func TestValidate_RejectsNonPositiveBatchSize(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Batcher.MaxBatchSize = 0
	assert.Error(t, Validate(cfg))
}
