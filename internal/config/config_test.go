package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	originalDir, _ := os.Getwd()
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	defer os.Chdir(originalDir)

	cfg, err := Load()
	require.NoError(t, err)

	// Database defaults
	assert.Equal(t, "postgres://localhost:5432/durablex?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, int32(2), cfg.Database.MinConns)
	assert.Equal(t, 5*time.Second, cfg.Database.DialTimeout)
	assert.False(t, cfg.Database.AutoMigrate)

	// Worker defaults
	assert.Equal(t, "", cfg.Worker.ID)
	assert.Equal(t, []string{"default"}, cfg.Worker.Queues)
	assert.Equal(t, 10, cfg.Worker.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 10, cfg.Worker.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Worker.HeartbeatInterval)
	assert.Equal(t, 15*time.Second, cfg.Worker.HeartbeatTimeout)
	assert.Equal(t, 30*time.Second, cfg.Worker.ShutdownTimeout)

	// Notify defaults
	assert.Equal(t, "durablex_queue_", cfg.Notify.ChannelPrefix)

	// API defaults
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, ":8080", cfg.API.Addr)
	assert.Equal(t, 30*time.Second, cfg.API.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.API.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.API.IdleTimeout)
	assert.Empty(t, cfg.API.AuthKeys)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	// Execution defaults
	assert.Equal(t, 30*time.Second, cfg.Defaults.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Defaults.WorkflowTimeout)
	assert.Equal(t, 3, cfg.Defaults.Retries)
	assert.Equal(t, 1*time.Second, cfg.Defaults.RetryBackoffBase)
	assert.Equal(t, 5*time.Minute, cfg.Defaults.RetryBackoffMax)

	// Logging defaults
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := tmpDir + "/config.yaml"

	configContent := `
database:
  url: "postgres://custom-db:5432/durablex?sslmode=disable"
  maxconns: 5

worker:
  id: "test-worker"
  concurrency: 5
  queues:
    - "billing"
    - "default"

loglevel: "warn"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	originalDir, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(originalDir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://custom-db:5432/durablex?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, int32(5), cfg.Database.MaxConns)
	assert.Equal(t, "test-worker", cfg.Worker.ID)
	assert.Equal(t, 5, cfg.Worker.Concurrency)
	assert.Equal(t, []string{"billing", "default"}, cfg.Worker.Queues)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestDatabaseConfig_Fields(t *testing.T) {
	cfg := DatabaseConfig{
		URL:         "postgres://localhost:5432/durablex",
		MaxConns:    20,
		MinConns:    2,
		DialTimeout: 5 * time.Second,
		AutoMigrate: true,
	}

	assert.Equal(t, "postgres://localhost:5432/durablex", cfg.URL)
	assert.Equal(t, int32(20), cfg.MaxConns)
	assert.True(t, cfg.AutoMigrate)
}

func TestWorkerConfig_Fields(t *testing.T) {
	cfg := WorkerConfig{
		ID:                "worker-1",
		Queues:            []string{"default"},
		Concurrency:       10,
		PollInterval:      2 * time.Second,
		HeartbeatInterval: 5 * time.Second,
		HeartbeatTimeout:  15 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		BatchSize:         10,
	}

	assert.Equal(t, "worker-1", cfg.ID)
	assert.Equal(t, 10, cfg.Concurrency)
	assert.Equal(t, []string{"default"}, cfg.Queues)
}

func TestDefaultsConfig_Fields(t *testing.T) {
	cfg := DefaultsConfig{
		Timeout:          30 * time.Second,
		WorkflowTimeout:  24 * time.Hour,
		Retries:          3,
		RetryBackoffBase: 1 * time.Second,
		RetryBackoffMax:  5 * time.Minute,
	}

	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, 24*time.Hour, cfg.WorkflowTimeout)
}
