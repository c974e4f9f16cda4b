package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 168*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 10*time.Second, cfg.LockTTL)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Zero(t, cfg.CalendarSyncInterval)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("POSTGRES_DSN", "postgres://rentme@localhost/rentme")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")
	t.Setenv("LOCK_TTL", "3s")
	t.Setenv("RETRY_BACKOFF", "100ms,2s")
	t.Setenv("DEFAULT_CURRENCY", "eur")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.LockTTL)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 2 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9090\nKAFKA_GROUP_ID=from-file\n"), 0o600))
	t.Setenv("HTTP_ADDR", ":7070")
	t.Cleanup(func() { _ = os.Unsetenv("KAFKA_GROUP_ID") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "from-file", cfg.KafkaGroupID)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":       {"STORAGE_DRIVER": "sqlite"},
		"mongo without uri":    {"STORAGE_DRIVER": "mongo"},
		"postgres without dsn": {"STORAGE_DRIVER": "postgres"},
		"bad duration":         {"LOCK_TTL": "soon"},
		"bad backoff":          {"RETRY_BACKOFF": "1s,later"},
		"bad currency":         {"DEFAULT_CURRENCY": "EURO"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(noEnvFile(t))
			assert.Error(t, err)
		})
	}
}
