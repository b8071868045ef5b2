package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edtronaut/coworker/store"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, store.TypeMemory, cfg.Store.Type)
	assert.Equal(t, 2, cfg.Orchestrator.MaxRevisions)
	assert.Equal(t, 10, cfg.NPC.HistoryWindow)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coworker.yaml")
	content := `
log:
  level: debug
  format: console
store:
  type: redis
  redis:
    addr: redis.internal:6379
    session_ttl: 1h
orchestrator:
  max_revisions: 1
director:
  consistency_check: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, store.TypeRedis, cfg.Store.Type)
	assert.Equal(t, "redis.internal:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Store.Redis.SessionTTL)
	assert.Equal(t, 1, cfg.Orchestrator.MaxRevisions)
	assert.False(t, cfg.Director.ConsistencyCheck)

	// Untouched sections keep their defaults.
	assert.Equal(t, 3, cfg.Orchestrator.RetrievalTopK)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/coworker.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, store.TypeMemory, cfg.Store.Type)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COWORKER_LOG_LEVEL", "warn")
	t.Setenv("COWORKER_STORE_TYPE", "sqlite")
	t.Setenv("COWORKER_STORE_DATABASE_DSN", ":memory:")
	t.Setenv("COWORKER_ORCHESTRATOR_STORE_RETRY_BACKOFF", "50ms")
	t.Setenv("COWORKER_DIRECTOR_AUDIT_LOG_HINTS", "true")
	t.Setenv("COWORKER_LOG_OUTPUT_PATHS", "stdout, stderr")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, store.TypeSQLite, cfg.Store.Type)
	assert.Equal(t, ":memory:", cfg.Store.Database.DSN)
	assert.Equal(t, 50*time.Millisecond, cfg.Orchestrator.StoreRetryBackoff)
	assert.True(t, cfg.Director.AuditLogHints)
	assert.Equal(t, []string{"stdout", "stderr"}, cfg.Log.OutputPaths)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coworker.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))
	t.Setenv("COWORKER_LOG_LEVEL", "error")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "loud"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.NPC.Temperature = 3.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.OTLPEndpoint = ""
	assert.Error(t, cfg.Validate())
}

func TestLoad_CustomValidator(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			if c.PersonaFile == "" {
				return assert.AnError
			}
			return nil
		}).
		Load()
	require.Error(t, err)
}

func TestBuildLogger(t *testing.T) {
	cfg := DefaultConfig()
	logger, err := cfg.BuildLogger()
	require.NoError(t, err)
	_ = logger.Sync()

	cfg.Log.Format = "console"
	cfg.Log.Level = "debug"
	logger, err = cfg.BuildLogger()
	require.NoError(t, err)
	_ = logger.Sync()

	cfg.Log.Level = "shout"
	_, err = cfg.BuildLogger()
	require.Error(t, err)
}
