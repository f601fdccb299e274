package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "istr.yaml", `
server:
  addr: ":9090"
engine:
  partition_size: 512
  max_batch_rows: 1000
ledger:
  driver: sqlite
  dsn: "file:runs.db"
kafka:
  brokers: ["localhost:9092"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 512, cfg.Engine.PartitionSize)
	assert.Equal(t, 1000, cfg.Engine.MaxBatchRows)
	assert.Equal(t, "sqlite", cfg.Ledger.Driver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "istr.runs", cfg.Kafka.Topic, "unset keys keep defaults")
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "istr.toml", `
[engine]
max_workers = 2

[logging]
format = "text"
level = "debug"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Engine.MaxWorkers)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := writeFile(t, "istr.ini", "x=1")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "istr.yaml", "server:\n  addr: \":9090\"\n")
	t.Setenv("ISTR_ADDR", ":7070")
	t.Setenv("ISTR_RATELIMIT_WINDOW", "30s")
	t.Setenv("ISTR_KAFKA_BROKERS", "a:9092, b:9092,")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestApplyEnvReportsBadValues(t *testing.T) {
	env := map[string]string{
		"ISTR_MAX_WORKERS":  "many",
		"ISTR_REQUIRE_AUTH": "perhaps",
	}
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ISTR_MAX_WORKERS")
	assert.Contains(t, err.Error(), "ISTR_REQUIRE_AUTH")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "auth without key", mutate: func(c *Config) { c.Server.RequireAuth = true }},
		{name: "zero partition", mutate: func(c *Config) { c.Engine.PartitionSize = 0 }},
		{name: "zero rows", mutate: func(c *Config) { c.Engine.MaxBatchRows = 0 }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Ledger.Driver = "postgres" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Ledger.Driver = "mongo" }},
		{name: "brokers without topic", mutate: func(c *Config) { c.Kafka.Brokers = []string{"x"}; c.Kafka.Topic = "" }},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }},
		{name: "bad rate limit", mutate: func(c *Config) { c.RateLimit.Requests = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
