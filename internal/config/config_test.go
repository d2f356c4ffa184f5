package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
server:
  port: "9090"
  mode: debug
database:
  driver: sqlite
  path: ":memory:"
llm:
  provider: mock
  timeout_seconds: 10
rag:
  top_k: 3
  chunk_size: 400
  chunk_overlap: 50
cache:
  ttl_minutes: 5
storage:
  type: minio
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig_AppliesUnitsAndDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 72*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, 60*time.Second, cfg.RAG.IngestInterval)
	assert.Equal(t, 3, cfg.LLM.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.LLM.Retry.InitialWaitMs)
	assert.False(t, cfg.RedisEnabled())
	assert.Equal(t, "logs/app.log", cfg.Log.File)
	assert.Equal(t, 20, cfg.Redis.PoolSize)
	assert.Equal(t, "cofq-study", cfg.Tracing.ServiceName)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadConfig(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_ReleaseRequiresStrongSecret(t *testing.T) {
	t.Setenv("SERVER_MODE", "release")
	t.Setenv("JWT_SECRET", "short")

	_, err := LoadConfig(writeConfig(t, baseYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret is too short")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Mode: "debug"},
			Database: DatabaseConfig{Driver: "sqlite"},
			LLM:      LLMConfig{Provider: "mock"},
			RAG:      RAGConfig{TopK: 4, ChunkSize: 800, ChunkOverlap: 100},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "cohere" }, "unknown LLM provider"},
		{"missing key", func(c *Config) { c.LLM.Provider = "anthropic" }, "LLM_API_KEY is required"},
		{"unknown embedder", func(c *Config) { c.Embedding.Provider = "bert" }, "unknown embedding provider"},
		{"top k too large", func(c *Config) { c.RAG.TopK = 21 }, "rag.top_k"},
		{"overlap too big", func(c *Config) { c.RAG.ChunkOverlap = 800 }, "rag.chunk_overlap"},
		{"sample ratio", func(c *Config) { c.Tracing.SampleRatio = 1.5 }, "tracing.sample_ratio"},
		{"bad driver", func(c *Config) { c.Database.Driver = "oracle" }, "unsupported database driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
