package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8001", cfg.Server.Port)
	assert.Equal(t, "farmwise_db", cfg.Mongo.DBName)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, "whisper-1", cfg.OpenAI.TranscribeModel)
	assert.Equal(t, 50, cfg.AI.ChatWordLimit)
	assert.Equal(t, 1000, cfg.AI.AdviceMaxTokens)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxImageBytes)
	assert.Equal(t, "Thiruvananthapuram", cfg.Weather.DefaultDistrict)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.True(t, cfg.CORS.AllowsAllOrigins())
	assert.Empty(t, cfg.OpenAI.APIKey)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("WEATHERAPI_KEY", "weather-key")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MONGO_URL", "mongodb://db:27017")
	t.Setenv("DB_NAME", "farmwise_test")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://farmwise.app")
	t.Setenv("SESSION_MAX_IDLE", "2h")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "weather-key", cfg.Weather.APIKey)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.Equal(t, "farmwise_test", cfg.Mongo.DBName)
	assert.Equal(t, []string{"http://localhost:3000", "https://farmwise.app"}, cfg.CORS.Origins)
	assert.False(t, cfg.CORS.AllowsAllOrigins())
	assert.Equal(t, 2*time.Hour, cfg.Session.MaxIdle)
}

func TestLoadConfigReadsYAML(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("server:\n  port: \"9000\"\nai:\n  chatWordLimit: 30\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 30, cfg.AI.ChatWordLimit)
}
