package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SCRAPE_MAX_PAGES", "")
	t.Setenv("SCRAPE_CHUNK_SIZE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.MaxPages)
	assert.Equal(t, 10, cfg.Threshold)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 5*time.Minute, cfg.RunTimeout)
	assert.Equal(t, "@every 12h", cfg.Schedule)
	assert.Equal(t, ".elemento_jugador", cfg.ContentMarker)
	assert.Error(t, cfg.RequireDatabase())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/mercato")
	t.Setenv("SCRAPE_MODE", "static")
	t.Setenv("SCRAPE_CHUNK_SIZE", "200")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("CHROME_HEADLESS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.NoError(t, cfg.RequireDatabase())
	assert.Equal(t, "static", cfg.ScrapeMode)
	assert.Equal(t, 200, cfg.ChunkSize)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
	assert.False(t, cfg.ChromeHeadless)
}

func TestLoadRejectsOversizedChunk(t *testing.T) {
	t.Setenv("SCRAPE_CHUNK_SIZE", "501")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk", func(c *Config) { c.ChunkSize = 0 }},
		{"zero pages", func(c *Config) { c.MaxPages = 0 }},
		{"negative threshold", func(c *Config) { c.Threshold = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *cfg
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, cfg.Validate())
}
