package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 20000, cfg.SearchMaxNodes)
	assert.Equal(t, 100, cfg.UndoDepth)
	assert.Empty(t, cfg.CatalogDBPath)
	assert.Empty(t, cfg.DatabaseURL)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverlaysEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SEARCH_MAX_NODES", "500")
	t.Setenv("LOG_DEVELOPMENT", "true")
	t.Setenv("DATABASE_URL", "postgres://localhost/slic")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 500, cfg.SearchMaxNodes)
	assert.Equal(t, 100, cfg.UndoDepth)
	assert.True(t, cfg.LogDevelopment)
	assert.Equal(t, "postgres://localhost/slic", cfg.DatabaseURL)
}

func TestLoadRejectsMalformedValue(t *testing.T) {
	t.Setenv("UNDO_DEPTH", "lots")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"zero search budget", func(c *Config) { c.SearchMaxNodes = 0 }},
		{"negative undo depth", func(c *Config) { c.UndoDepth = -1 }},
		{"negative log level", func(c *Config) { c.LogLevel = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAllowedOriginsSplitOnComma(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}
