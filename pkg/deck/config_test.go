package deck

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "auto", config.Logging.Format)
	assert.Equal(t, 1920, config.Renderer.ViewportWidth)
	assert.Equal(t, 1080, config.Renderer.ViewportHeight)
	assert.Equal(t, 60*time.Second, config.RenderTimeout())
	assert.Equal(t, 5*time.Second, config.GammaPollInterval())
	assert.Equal(t, 300*time.Second, config.GammaTimeout())
	assert.Equal(t, DefaultGammaBaseURL, config.Gamma.BaseURL)
	assert.True(t, config.Compose.Sections)
	assert.True(t, config.Compose.HarmonizeSize)
	assert.NoError(t, config.Validate())
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("DECK_LOG_LEVEL", "debug")
	t.Setenv("DECK_RENDER_CONCURRENCY", "8")
	t.Setenv("DECK_RENDER_TIMEOUT", "90s")
	t.Setenv("DECK_GAMMA_TIMEOUT", "600")
	t.Setenv("GAMMA_API_KEY", "sk-gamma-env")
	t.Setenv("DECK_CACHE_MAX_SIZE", "0")
	t.Setenv("DECK_COMPOSE_SECTIONS", "no")

	config := ConfigFromEnvironment()

	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, 8, config.Renderer.Concurrency)
	assert.Equal(t, 90, config.Renderer.TimeoutSeconds)
	assert.Equal(t, 600, config.Gamma.TimeoutSeconds)
	assert.Equal(t, "sk-gamma-env", config.Gamma.APIKey)
	assert.Equal(t, 0, config.Cache.MaxSize)
	assert.False(t, config.Compose.Sections)
	assert.True(t, config.Compose.HarmonizeSize)
}

func TestConfigFromEnvironment_PrefixedKeyWins(t *testing.T) {
	t.Setenv("GAMMA_API_KEY", "plain")
	t.Setenv("DECK_GAMMA_API_KEY", "prefixed")

	assert.Equal(t, "prefixed", ConfigFromEnvironment().Gamma.APIKey)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[logging]
level = "WARN"
format = "json"

[paths]
template_dir = "assets/templates"

[renderer]
concurrency = 2

[gamma]
base_url = "https://gamma.example.com/v1.0/"
theme_id = "spartan"

[compose]
sections = false
`), 0o644))
	t.Setenv("DECK_RENDER_CONCURRENCY", "3")

	config, used, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.True(t, filepath.IsAbs(config.Paths.TemplateDir))
	assert.Equal(t, "templates", filepath.Base(config.Paths.TemplateDir))
	assert.Equal(t, 3, config.Renderer.Concurrency, "environment overrides the file")
	assert.Equal(t, 1920, config.Renderer.ViewportWidth, "unset keys keep defaults")
	assert.Equal(t, "https://gamma.example.com/v1.0", config.Gamma.BaseURL)
	assert.Equal(t, "spartan", config.Gamma.ThemeID)
	assert.False(t, config.Compose.Sections)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing explicit file", func(t *testing.T) {
		_, _, err := LoadConfig(filepath.Join(dir, "missing.toml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("malformed toml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[logging\nlevel = "), 0o644))
		_, _, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("invalid level", func(t *testing.T) {
		path := filepath.Join(dir, "level.toml")
		require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"verbose\"\n"), 0o644))
		_, _, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{name: "bad format", modify: func(c *Config) { c.Logging.Format = "xml" }, errMsg: "invalid log format"},
		{name: "zero viewport", modify: func(c *Config) { c.Renderer.ViewportWidth = 0 }, errMsg: "viewport"},
		{name: "zero concurrency", modify: func(c *Config) { c.Renderer.Concurrency = 0 }, errMsg: "concurrency"},
		{name: "negative settle", modify: func(c *Config) { c.Renderer.SettleMillis = -1 }, errMsg: "settle"},
		{name: "timeout below poll", modify: func(c *Config) { c.Gamma.TimeoutSeconds = 1 }, errMsg: "poll interval"},
		{name: "negative cache", modify: func(c *Config) { c.Cache.MaxSize = -1 }, errMsg: "cache max size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestGlobalConfig_ReturnsCopy(t *testing.T) {
	original := GetGlobalConfig()
	t.Cleanup(func() { SetGlobalConfig(original) })

	config := DefaultConfig()
	config.Logging.Level = "error"
	SetGlobalConfig(config)

	got := GetGlobalConfig()
	got.Logging.Level = "debug"
	assert.Equal(t, "error", GetGlobalConfig().Logging.Level)
	assert.False(t, GetLogger().IsDebugMode())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/decks")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "decks"), got)

	got, err = ExpandPath("")
	require.NoError(t, err)
	assert.Empty(t, got)
}
