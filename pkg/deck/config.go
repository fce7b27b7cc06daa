package deck

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error or off
	Level string `toml:"level"`
	// Format is console, json or auto
	Format string `toml:"format"`
}

// PathsConfig holds the on-disk layout used by the pipeline.
type PathsConfig struct {
	TemplateDir string `toml:"template_dir"`
	VisualsDir  string `toml:"visuals_dir"`
	TokensFile  string `toml:"tokens_file"`
	WorkDir     string `toml:"work_dir"`
	OutputDir   string `toml:"output_dir"`
}

// RendererConfig configures the headless browser used for visuals.
type RendererConfig struct {
	ViewportWidth  int    `toml:"viewport_width"`
	ViewportHeight int    `toml:"viewport_height"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	SettleMillis   int    `toml:"settle_millis"`
	Concurrency    int    `toml:"concurrency"`
	ChromePath     string `toml:"chrome_path"`
}

// GammaConfig configures the content-generation service.
type GammaConfig struct {
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
	ThemeID             string `toml:"theme_id"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
}

// CacheSettings configures the fragment cache.
type CacheSettings struct {
	// MaxSize is the maximum number of parsed fragments kept. 0 disables caching.
	MaxSize int `toml:"max_size"`
	// TTLSeconds expires cached fragments. 0 means no expiration.
	TTLSeconds int `toml:"ttl_seconds"`
}

// ComposeConfig toggles optional composition steps.
type ComposeConfig struct {
	// Sections writes one PowerPoint section per fragment
	Sections bool `toml:"sections"`
	// HarmonizeSize sets the slide size to the largest fragment's
	HarmonizeSize bool `toml:"harmonize_size"`
}

// Config contains all configuration options for the deck tooling.
//
// Configuration sections:
//   - Logging: level and format
//   - Paths: template, visuals, work and output locations
//   - Renderer: headless browser viewport, timeout and concurrency
//   - Gamma: content-generation API access and polling
//   - Cache: fragment cache size and expiry
//   - Compose: optional composition steps
type Config struct {
	Logging  LoggingConfig  `toml:"logging"`
	Paths    PathsConfig    `toml:"paths"`
	Renderer RendererConfig `toml:"renderer"`
	Gamma    GammaConfig    `toml:"gamma"`
	Cache    CacheSettings  `toml:"cache"`
	Compose  ComposeConfig  `toml:"compose"`
}

// DefaultGammaBaseURL is the public Gamma API root
const DefaultGammaBaseURL = "https://public-api.gamma.app/v1.0"

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func init() {
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Paths: PathsConfig{
			TemplateDir: "templates",
			VisualsDir:  "visuals",
			TokensFile:  "tokens.json",
			WorkDir:     "work",
			OutputDir:   "output",
		},
		Renderer: RendererConfig{
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			TimeoutSeconds: 60,
			SettleMillis:   500,
			Concurrency:    4,
		},
		Gamma: GammaConfig{
			BaseURL:             DefaultGammaBaseURL,
			PollIntervalSeconds: 5,
			TimeoutSeconds:      300,
		},
		Cache: CacheSettings{
			MaxSize: 32,
		},
		Compose: ComposeConfig{
			Sections:      true,
			HarmonizeSize: true,
		},
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()
	config.applyEnvironment()
	return config
}

// LoadConfig reads .env (when present), the TOML file at path (or the first
// of deck.toml and ~/.config/deck/config.toml), then applies DECK_*
// environment overrides. It returns the config and the file actually read,
// which is empty when defaults were used.
func LoadConfig(path string) (*Config, string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}
	if path != "" && !exists {
		return nil, "", fmt.Errorf("config file %s not found", resolved)
	}
	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return nil, "", fmt.Errorf("parse config: %w", err)
		}
	} else {
		resolved = ""
	}

	cfg.applyEnvironment()
	if err := cfg.normalize(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, resolved, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs("deck.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	userPath, err := ExpandPath("~/.config/deck/config.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(userPath); err == nil && !info.IsDir() {
		return userPath, true, nil
	}
	return "", false, nil
}

func (c *Config) applyEnvironment() {
	setString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setInt := func(key string, dst *int) {
		if val := os.Getenv(key); val != "" {
			if n, err := strconv.Atoi(val); err == nil {
				*dst = n
			}
		}
	}
	setSeconds := func(key string, dst *int) {
		if val := os.Getenv(key); val != "" {
			if d, err := time.ParseDuration(val); err == nil {
				*dst = int(d / time.Second)
			} else if n, err := strconv.Atoi(val); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if val := os.Getenv(key); val != "" {
			*dst = parseBool(val)
		}
	}

	setString("DECK_LOG_LEVEL", &c.Logging.Level)
	setString("DECK_LOG_FORMAT", &c.Logging.Format)

	setString("DECK_TEMPLATE_DIR", &c.Paths.TemplateDir)
	setString("DECK_VISUALS_DIR", &c.Paths.VisualsDir)
	setString("DECK_TOKENS_FILE", &c.Paths.TokensFile)
	setString("DECK_WORK_DIR", &c.Paths.WorkDir)
	setString("DECK_OUTPUT_DIR", &c.Paths.OutputDir)

	setInt("DECK_RENDER_CONCURRENCY", &c.Renderer.Concurrency)
	setSeconds("DECK_RENDER_TIMEOUT", &c.Renderer.TimeoutSeconds)
	setString("DECK_CHROME_PATH", &c.Renderer.ChromePath)

	// GAMMA_API_KEY is the variable name the Gamma documentation uses
	setString("GAMMA_API_KEY", &c.Gamma.APIKey)
	setString("DECK_GAMMA_API_KEY", &c.Gamma.APIKey)
	setString("DECK_GAMMA_BASE_URL", &c.Gamma.BaseURL)
	setString("DECK_GAMMA_THEME_ID", &c.Gamma.ThemeID)
	setSeconds("DECK_GAMMA_TIMEOUT", &c.Gamma.TimeoutSeconds)

	setInt("DECK_CACHE_MAX_SIZE", &c.Cache.MaxSize)
	setSeconds("DECK_CACHE_TTL", &c.Cache.TTLSeconds)

	setBool("DECK_COMPOSE_SECTIONS", &c.Compose.Sections)
	setBool("DECK_COMPOSE_HARMONIZE_SIZE", &c.Compose.HarmonizeSize)
}

func (c *Config) normalize() error {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "auto"
	}
	c.Gamma.APIKey = strings.TrimSpace(c.Gamma.APIKey)
	c.Gamma.BaseURL = strings.TrimRight(strings.TrimSpace(c.Gamma.BaseURL), "/")
	if c.Gamma.BaseURL == "" {
		c.Gamma.BaseURL = DefaultGammaBaseURL
	}

	for _, dir := range []*string{
		&c.Paths.TemplateDir,
		&c.Paths.VisualsDir,
		&c.Paths.TokensFile,
		&c.Paths.WorkDir,
		&c.Paths.OutputDir,
		&c.Renderer.ChromePath,
	} {
		expanded, err := ExpandPath(*dir)
		if err != nil {
			return err
		}
		*dir = expanded
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}
	if !validLogLevels[c.Logging.Level] {
		return errors.New("invalid log level: " + c.Logging.Level)
	}

	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return errors.New("invalid log format: " + c.Logging.Format)
	}

	if c.Renderer.ViewportWidth <= 0 || c.Renderer.ViewportHeight <= 0 {
		return errors.New("renderer viewport must be positive")
	}
	if c.Renderer.TimeoutSeconds <= 0 {
		return errors.New("renderer timeout must be positive")
	}
	if c.Renderer.Concurrency <= 0 {
		return errors.New("renderer concurrency must be positive")
	}
	if c.Renderer.SettleMillis < 0 {
		return errors.New("renderer settle delay cannot be negative")
	}

	if c.Gamma.PollIntervalSeconds <= 0 {
		return errors.New("gamma poll interval must be positive")
	}
	if c.Gamma.TimeoutSeconds < c.Gamma.PollIntervalSeconds {
		return errors.New("gamma timeout must not be shorter than the poll interval")
	}

	if c.Cache.MaxSize < 0 {
		return errors.New("cache max size cannot be negative")
	}
	if c.Cache.TTLSeconds < 0 {
		return errors.New("cache TTL cannot be negative")
	}
	return nil
}

// RenderTimeout returns the per-visual render timeout
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Renderer.TimeoutSeconds) * time.Second
}

// GammaPollInterval returns the generation status poll interval
func (c *Config) GammaPollInterval() time.Duration {
	return time.Duration(c.Gamma.PollIntervalSeconds) * time.Second
}

// GammaTimeout returns the overall generation wait limit
func (c *Config) GammaTimeout() time.Duration {
	return time.Duration(c.Gamma.TimeoutSeconds) * time.Second
}

// CacheTTL returns the fragment cache expiry
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// ExpandPath resolves ~ and makes the path absolute
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// GetGlobalConfig returns the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// outside the lock: the logger reads the config back
	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
