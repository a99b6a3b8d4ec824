package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

const (
	envConfigPath        = "CHANFINDER_CONFIG"
	envDataDir           = "CHANFINDER_DATA_DIR"
	envCatalogPath       = "CHANFINDER_CATALOG_PATH"
	envCatalogBackend    = "CHANFINDER_CATALOG_BACKEND"
	envTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	envLegacyBotToken    = "BOT_TOKEN"
	envTelegramAllowFrom = "TELEGRAM_ALLOW_FROM"
	envAdminUserID       = "ADMIN_USER_ID"

	defaultDataDir = "~/.chanfinder"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	DataDir    string           `json:"data_dir"`
	Channels   ChannelsConfig   `json:"channels"`
	Catalog    CatalogConfig    `json:"catalog"`
	Router     RouterConfig     `json:"router"`
	Gateway    GatewayConfig    `json:"gateway"`
	Supervisor SupervisorConfig `json:"supervisor"`
	Logging    LoggingConfig    `json:"logging,omitempty"`

	// Path is the file the configuration was read from, empty when defaults
	// were used.
	Path string `json:"-"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// ChannelsConfig stores transport adapter settings.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

// TelegramConfig configures Telegram channel integration.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	Proxy     string   `json:"proxy"`
	AllowFrom []string `json:"allow_from"`
	// RateLimitPerSecond caps outbound sends per chat.
	RateLimitPerSecond float64 `json:"rate_limit_per_second"`
	RateLimitBurst     int     `json:"rate_limit_burst"`
	// RoleCacheSeconds bounds how long a chat member lookup is reused.
	RoleCacheSeconds int `json:"role_cache_seconds"`
	RoleCacheSize    int `json:"role_cache_size"`
}

// CatalogConfig selects where responses are stored.
type CatalogConfig struct {
	Backend  string `json:"backend"`
	Path     string `json:"path"`
	SkipSeed bool   `json:"skip_seed"`
}

// RouterConfig tunes matching and administrative access.
type RouterConfig struct {
	// AdminUserIDs may edit the catalog from chat with /filter and /unfilter.
	AdminUserIDs    []string `json:"admin_user_ids"`
	Strategies      []string `json:"strategies,omitempty"`
	RequestPrefixes []string `json:"request_prefixes,omitempty"`
	RequestSuffixes []string `json:"request_suffixes,omitempty"`
}

// GatewayConfig configures the status HTTP bind settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// SupervisorConfig controls the restart loop around the gateway process.
type SupervisorConfig struct {
	RestartDelaySeconds    int `json:"restart_delay_seconds"`
	MaxRestartDelaySeconds int `json:"max_restart_delay_seconds"`
	StableAfterSeconds     int `json:"stable_after_seconds"`
	ShutdownGraceSeconds   int `json:"shutdown_grace_seconds"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		DataDir: defaultDataDir,
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled:            true,
				RateLimitPerSecond: 1,
				RateLimitBurst:     3,
				RoleCacheSeconds:   60,
				RoleCacheSize:      512,
			},
		},
		Catalog: CatalogConfig{Backend: "file"},
		Gateway: GatewayConfig{Host: "0.0.0.0", Port: 18790},
		Supervisor: SupervisorConfig{
			RestartDelaySeconds:    10,
			MaxRestartDelaySeconds: 60,
			StableAfterSeconds:     300,
			ShutdownGraceSeconds:   10,
		},
	}
}

// LoadConfig loads .env, resolves config.json (JSON5 accepted), and applies
// environment overrides. Without a config file the defaults are used.
func LoadConfig() (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg := Default()

	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json5.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		cfg.Path = configPath
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Catalog.Backend)) {
	case "", "file", "bolt":
	default:
		return fmt.Errorf("catalog.backend must be \"file\" or \"bolt\", got %q", c.Catalog.Backend)
	}

	if c.Gateway.Port < 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port out of range: %d", c.Gateway.Port)
	}
	if c.Channels.Telegram.RateLimitPerSecond < 0 {
		return fmt.Errorf("channels.telegram.rate_limit_per_second must not be negative")
	}

	return nil
}

// CatalogPath returns the catalog location, defaulting to a file inside
// dataDir named after the backend.
func (c *Config) CatalogPath(dataDir string) string {
	if path := strings.TrimSpace(c.Catalog.Path); path != "" {
		if filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(dataDir, path)
	}

	if strings.EqualFold(strings.TrimSpace(c.Catalog.Backend), "bolt") {
		return filepath.Join(dataDir, "catalog.db")
	}
	return filepath.Join(dataDir, "filters.json")
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Channels.Telegram.Token = token
	} else if token := strings.TrimSpace(os.Getenv(envLegacyBotToken)); token != "" && cfg.Channels.Telegram.Token == "" {
		cfg.Channels.Telegram.Token = token
	}

	if rawAllowFrom := strings.TrimSpace(os.Getenv(envTelegramAllowFrom)); rawAllowFrom != "" {
		cfg.Channels.Telegram.AllowFrom = parseCSV(rawAllowFrom)
	}

	if rawAdmins := strings.TrimSpace(os.Getenv(envAdminUserID)); rawAdmins != "" {
		for _, id := range parseCSV(rawAdmins) {
			if !slices.Contains(cfg.Router.AdminUserIDs, id) {
				cfg.Router.AdminUserIDs = append(cfg.Router.AdminUserIDs, id)
			}
		}
	}

	if dir := strings.TrimSpace(os.Getenv(envDataDir)); dir != "" {
		cfg.DataDir = dir
	}
	if path := strings.TrimSpace(os.Getenv(envCatalogPath)); path != "" {
		cfg.Catalog.Path = path
	}
	if backend := strings.TrimSpace(os.Getenv(envCatalogBackend)); backend != "" {
		cfg.Catalog.Backend = backend
	}
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location.
//
// Precedence is CHANFINDER_CONFIG first, then cwd-local fallback paths. An
// empty result means no file exists and defaults apply.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
