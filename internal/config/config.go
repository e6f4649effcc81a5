package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all ForumKit client configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Backend endpoints
	Server ServerConfig `yaml:"server"`

	// Realtime connection
	Realtime RealtimeConfig `yaml:"realtime"`

	// Session storage and polling
	Session SessionConfig `yaml:"session"`

	// Inspection guard
	Guard GuardConfig `yaml:"guard"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the REST backend.
type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// RealtimeConfig configures the shared WebSocket connection.
type RealtimeConfig struct {
	URL              string `yaml:"url"`
	PingInterval     string `yaml:"ping_interval"`
	ReconnectBackoff string `yaml:"reconnect_backoff"`
	MaxBackoff       string `yaml:"max_backoff"`
	DedupCacheSize   int    `yaml:"dedup_cache_size"`
}

// SessionConfig configures the local session store.
type SessionConfig struct {
	// State directory for the sqlite store and logs.
	// Defaults to ~/.forumkit.
	StateDir string `yaml:"state_dir"`

	// Interval for the healthz restart-detection poller.
	RestartPollInterval string `yaml:"restart_poll_interval"`
}

// GuardConfig configures the inspection guard.
type GuardConfig struct {
	Enabled      bool   `yaml:"enabled"`
	PollInterval string `yaml:"poll_interval"`

	// Timing-trap threshold above which a debugger pause is assumed.
	TrapThreshold string `yaml:"trap_threshold"`
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	Theme    string `yaml:"theme"` // light, dark, auto
	PageSize int    `yaml:"page_size"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Name:    "ForumKit",
		Version: "1.2.0",

		Server: ServerConfig{
			BaseURL: "https://forum.example.edu",
			Timeout: "15s",
		},

		Realtime: RealtimeConfig{
			URL:              "wss://forum.example.edu/ws",
			PingInterval:     "25s",
			ReconnectBackoff: "1s",
			MaxBackoff:       "30s",
			DedupCacheSize:   2000,
		},

		Session: SessionConfig{
			StateDir:            filepath.Join(home, ".forumkit"),
			RestartPollInterval: "60s",
		},

		Guard: GuardConfig{
			Enabled:       true,
			PollInterval:  "2s",
			TrapThreshold: "400ms",
		},

		UI: UIConfig{
			Theme:    "auto",
			PageSize: 20,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("FORUMKIT_BASE_URL"); url != "" {
		c.Server.BaseURL = url
	}
	if url := os.Getenv("FORUMKIT_WS_URL"); url != "" {
		c.Realtime.URL = url
	}
	if dir := os.Getenv("FORUMKIT_STATE_DIR"); dir != "" {
		c.Session.StateDir = dir
	}
	if lvl := os.Getenv("FORUMKIT_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
		c.Logging.DebugMode = true
	}
	if os.Getenv("FORUMKIT_NO_GUARD") != "" {
		c.Guard.Enabled = false
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "forumkit.yaml"
	}
	return filepath.Join(home, ".forumkit", "config.yaml")
}
