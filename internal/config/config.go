// Package config loads satchel configuration.
//
// Configuration is resolved in order: built-in defaults, then the config
// file (~/.satchel/config.yaml), then SATCHEL_* environment variables.
// Nested keys map to environment variables with underscores, e.g.
// dashboard.port becomes SATCHEL_DASHBOARD_PORT.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file name inside the satchel directory.
const FileName = "config.yaml"

// Config is the resolved satchel configuration.
type Config struct {
	// DBPath is the local SQLite database file.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// InboxDir is the directory the daemon watches for dropped items.
	InboxDir string `mapstructure:"inbox_dir" yaml:"inbox_dir"`

	// TokenFile holds the cloud session token, one line.
	TokenFile string `mapstructure:"token_file" yaml:"token_file"`

	// LogFile is where the daemon writes its rotated log.
	LogFile string `mapstructure:"log_file" yaml:"log_file"`

	Remote    Remote    `mapstructure:"remote" yaml:"remote"`
	Sync      Sync      `mapstructure:"sync" yaml:"sync"`
	Dashboard Dashboard `mapstructure:"dashboard" yaml:"dashboard"`
}

// Remote configures the cloud storage backend.
type Remote struct {
	// BaseURL of the storage API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// AppFolder is the folder name created in the user's cloud space.
	AppFolder string `mapstructure:"app_folder" yaml:"app_folder"`
}

// Sync configures the engine's write scheduling.
type Sync struct {
	// DebounceInterval is how long a remote write waits for a newer
	// save to supersede it.
	DebounceInterval time.Duration `mapstructure:"debounce_interval" yaml:"debounce_interval"`

	// Interval between periodic daemon syncs. Zero disables them.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// MarshalYAML renders durations in their string form ("1s", "5m0s")
// instead of raw nanoseconds.
func (s Sync) MarshalYAML() (interface{}, error) {
	return map[string]string{
		"debounce_interval": s.DebounceInterval.String(),
		"interval":          s.Interval.String(),
	}, nil
}

// Dashboard configures the WebSocket dashboard server.
type Dashboard struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// DefaultDir returns the satchel home directory (~/.satchel).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".satchel"
	}
	return filepath.Join(home, ".satchel")
}

// Default returns the built-in configuration rooted at dir.
func Default(dir string) *Config {
	return &Config{
		DBPath:    filepath.Join(dir, "satchel.db"),
		InboxDir:  filepath.Join(dir, "inbox"),
		TokenFile: filepath.Join(dir, "token"),
		LogFile:   filepath.Join(dir, "daemon.log"),
		Remote: Remote{
			BaseURL:   "https://api.satchel.app",
			AppFolder: "Satchel",
		},
		Sync: Sync{
			DebounceInterval: time.Second,
			Interval:         5 * time.Minute,
		},
		Dashboard: Dashboard{
			Port: 8440,
		},
	}
}

// Load resolves configuration for the given satchel directory. An empty
// dir means DefaultDir(). A missing config file is not an error; defaults
// and environment variables still apply.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	defaults := Default(dir)

	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("SATCHEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db_path", defaults.DBPath)
	v.SetDefault("inbox_dir", defaults.InboxDir)
	v.SetDefault("token_file", defaults.TokenFile)
	v.SetDefault("log_file", defaults.LogFile)
	v.SetDefault("remote.base_url", defaults.Remote.BaseURL)
	v.SetDefault("remote.app_folder", defaults.Remote.AppFolder)
	v.SetDefault("sync.debounce_interval", defaults.Sync.DebounceInterval)
	v.SetDefault("sync.interval", defaults.Sync.Interval)
	v.SetDefault("dashboard.port", defaults.Dashboard.Port)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// WriteTemplate writes a commented config file with the defaults for dir.
// It refuses to overwrite an existing file.
func WriteTemplate(dir string) (string, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists: %s", path)
	}

	body, err := yaml.Marshal(Default(dir))
	if err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}

	content := "# Satchel configuration.\n" +
		"# Every key can also be set with a SATCHEL_* environment variable,\n" +
		"# e.g. dashboard.port -> SATCHEL_DASHBOARD_PORT.\n\n" +
		string(body)

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}
