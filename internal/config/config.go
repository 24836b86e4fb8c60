package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	General  GeneralConfig  `yaml:"general"`
	Jellyfin JellyfinConfig `yaml:"jellyfin"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	HTTP     HTTPConfig     `yaml:"http"`
	Zeroconf ZeroconfConfig `yaml:"zeroconf"`
	Playback PlaybackConfig `yaml:"playback"`
}

// GeneralConfig holds logging and the MPD listen address
type GeneralConfig struct {
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
	Listen   string `yaml:"listen"`
}

// JellyfinConfig identifies the media server and the account to use
type JellyfinConfig struct {
	URL        string `yaml:"url"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	DeviceID   string `yaml:"device_id,omitempty"` // generated and saved on first run
	VerifyCert bool   `yaml:"verify_cert"`
}

// DatabaseConfig locates the catalog snapshot
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig represents cache settings
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"`
	MaxSizeGB int    `yaml:"max_size_gb"`
}

// HTTPConfig configures the status API. An empty listen address disables it.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// ZeroconfConfig controls the _mpd._tcp service advertisement
type ZeroconfConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
}

// PlaybackConfig represents playback settings
type PlaybackConfig struct {
	DefaultVolume int `yaml:"default_volume"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
			Listen:   "0.0.0.0:6600",
		},
		Jellyfin: JellyfinConfig{
			VerifyCert: true,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir(), "catalog.db"),
		},
		Cache: CacheConfig{
			Enabled:   true,
			Directory: filepath.Join(os.TempDir(), "jellympd-cache"),
			MaxSizeGB: 10,
		},
		Zeroconf: ZeroconfConfig{
			Enabled: true,
			Name:    "jellympd",
		},
		Playback: PlaybackConfig{
			DefaultVolume: 100,
		},
	}
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "jellympd")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "jellympd")
}

// DefaultPath returns the first existing config file among the usual
// locations, or the first location when none exists
func DefaultPath() string {
	locations := []string{
		"./jellympd.yaml",
		"./config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "jellympd", "config.yaml"),
		"/etc/jellympd/config.yaml",
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return locations[0]
}

// LoadConfig loads configuration from file. Values missing from the file
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, return default config
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	// the file holds the media server password
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the settings the daemon cannot start without
func (c *Config) Validate() error {
	var errs []error

	if c.Jellyfin.URL == "" {
		errs = append(errs, errors.New("jellyfin.url is required"))
	} else if u, err := url.Parse(c.Jellyfin.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("jellyfin.url must be an http(s) URL: %q", c.Jellyfin.URL))
	}
	if c.Jellyfin.Username == "" {
		errs = append(errs, errors.New("jellyfin.username is required"))
	}
	if c.General.Listen == "" {
		errs = append(errs, errors.New("general.listen is required"))
	}
	if v := c.Playback.DefaultVolume; v < 0 || v > 100 {
		errs = append(errs, fmt.Errorf("playback.default_volume must be between 0 and 100, got %d", v))
	}
	if c.Cache.Enabled && c.Cache.MaxSizeGB <= 0 {
		errs = append(errs, fmt.Errorf("cache.max_size_gb must be positive, got %d", c.Cache.MaxSizeGB))
	}

	return errors.Join(errs...)
}

// CacheBytes returns the cache size limit in bytes
func (c *Config) CacheBytes() int64 {
	return int64(c.Cache.MaxSizeGB) << 30
}
