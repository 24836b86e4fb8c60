package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famish99/jellympd/internal/config"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
	assert.Equal(t, "0.0.0.0:6600", cfg.General.Listen)
	assert.True(t, cfg.Zeroconf.Enabled)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
jellyfin:
  url: https://jf.example.com
  username: alice
http:
  listen: 127.0.0.1:8080
playback:
  default_volume: 40
`), 0o600))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://jf.example.com", cfg.Jellyfin.URL)
	assert.Equal(t, "alice", cfg.Jellyfin.Username)
	assert.True(t, cfg.Jellyfin.VerifyCert)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTP.Listen)
	assert.Equal(t, 40, cfg.Playback.DefaultVolume)
	assert.Equal(t, "0.0.0.0:6600", cfg.General.Listen)
	assert.Equal(t, 10, cfg.Cache.MaxSizeGB)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("general: [unclosed"), 0o600))

	_, err := config.LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := config.DefaultConfig()
	cfg.Jellyfin.URL = "http://localhost:8096"
	cfg.Jellyfin.DeviceID = "abc"
	require.NoError(t, config.SaveConfig(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	cfg := config.DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jellyfin.url is required")
	assert.Contains(t, err.Error(), "jellyfin.username is required")

	cfg.Jellyfin.URL = "ftp://example.com"
	cfg.Jellyfin.Username = "alice"
	assert.ErrorContains(t, cfg.Validate(), "http(s) URL")

	cfg.Jellyfin.URL = "http://example.com"
	cfg.Playback.DefaultVolume = 101
	assert.ErrorContains(t, cfg.Validate(), "default_volume")

	cfg.Playback.DefaultVolume = 100
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, int64(10)<<30, cfg.CacheBytes())
}
