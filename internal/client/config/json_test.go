package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_JsonOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	content := `{
		"api_base_url": "https://json.example.org/api",
		"token_file": "/var/lib/authfront/token",
		"presence_channel": "lobby",
		"presence_poll_interval": "7s"
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	withArgs(t, "-c", path)

	cfg := LoadConfig()
	require.Equal(t, "https://json.example.org/api", cfg.APIBaseURL)
	require.Equal(t, "/var/lib/authfront/token", cfg.TokenFile)
	require.Equal(t, "lobby", cfg.PresenceChannel)
	require.Equal(t, 7*time.Second, cfg.PresencePollInterval)
}

func TestLoadConfig_FlagsBeatJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api_base_url": "https://json.example.org/api"}`), 0o600))

	withArgs(t, "-c", path, "-a", "https://flag.example.org/api")

	cfg := LoadConfig()
	require.Equal(t, "https://flag.example.org/api", cfg.APIBaseURL)
}

func TestLoadConfig_PartialJsonKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"presence_channel": "lobby"}`), 0o600))

	withArgs(t, "-c", path)

	cfg := LoadConfig()
	require.Equal(t, "lobby", cfg.PresenceChannel)
	require.Equal(t, "http://127.0.0.1:8080/api", cfg.APIBaseURL)
	require.Equal(t, 5*time.Second, cfg.PresencePollInterval)
}
