package config

import "time"

// Config holds runtime settings for the authfront CLI.
//
// Fields:
//   - APIBaseURL: base URL of the authentication backend.
//   - TokenFile: path of the persisted credential file; empty keeps the
//     credential in memory for the lifetime of the process.
//   - PresenceChannel: name of the online-users channel the dashboard
//     shell subscribes to.
//   - PresencePollInterval: how often the presence channel is polled.
type Config struct {
	APIBaseURL           string
	TokenFile            string
	PresenceChannel      string
	PresencePollInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080/api"
	c.TokenFile = ""
	c.PresenceChannel = "online-users"
	c.PresencePollInterval = 5 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
