package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mbelkin/authfront/internal/flagx"
	"github.com/mbelkin/authfront/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies
// on timex.Duration so JSON can specify intervals either as strings like
// "5s" or as integer nanoseconds. After parsing, values are copied into
// the runtime Config.
type JsonConfig struct {
	APIBaseURL           string         `json:"api_base_url"`
	TokenFile            string         `json:"token_file"`
	PresenceChannel      string         `json:"presence_channel"`
	PresencePollInterval timex.Duration `json:"presence_poll_interval"`
}

// parseJson overlays Config with values loaded from a JSON file selected
// via -c or -config. Missing flag means no JSON is loaded. Read or
// unmarshal errors panic; the binary cannot do anything sensible with a
// broken config file.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.TokenFile != "" {
		cfg.TokenFile = jc.TokenFile
	}
	if jc.PresenceChannel != "" {
		cfg.PresenceChannel = jc.PresenceChannel
	}
	if jc.PresencePollInterval.Duration > 0 {
		cfg.PresencePollInterval = time.Duration(jc.PresencePollInterval.Duration)
	}
}
