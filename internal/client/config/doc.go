// Package config loads runtime configuration for the authfront CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the authentication backend
//	-t string   credential file path (empty keeps the credential in memory)
//	-i int      presence poll interval (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be
// either strings like "5s" or integer nanoseconds:
//
//	{
//	  "api_base_url": "https://auth.example.org/api",
//	  "token_file": "/home/me/.authfront_token",
//	  "presence_channel": "online-users",
//	  "presence_poll_interval": "5s"
//	}
package config
