package config

import (
	"flag"
	"os"
	"time"

	"github.com/mbelkin/authfront/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the authentication backend
//	-t string   path of the credential file ("" keeps it in memory)
//	-i int      presence poll interval in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the authentication backend")
	fs.StringVar(&cfg.TokenFile, "t", cfg.TokenFile, "credential file path (empty: in-memory)")
	pollInterval := fs.Int("i", int(cfg.PresencePollInterval.Seconds()), "presence poll interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.PresencePollInterval = time.Duration(*pollInterval) * time.Second
}
