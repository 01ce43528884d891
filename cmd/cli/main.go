package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/mbelkin/authfront/internal/buildinfo"
	"github.com/mbelkin/authfront/internal/client/cli"
	"github.com/mbelkin/authfront/internal/client/config"
	"github.com/mbelkin/authfront/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	app := cli.NewApp(cfg, logger)
	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}
