package main

import (
	"context"
	"embed"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/swapkit/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	slog.SetDefault(newLogger(cfg.LogFormat, cfg.LogLevel))

	app := &cli.App{
		Name:  "swapkit",
		Usage: "fund, preview and submit bonding-curve trades and lending operations",
		Commands: []*cli.Command{
			serveCommand(cfg),
			planCommand(cfg),
			previewCommand(cfg),
			tradeCommand(cfg),
			lendCommand(cfg),
			exportCommand(cfg),
			migrateCommand(cfg),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newLogger(format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
