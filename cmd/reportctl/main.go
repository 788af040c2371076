package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"standup-tracker/internal/app"
	"standup-tracker/internal/infra/config"
	logpkg "standup-tracker/internal/infra/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := logpkg.NewLogger(cfg.AppEnv).Level(zerolog.WarnLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connect := func(ctx context.Context) (reportService, func(), error) {
		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return a.Reports, a.Close, nil
	}
	return newCLI(cfg, connect).execute(ctx, os.Args[1:], os.Stdout)
}
