package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"standup-tracker/internal/app"
	"standup-tracker/internal/infra/config"
	logpkg "standup-tracker/internal/infra/log"
	"standup-tracker/internal/infra/metrics"
	"standup-tracker/internal/usecase/report"
	"standup-tracker/internal/usecase/schedule"
)

func main() {
	cfg := config.Load()
	logger := logpkg.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось инициализировать зависимости")
	}
	defer a.Close()

	metrics.StartServer(ctx, logpkg.Component(logger, "metrics"), cfg.MetricsAddr)

	var wg sync.WaitGroup
	if a.Queue != nil {
		worker := report.NewWorker(a.Queue, a.Reports, a.Calendar, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}

	scheduler := schedule.NewScheduler(schedule.Config{
		Trigger:      a.Trigger,
		PollInterval: cfg.Report.PollInterval,
		UseAI:        cfg.Report.UseAI,
	}, a.Reports, a.Calendar, logger)

	logger.Info().Str("trigger", a.Trigger.String()).Str("timezone", a.Calendar.Location().String()).Msg("scheduler: старт")
	scheduler.Run(ctx)

	wg.Wait()
	logger.Info().Msg("scheduler: остановлен")
}
