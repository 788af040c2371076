package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"standup-tracker/internal/adapters/notifier"
	"standup-tracker/internal/adapters/repo"
	"standup-tracker/internal/adapters/summarizer"
	"standup-tracker/internal/calendar"
	"standup-tracker/internal/domain"
	"standup-tracker/internal/infra/cache"
	"standup-tracker/internal/infra/config"
	"standup-tracker/internal/infra/db"
	logpkg "standup-tracker/internal/infra/log"
	"standup-tracker/internal/infra/openai"
	"standup-tracker/internal/infra/queue"
	"standup-tracker/internal/usecase/drafts"
	"standup-tracker/internal/usecase/report"
)

// App собирает зависимости, общие для процессов scheduler, api и reportctl.
type App struct {
	Config   config.AppConfig
	Calendar *calendar.Calendar
	Trigger  calendar.Trigger
	Reports  *report.Service
	// Drafts равен nil, если LLM не настроен.
	Drafts *drafts.Service
	// Queue равна nil, если очередь задач не настроена.
	Queue domain.ReportQueue

	closers []func()
}

// New подключается к хранилищам и собирает конвейер отчётов.
func New(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*App, error) {
	cal, err := calendar.New(cfg.ReferenceTZ)
	if err != nil {
		return nil, fmt.Errorf("reference timezone: %w", err)
	}
	trigger, err := calendar.ParseTrigger(cfg.Report.TriggerDay, cfg.Report.TriggerTime)
	if err != nil {
		return nil, fmt.Errorf("report trigger: %w", err)
	}
	a := &App{Config: cfg, Calendar: cal, Trigger: trigger}

	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	store := repo.NewPostgres(pool)

	opts := []report.Option{report.WithBusinessMetrics(store)}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		opts = append(opts, report.WithLocker(cache.NewRedisLocker(rdb), 0))
	}

	switch {
	case cfg.Queues.Backend == config.QueueBackendRabbit:
		q, err := queue.NewRabbitReportQueue(cfg.Queues.RabbitMQURL, cfg.Queues.ReportKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		a.closers = append(a.closers, func() { _ = q.Close() })
		a.Queue = q
	case rdb != nil:
		a.Queue = queue.NewRedisReportQueue(rdb, cfg.Queues.ReportKey)
	default:
		logger.Warn().Msg("app: очередь задач не настроена, асинхронные запросы отключены")
	}

	var ai domain.WeeklySummarizer
	if cfg.AIEnabled() {
		client := openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Timeout: cfg.OpenAI.Timeout,
		})
		ai = summarizer.NewLLM(client, cfg.OpenAI.Timeout, cfg.OpenAI.MaxTokens, logpkg.Component(logger, "summarizer"))
		a.Drafts = drafts.NewService(client, 0, logger)
	} else {
		logger.Warn().Msg("app: OPENAI_API_KEY не задан, используется базовый суммаризатор")
	}

	if cfg.NotifierEnabled() {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Warn().Err(err).Msg("app: Telegram недоступен, отчёты не будут отправляться")
		} else {
			opts = append(opts, report.WithNotifier(notifier.NewTelegram(bot, cfg.Telegram.ReportChatID, report.FormatReport, logger)))
		}
	}

	aggregator := report.NewAggregator(store, cal, domain.ParseMemberKeyMode(cfg.Report.MemberKey))
	a.Reports = report.NewService(aggregator, store, summarizer.NewBasic(), ai, logger, opts...)
	return a, nil
}

// Close освобождает соединения в обратном порядке.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
