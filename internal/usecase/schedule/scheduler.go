package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"standup-tracker/internal/calendar"
	"standup-tracker/internal/domain"
	"standup-tracker/internal/infra/metrics"
	"standup-tracker/internal/usecase/report"
)

// DefaultPollInterval задаёт интервал проверки триггера. Триггер совпадает ровно с одной минутой,
// поэтому интервал не должен превышать минуту.
const DefaultPollInterval = time.Minute

// ErrAlreadyRunning возвращается при повторном запуске планировщика.
var ErrAlreadyRunning = errors.New("scheduler already running")

// Pipeline строит отчёт за неделю.
type Pipeline interface {
	Generate(ctx context.Context, week domain.WeekRange, opts report.GenerateOptions) (report.Outcome, error)
}

// TickResult описывает итог одного тика.
type TickResult string

const (
	TickNoMatch   TickResult = "no_match"
	TickBusy      TickResult = "busy"
	TickSkipped   TickResult = "skipped"
	TickGenerated TickResult = "generated"
	TickFailed    TickResult = "failed"
)

// Config задаёт расписание автоматической генерации.
type Config struct {
	Trigger      calendar.Trigger
	PollInterval time.Duration
	UseAI        bool
}

// Scheduler периодически проверяет триггер и запускает построение отчёта за текущую неделю.
type Scheduler struct {
	cfg      Config
	pipeline Pipeline
	cal      *calendar.Calendar
	log      zerolog.Logger
	now      func() time.Time

	inProgress atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler создаёт планировщик. Запуск выполняется через Run или Start.
func NewScheduler(cfg Config, pipeline Pipeline, cal *calendar.Calendar, logger zerolog.Logger) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Scheduler{
		cfg:      cfg,
		pipeline: pipeline,
		cal:      cal,
		log:      logger.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
	}
}

// Run сразу проверяет триггер, затем повторяет проверку каждые PollInterval до отмены ctx.
// Возвращается после завершения всех начатых тиков.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	tick := func(now time.Time) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Tick(ctx, now)
		}()
	}

	s.log.Info().
		Str("trigger", s.cfg.Trigger.String()).
		Str("timezone", s.cal.Location().String()).
		Dur("interval", s.cfg.PollInterval).
		Msg("scheduler: запущен")
	tick(s.now())

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler: остановка")
			return
		case now := <-ticker.C:
			tick(now)
		}
	}
}

// Start запускает Run в отдельной горутине.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go func() {
		defer close(done)
		s.Run(runCtx)
	}()
	return nil
}

// Stop останавливает планировщик и ждёт завершения текущего тика.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Tick проверяет триггер для момента now и при совпадении строит отчёт.
// Паника и ошибки конвейера не выходят за пределы тика.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (result TickResult) {
	if !s.cal.Matches(s.cfg.Trigger, now) {
		return TickNoMatch
	}
	if !s.inProgress.CompareAndSwap(false, true) {
		s.log.Warn().Msg("scheduler: предыдущий запуск ещё не завершён, пропускаем тик")
		metrics.ObserveSchedulerTick(string(TickBusy))
		return TickBusy
	}
	defer s.inProgress.Store(false)

	week := s.cal.WeekContaining(now)
	log := s.log.With().Str("week_start", week.StartKey()).Str("week_end", week.EndKey()).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("scheduler: паника при построении отчёта")
			result = TickFailed
		}
		metrics.ObserveSchedulerTick(string(result))
	}()

	outcome, err := s.pipeline.Generate(ctx, week, report.GenerateOptions{
		Source: domain.ReportSourceScheduled,
		UseAI:  s.cfg.UseAI,
	})
	if err != nil {
		log.Error().Err(err).Msg("scheduler: не удалось построить отчёт")
		return TickFailed
	}
	if outcome.Skipped {
		log.Info().Str("reason", outcome.SkipReason).Msg("scheduler: отчёт за неделю не требуется")
		return TickSkipped
	}
	log.Info().Str("report_id", outcome.Report.ID).Msg("scheduler: отчёт построен")
	return TickGenerated
}

// Describe возвращает человекочитаемое описание состояния триггера для момента now.
func (s *Scheduler) Describe(now time.Time) string {
	week := s.cal.WeekContaining(now)
	return fmt.Sprintf("trigger=%s timezone=%s local=%s matches=%t week=%s",
		s.cfg.Trigger, s.cal.Location(), now.In(s.cal.Location()).Format("Mon 2006-01-02 15:04"),
		s.cal.Matches(s.cfg.Trigger, now), week)
}
