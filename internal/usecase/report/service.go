package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"standup-tracker/internal/domain"
	"standup-tracker/internal/infra/metrics"
)

const (
	defaultLockTTL     = 5 * time.Minute
	failureSaveTimeout = 5 * time.Second
)

// Причины пропуска генерации.
const (
	SkipReportExists = "report_exists"
	SkipInProgress   = "in_progress"
)

// GenerateOptions управляет одним запуском конвейера.
type GenerateOptions struct {
	Source domain.ReportSource
	// Force позволяет ручному запуску создать ещё один отчёт за неделю. Для планировщика игнорируется.
	Force        bool
	UseAI        bool
	Instructions string
}

// Outcome описывает результат Generate. Пропуск не является ошибкой.
type Outcome struct {
	Report     domain.WeeklyReport
	Skipped    bool
	SkipReason string
}

// Option настраивает Service.
type Option func(*Service)

// WithLocker добавляет межпроцессную блокировку вокруг проверки и сохранения.
func WithLocker(locker domain.Locker, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = locker
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithNotifier включает доставку готовых отчётов.
func WithNotifier(notifier domain.ReportNotifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithBusinessMetrics включает запись бизнес-событий.
func WithBusinessMetrics(repo domain.BusinessMetricRepo) Option {
	return func(s *Service) { s.events = repo }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service реализует конвейер недельного отчёта: агрегация, итоги, сохранение.
type Service struct {
	aggregator *Aggregator
	reports    domain.ReportRepo
	basic      domain.WeeklySummarizer
	ai         domain.WeeklySummarizer
	locker     domain.Locker
	lockTTL    time.Duration
	notifier   domain.ReportNotifier
	events     domain.BusinessMetricRepo
	locks      *weekLocks
	now        func() time.Time
	log        zerolog.Logger
}

// NewService создаёт сервис отчётов. ai может быть nil: тогда используется только базовый суммаризатор.
func NewService(aggregator *Aggregator, reports domain.ReportRepo, basic, ai domain.WeeklySummarizer, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		aggregator: aggregator,
		reports:    reports,
		basic:      basic,
		ai:         ai,
		lockTTL:    defaultLockTTL,
		locks:      newWeekLocks(),
		now:        func() time.Time { return time.Now().UTC() },
		log:        logger.With().Str("component", "report").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate строит и сохраняет отчёт за неделю.
func (s *Service) Generate(ctx context.Context, week domain.WeekRange, opts GenerateOptions) (Outcome, error) {
	if week.End.Before(week.Start) {
		return Outcome{}, domain.ErrInvalidWeekRange
	}
	if opts.Source == "" {
		opts.Source = domain.ReportSourceManual
	}
	log := s.log.With().
		Str("week_start", week.StartKey()).
		Str("week_end", week.EndKey()).
		Str("source", string(opts.Source)).
		Logger()
	start := time.Now()

	unlock, err := s.locks.lock(ctx, week.Key())
	if err != nil {
		return Outcome{}, err
	}
	defer unlock()

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, "report:"+week.Key(), s.lockTTL)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("report: межпроцессная блокировка недоступна, продолжаем с локальной")
		case !ok:
			metrics.ObserveReport(string(opts.Source), "in_progress", start)
			if opts.Source == domain.ReportSourceScheduled {
				log.Info().Msg("report: отчёт за неделю уже строит другой процесс")
				return Outcome{Skipped: true, SkipReason: SkipInProgress}, nil
			}
			return Outcome{}, domain.ErrGenerationInProgress
		default:
			defer release()
		}
	}

	if opts.Source == domain.ReportSourceScheduled || !opts.Force {
		existing, err := s.reports.GetReportByWeek(ctx, week)
		switch {
		case err == nil:
			log.Info().Str("report_id", existing.ID).Msg("report: отчёт за неделю уже есть, пропускаем")
			s.skipped(ctx, week, existing.ID, opts.Source, start)
			return Outcome{Report: existing, Skipped: true, SkipReason: SkipReportExists}, nil
		case !errors.Is(err, domain.ErrReportNotFound):
			err = fmt.Errorf("проверка существующего отчёта: %w", err)
			s.recordFailure(ctx, week, opts.Source, err, log)
			metrics.ObserveReport(string(opts.Source), "failed", start)
			return Outcome{}, err
		}
	}

	report, err := s.build(ctx, week, opts)
	if err != nil {
		log.Error().Err(err).Msg("report: не удалось построить отчёт")
		s.recordFailure(ctx, week, opts.Source, err, log)
		metrics.ObserveReport(string(opts.Source), "failed", start)
		return Outcome{}, err
	}

	saved, err := s.reports.SaveReport(ctx, report)
	if errors.Is(err, domain.ErrReportExists) {
		log.Info().Msg("report: отчёт за неделю сохранён параллельно, пропускаем")
		existing, getErr := s.reports.GetReportByWeek(ctx, week)
		if getErr != nil {
			existing = domain.WeeklyReport{}
		}
		s.skipped(ctx, week, existing.ID, opts.Source, start)
		return Outcome{Report: existing, Skipped: true, SkipReason: SkipReportExists}, nil
	}
	if err != nil {
		err = fmt.Errorf("сохранение отчёта: %w", err)
		log.Error().Err(err).Msg("report: не удалось сохранить отчёт")
		s.recordFailure(ctx, week, opts.Source, err, log)
		metrics.ObserveReport(string(opts.Source), "failed", start)
		return Outcome{}, err
	}

	log.Info().
		Str("report_id", saved.ID).
		Int("total_updates", saved.TotalUpdates).
		Int("unique_members", saved.UniqueMembers).
		Dur("duration", time.Since(start)).
		Msg("report: отчёт построен")
	metrics.ObserveReport(string(opts.Source), "generated", start)
	s.recordEvent(ctx, domain.BusinessMetric{
		Event:     domain.BusinessMetricEventReportGenerated,
		ReportID:  saved.ID,
		WeekStart: week.StartKey(),
		WeekEnd:   week.EndKey(),
		Metadata:  map[string]any{"source": string(saved.Source), "total_updates": saved.TotalUpdates, "ai": opts.UseAI},
	})
	s.notify(ctx, saved, log)
	return Outcome{Report: saved}, nil
}

func (s *Service) build(ctx context.Context, week domain.WeekRange, opts GenerateOptions) (domain.WeeklyReport, error) {
	agg, err := s.aggregator.Aggregate(ctx, week)
	if err != nil {
		return domain.WeeklyReport{}, err
	}

	var summary domain.WeeklyReportSummary
	if agg.TotalUpdates == 0 {
		summary = domain.NoDataSummary()
	} else {
		summary = s.summarizer(opts.UseAI).SummarizeWeek(ctx, domain.SummaryRequest{
			Week:         week,
			Days:         agg.Days,
			Instructions: opts.Instructions,
		}).Normalize()
	}

	return domain.WeeklyReport{
		ID:            uuid.NewString(),
		Week:          week,
		TotalUpdates:  agg.TotalUpdates,
		UniqueMembers: agg.UniqueMembers,
		Entries:       agg.Days,
		Summary:       summary,
		GeneratedAt:   s.now(),
		Status:        domain.ReportStatusGenerated,
		Source:        opts.Source,
	}, nil
}

func (s *Service) summarizer(useAI bool) domain.WeeklySummarizer {
	if useAI && s.ai != nil {
		return s.ai
	}
	if useAI {
		s.log.Warn().Msg("report: AI-суммаризатор не настроен, используем базовый")
	}
	return s.basic
}

// recordFailure сохраняет отчёт со статусом failed. Ошибка сохранения только логируется.
func (s *Service) recordFailure(ctx context.Context, week domain.WeekRange, source domain.ReportSource, cause error, log zerolog.Logger) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureSaveTimeout)
	defer cancel()

	failed := domain.WeeklyReport{
		ID:          uuid.NewString(),
		Week:        week,
		Entries:     []domain.StandupDay{},
		Summary:     domain.WeeklyReportSummary{}.Normalize(),
		GeneratedAt: s.now(),
		Status:      domain.ReportStatusFailed,
		Error:       cause.Error(),
		Source:      source,
	}
	saved, err := s.reports.SaveReport(saveCtx, failed)
	if err != nil {
		log.Error().Err(err).Msg("report: не удалось сохранить отчёт со статусом failed")
		return
	}
	s.recordEvent(saveCtx, domain.BusinessMetric{
		Event:     domain.BusinessMetricEventReportFailed,
		ReportID:  saved.ID,
		WeekStart: week.StartKey(),
		WeekEnd:   week.EndKey(),
		Metadata:  map[string]any{"source": string(source), "error": cause.Error()},
	})
}

func (s *Service) skipped(ctx context.Context, week domain.WeekRange, reportID string, source domain.ReportSource, start time.Time) {
	metrics.ObserveReport(string(source), "skipped", start)
	s.recordEvent(ctx, domain.BusinessMetric{
		Event:     domain.BusinessMetricEventReportSkipped,
		ReportID:  reportID,
		WeekStart: week.StartKey(),
		WeekEnd:   week.EndKey(),
		Metadata:  map[string]any{"source": string(source)},
	})
}

func (s *Service) recordEvent(ctx context.Context, metric domain.BusinessMetric) {
	if s.events == nil {
		return
	}
	if metric.OccurredAt.IsZero() {
		metric.OccurredAt = s.now()
	}
	if err := s.events.RecordBusinessMetric(ctx, metric); err != nil {
		s.log.Warn().Err(err).Str("event", metric.Event).Msg("report: не удалось записать бизнес-метрику")
	}
}

func (s *Service) notify(ctx context.Context, report domain.WeeklyReport, log zerolog.Logger) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyReport(ctx, report); err != nil {
		log.Warn().Err(err).Str("report_id", report.ID).Msg("report: не удалось отправить отчёт")
	}
}

// Regenerate пересобирает итоги существующего отчёта по сохранённым записям и перезаписывает только summary.
func (s *Service) Regenerate(ctx context.Context, reportID string, instructions string) (domain.WeeklyReport, error) {
	report, err := s.reports.GetReport(ctx, reportID)
	if err != nil {
		return domain.WeeklyReport{}, fmt.Errorf("получение отчёта: %w", err)
	}
	summary := s.RegenerateSummary(ctx, report, instructions)
	if err := s.reports.UpdateReportSummary(ctx, report.ID, summary); err != nil {
		return domain.WeeklyReport{}, fmt.Errorf("обновление итогов: %w", err)
	}
	report.Summary = summary

	s.log.Info().Str("report_id", report.ID).Msg("report: итоги перегенерированы")
	metrics.ObserveReport(string(report.Source), "regenerated", time.Now())
	s.recordEvent(ctx, domain.BusinessMetric{
		Event:     domain.BusinessMetricEventSummaryRegenerated,
		ReportID:  report.ID,
		WeekStart: report.Week.StartKey(),
		WeekEnd:   report.Week.EndKey(),
		Metadata:  map[string]any{"custom_instructions": strings.TrimSpace(instructions) != ""},
	})
	return report, nil
}

// RegenerateSummary заново запускает AI-итоги по записям отчёта без обращения к хранилищу.
func (s *Service) RegenerateSummary(ctx context.Context, report domain.WeeklyReport, instructions string) domain.WeeklyReportSummary {
	if countUpdates(report.Entries) == 0 {
		return domain.NoDataSummary()
	}
	return s.summarizer(true).SummarizeWeek(ctx, domain.SummaryRequest{
		Week:         report.Week,
		Days:         report.Entries,
		Instructions: instructions,
	}).Normalize()
}

// List возвращает последние отчёты.
func (s *Service) List(ctx context.Context, limit int) ([]domain.WeeklyReport, error) {
	return s.reports.ListReports(ctx, limit)
}

// Get возвращает отчёт по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (domain.WeeklyReport, error) {
	return s.reports.GetReport(ctx, id)
}

func countUpdates(days []domain.StandupDay) int {
	total := 0
	for _, day := range days {
		total += len(day.Members)
	}
	return total
}
