package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"standup-tracker/internal/calendar"
	"standup-tracker/internal/domain"
	"standup-tracker/internal/infra/metrics"
)

// NewGenerateJob формирует задачу на асинхронное построение отчёта.
func NewGenerateJob(week domain.WeekRange, opts GenerateOptions) domain.ReportJob {
	return domain.ReportJob{
		ID:           uuid.NewString(),
		WeekStart:    week.StartKey(),
		WeekEnd:      week.EndKey(),
		Force:        opts.Force,
		UseAI:        opts.UseAI,
		Instructions: opts.Instructions,
		Cause:        domain.ReportCauseManual,
		RequestedAt:  time.Now().UTC(),
	}
}

// NewRegenerateJob формирует задачу на перегенерацию итогов отчёта.
func NewRegenerateJob(reportID, instructions string) domain.ReportJob {
	return domain.ReportJob{
		ID:           uuid.NewString(),
		ReportID:     reportID,
		UseAI:        true,
		Instructions: instructions,
		Cause:        domain.ReportCauseRegenerate,
		RequestedAt:  time.Now().UTC(),
	}
}

// Worker обрабатывает задачи из очереди отчётов.
type Worker struct {
	queue   domain.ReportQueue
	service *Service
	cal     *calendar.Calendar
	log     zerolog.Logger
	backoff time.Duration
}

// NewWorker создаёт обработчик очереди.
func NewWorker(queue domain.ReportQueue, service *Service, cal *calendar.Calendar, logger zerolog.Logger) *Worker {
	return &Worker{
		queue:   queue,
		service: service,
		cal:     cal,
		log:     logger.With().Str("component", "report_worker").Logger(),
		backoff: time.Second,
	}
}

// Run читает задачи до отмены контекста.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, err := w.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			w.log.Error().Err(err).Msg("worker: ошибка чтения очереди")
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.backoff):
			}
			continue
		}
		_ = w.Handle(ctx, job)
	}
}

// Handle выполняет одну задачу. Ошибка логируется и возвращается для тестов и CLI.
func (w *Worker) Handle(ctx context.Context, job domain.ReportJob) error {
	jobLog := w.log.With().
		Str("job_id", job.ID).
		Str("cause", string(job.Cause)).
		Logger()

	err := w.handle(ctx, job, jobLog)
	metrics.ObserveQueueJob(string(job.Cause), err)
	if err != nil {
		jobLog.Error().Err(err).Msg("worker: задача завершилась ошибкой")
	}
	return err
}

func (w *Worker) handle(ctx context.Context, job domain.ReportJob, jobLog zerolog.Logger) error {
	if job.ID == "" {
		return errors.New("задача без идентификатора")
	}
	switch job.Cause {
	case domain.ReportCauseRegenerate:
		if job.ReportID == "" {
			return errors.New("задача перегенерации без report_id")
		}
		report, err := w.service.Regenerate(ctx, job.ReportID, job.Instructions)
		if err != nil {
			return err
		}
		jobLog.Info().Str("report_id", report.ID).Msg("worker: итоги перегенерированы")
		return nil
	default:
		week, err := w.cal.ParseWeekRange(job.WeekStart, job.WeekEnd)
		if err != nil {
			return fmt.Errorf("неверная неделя в задаче: %w", err)
		}
		outcome, err := w.service.Generate(ctx, week, GenerateOptions{
			Source:       domain.ReportSourceManual,
			Force:        job.Force,
			UseAI:        job.UseAI,
			Instructions: job.Instructions,
		})
		if err != nil {
			return err
		}
		jobLog.Info().
			Str("report_id", outcome.Report.ID).
			Bool("skipped", outcome.Skipped).
			Msg("worker: задача обработана")
		return nil
	}
}
