package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"standup-tracker/internal/domain"
)

func scheduled(useAI bool) GenerateOptions {
	return GenerateOptions{Source: domain.ReportSourceScheduled, UseAI: useAI}
}

func TestGenerateScheduledIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.Generate(ctx, f.week, scheduled(true))
	if err != nil || first.Skipped {
		t.Fatalf("первый запуск должен построить отчёт: %+v, %v", first, err)
	}
	second, err := f.service.Generate(ctx, f.week, scheduled(true))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !second.Skipped || second.SkipReason != SkipReportExists {
		t.Fatalf("второй запуск должен быть пропущен: %+v", second)
	}
	if second.Report.ID != first.Report.ID {
		t.Fatalf("ожидали существующий отчёт в результате пропуска")
	}
	if got := len(f.reports.byStatus(domain.ReportStatusGenerated)); got != 1 {
		t.Fatalf("ожидали ровно один отчёт, получили %d", got)
	}
	if f.ai.callCount() != 1 {
		t.Fatalf("ожидали один вызов AI, получили %d", f.ai.callCount())
	}
}

func TestGenerateConcurrentScheduledRunsProduceOneReport(t *testing.T) {
	f := newFixture(t)
	f.ai.delay = 5 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.Generate(context.Background(), f.week, scheduled(true)); err != nil {
				t.Errorf("не ожидали ошибку: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(f.reports.byStatus(domain.ReportStatusGenerated)); got != 1 {
		t.Fatalf("ожидали ровно один отчёт за неделю, получили %d", got)
	}
}

func TestGenerateEmptyWeekDoesNotCallAI(t *testing.T) {
	f := newFixture(t)
	f.updates.updates = nil

	out, err := f.service.Generate(context.Background(), f.week, scheduled(true))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	r := out.Report
	if r.TotalUpdates != 0 || r.UniqueMembers != 0 || len(r.Entries) != 0 {
		t.Fatalf("ожидали пустой отчёт: %+v", r)
	}
	if r.Summary.TeamInsights != domain.NoDataInsights {
		t.Fatalf("ожидали сообщение об отсутствии данных, получили %q", r.Summary.TeamInsights)
	}
	if f.ai.callCount() != 0 || f.basic.callCount() != 0 {
		t.Fatalf("суммаризаторы не должны вызываться для пустой недели")
	}
	if r.Status != domain.ReportStatusGenerated {
		t.Fatalf("ожидали статус generated, получили %s", r.Status)
	}
}

func TestGenerateChoosesSummarizer(t *testing.T) {
	f := newFixture(t)
	out, err := f.service.Generate(context.Background(), f.week, GenerateOptions{Source: domain.ReportSourceManual, UseAI: false})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if out.Report.Summary.TeamInsights != "basic" || f.ai.callCount() != 0 {
		t.Fatalf("ожидали базовый суммаризатор: %+v", out.Report.Summary)
	}
	if out.Report.Summary.KeyAccomplishments == nil {
		t.Fatalf("итог должен быть нормализован")
	}
}

func TestGenerateFallsBackToBasicWithoutAI(t *testing.T) {
	f := newFixture(t)
	f.service.ai = nil
	out, err := f.service.Generate(context.Background(), f.week, scheduled(true))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if out.Report.Summary.TeamInsights != "basic" {
		t.Fatalf("ожидали базовый суммаризатор без AI")
	}
}

func TestGeneratePassesInstructionsAndDays(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Generate(context.Background(), f.week, GenerateOptions{UseAI: true, Instructions: "Be brief"})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if f.ai.captured.Instructions != "Be brief" || len(f.ai.captured.Days) != 2 {
		t.Fatalf("неожиданный запрос к суммаризатору: %+v", f.ai.captured)
	}
	if f.ai.captured.Week.Key() != f.week.Key() {
		t.Fatalf("неожиданная неделя в запросе: %s", f.ai.captured.Week)
	}
}

func TestGenerateManualForceCreatesAdditionalReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.service.Generate(ctx, f.week, scheduled(true)); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	out, err := f.service.Generate(ctx, f.week, GenerateOptions{Source: domain.ReportSourceManual, UseAI: true})
	if err != nil || !out.Skipped {
		t.Fatalf("без force ручной запуск должен уважать существующий отчёт: %+v %v", out, err)
	}

	out, err = f.service.Generate(ctx, f.week, GenerateOptions{Source: domain.ReportSourceManual, UseAI: true, Force: true})
	if err != nil || out.Skipped {
		t.Fatalf("force должен создать ещё один отчёт: %+v %v", out, err)
	}
	if got := len(f.reports.byStatus(domain.ReportStatusGenerated)); got != 2 {
		t.Fatalf("ожидали два отчёта, получили %d", got)
	}
}

func TestGenerateScheduledIgnoresForce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opts := scheduled(true)
	opts.Force = true
	if _, err := f.service.Generate(ctx, f.week, opts); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	out, err := f.service.Generate(ctx, f.week, opts)
	if err != nil || !out.Skipped {
		t.Fatalf("планировщик не должен создавать дубликаты даже с force: %+v %v", out, err)
	}
}

func TestGenerateRecordsFailedReportOnStoreError(t *testing.T) {
	f := newFixture(t)
	f.updates.err = errStore

	_, err := f.service.Generate(context.Background(), f.week, scheduled(true))
	if !errors.Is(err, errStore) {
		t.Fatalf("ожидали исходную ошибку хранилища, получили %v", err)
	}
	failed := f.reports.byStatus(domain.ReportStatusFailed)
	if len(failed) != 1 {
		t.Fatalf("ожидали один отчёт со статусом failed, получили %d", len(failed))
	}
	if !strings.Contains(failed[0].Error, errStore.Error()) {
		t.Fatalf("ожидали текст ошибки в отчёте, получили %q", failed[0].Error)
	}
	if failed[0].Source != domain.ReportSourceScheduled {
		t.Fatalf("ожидали источник scheduled, получили %s", failed[0].Source)
	}
	if len(f.notifier.sent) != 0 {
		t.Fatalf("неудачный отчёт не должен отправляться")
	}
}

func TestGenerateSwallowsSecondaryFailure(t *testing.T) {
	f := newFixture(t)
	f.reports.saveErr = errors.New("disk full")

	_, err := f.service.Generate(context.Background(), f.week, scheduled(true))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("ожидали ошибку сохранения, получили %v", err)
	}
	if f.reports.saveCalls != 2 {
		t.Fatalf("ожидали попытку сохранить отчёт и запись о сбое, получили %d", f.reports.saveCalls)
	}
}

func TestGenerateExistsCheckErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.reports.getErr = errStore
	if _, err := f.service.Generate(context.Background(), f.week, scheduled(true)); !errors.Is(err, errStore) {
		t.Fatalf("ожидали ошибку проверки, получили %v", err)
	}
	if f.ai.callCount() != 0 {
		t.Fatalf("при ошибке проверки конвейер не должен запускаться")
	}
}

type conflictReports struct {
	*memReports
	conflict bool
}

func (c *conflictReports) SaveReport(ctx context.Context, r domain.WeeklyReport) (domain.WeeklyReport, error) {
	if c.conflict && r.Status == domain.ReportStatusGenerated {
		return domain.WeeklyReport{}, domain.ErrReportExists
	}
	return c.memReports.SaveReport(ctx, r)
}

func TestGenerateTreatsUniqueViolationAsSkip(t *testing.T) {
	f := newFixture(t)
	repo := &conflictReports{memReports: f.reports, conflict: true}
	f.service.reports = repo

	out, err := f.service.Generate(context.Background(), f.week, scheduled(true))
	if err != nil {
		t.Fatalf("нарушение уникальности не должно быть ошибкой: %v", err)
	}
	if !out.Skipped || out.SkipReason != SkipReportExists {
		t.Fatalf("ожидали пропуск: %+v", out)
	}
	if len(f.reports.byStatus(domain.ReportStatusFailed)) != 0 {
		t.Fatalf("пропуск не должен записывать failed-отчёт")
	}
}

func TestGenerateDistributedLockBusy(t *testing.T) {
	f := newFixture(t, WithLocker(&fakeLocker{busy: true}, 0))

	out, err := f.service.Generate(context.Background(), f.week, scheduled(true))
	if err != nil || !out.Skipped || out.SkipReason != SkipInProgress {
		t.Fatalf("плановый запуск должен тихо пропускаться: %+v %v", out, err)
	}
	if _, err := f.service.Generate(context.Background(), f.week, GenerateOptions{UseAI: true}); !errors.Is(err, domain.ErrGenerationInProgress) {
		t.Fatalf("ручной запуск должен получить ErrGenerationInProgress, получили %v", err)
	}
	if f.reports.saveCalls != 0 {
		t.Fatalf("при занятой блокировке ничего не сохраняется")
	}
}

func TestGenerateContinuesWhenLockerFails(t *testing.T) {
	f := newFixture(t, WithLocker(&fakeLocker{err: errors.New("redis down")}, 0))
	out, err := f.service.Generate(context.Background(), f.week, scheduled(true))
	if err != nil || out.Skipped {
		t.Fatalf("недоступный Redis не должен останавливать генерацию: %+v %v", out, err)
	}
}

func TestGenerateNotifierFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("telegram down")
	out, err := f.service.Generate(context.Background(), f.week, scheduled(true))
	if err != nil || out.Skipped {
		t.Fatalf("ошибка доставки не должна ломать конвейер: %v", err)
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("ожидали одну попытку отправки, получили %d", len(f.notifier.sent))
	}
}

func TestGenerateRecordsBusinessEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.service.Generate(ctx, f.week, scheduled(true))
	_, _ = f.service.Generate(ctx, f.week, scheduled(true))

	got := f.events.names()
	want := []string{domain.BusinessMetricEventReportGenerated, domain.BusinessMetricEventReportSkipped}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("неожиданные события: %v", got)
	}
}

func TestGenerateRejectsReversedWeek(t *testing.T) {
	f := newFixture(t)
	reversed := domain.WeekRange{Start: f.week.End, End: f.week.Start}
	if _, err := f.service.Generate(context.Background(), reversed, scheduled(true)); !errors.Is(err, domain.ErrInvalidWeekRange) {
		t.Fatalf("ожидали ErrInvalidWeekRange, получили %v", err)
	}
}

func TestRegenerateOverwritesOnlySummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	out, err := f.service.Generate(ctx, f.week, scheduled(false))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	callsBefore := f.updates.calls

	f.ai.summary = domain.WeeklyReportSummary{TeamInsights: "fresh"}
	updated, err := f.service.Regenerate(ctx, out.Report.ID, "Focus on risks")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if updated.Summary.TeamInsights != "fresh" {
		t.Fatalf("ожидали новые итоги, получили %q", updated.Summary.TeamInsights)
	}
	if f.updates.calls != callsBefore {
		t.Fatalf("перегенерация не должна перечитывать апдейты")
	}
	if f.ai.captured.Instructions != "Focus on risks" {
		t.Fatalf("инструкции не переданы суммаризатору")
	}
	stored, _ := f.reports.GetReport(ctx, out.Report.ID)
	if stored.Summary.TeamInsights != "fresh" || stored.TotalUpdates != out.Report.TotalUpdates || len(stored.Entries) != len(out.Report.Entries) {
		t.Fatalf("изменилось что-то кроме summary: %+v", stored)
	}
	if events := f.events.names(); events[len(events)-1] != domain.BusinessMetricEventSummaryRegenerated {
		t.Fatalf("ожидали событие перегенерации: %v", events)
	}
}

func TestRegenerateUnknownReport(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.Regenerate(context.Background(), "missing", ""); !errors.Is(err, domain.ErrReportNotFound) {
		t.Fatalf("ожидали ErrReportNotFound, получили %v", err)
	}
}

func TestRegenerateSummaryOfEmptyReport(t *testing.T) {
	f := newFixture(t)
	summary := f.service.RegenerateSummary(context.Background(), domain.WeeklyReport{Week: f.week}, "")
	if summary.TeamInsights != domain.NoDataInsights || f.ai.callCount() != 0 {
		t.Fatalf("для пустого отчёта AI не вызывается: %+v", summary)
	}
}

func TestListAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	out, err := f.service.Generate(ctx, f.week, scheduled(true))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	reports, err := f.service.List(ctx, 10)
	if err != nil || len(reports) != 1 {
		t.Fatalf("ожидали один отчёт: %v %v", reports, err)
	}
	got, err := f.service.Get(ctx, out.Report.ID)
	if err != nil || got.ID != out.Report.ID {
		t.Fatalf("ожидали тот же отчёт: %v", err)
	}
}
