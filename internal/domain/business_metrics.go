package domain

import (
	"context"
	"time"
)

// BusinessMetric описывает бизнесовое событие, которое сохраняется для последующего анализа.
type BusinessMetric struct {
	Event      string
	ReportID   string
	WeekStart  string
	WeekEnd    string
	Metadata   map[string]any
	OccurredAt time.Time
}

const (
	// BusinessMetricEventReportGenerated фиксирует успешное построение отчёта.
	BusinessMetricEventReportGenerated = "report_generated"
	// BusinessMetricEventReportFailed фиксирует отчёт, сохранённый со статусом failed.
	BusinessMetricEventReportFailed = "report_failed"
	// BusinessMetricEventReportSkipped фиксирует пропуск из-за уже существующего отчёта.
	BusinessMetricEventReportSkipped = "report_skipped"
	// BusinessMetricEventSummaryRegenerated фиксирует перегенерацию итогов.
	BusinessMetricEventSummaryRegenerated = "summary_regenerated"
)

// BusinessMetricRepo сохраняет бизнесовые события.
type BusinessMetricRepo interface {
	RecordBusinessMetric(ctx context.Context, metric BusinessMetric) error
}
