package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrReportNotFound возвращается, если отчёт не найден.
	ErrReportNotFound = errors.New("report not found")
	// ErrReportExists возвращается хранилищем при нарушении уникальности недели.
	ErrReportExists = errors.New("report for this week already exists")
	// ErrInvalidWeekRange возвращается, если начало недели позже конца.
	ErrInvalidWeekRange = errors.New("week start must not be after week end")
	// ErrGenerationInProgress возвращается, если отчёт за эту неделю уже строит другой процесс.
	ErrGenerationInProgress = errors.New("report generation already in progress")
)

// UpdateRepo читает апдейты стендапов.
type UpdateRepo interface {
	// ListUpdatesInRange возвращает апдейты, дата которых попадает в [start, end].
	ListUpdatesInRange(ctx context.Context, start, end time.Time) ([]TeamMemberUpdate, error)
}

// ReportRepo хранит недельные отчёты.
type ReportRepo interface {
	GetReportByWeek(ctx context.Context, week WeekRange) (WeeklyReport, error)
	GetReport(ctx context.Context, id string) (WeeklyReport, error)
	ListReports(ctx context.Context, limit int) ([]WeeklyReport, error)
	SaveReport(ctx context.Context, report WeeklyReport) (WeeklyReport, error)
	UpdateReportSummary(ctx context.Context, id string, summary WeeklyReportSummary) error
}

// SummaryRequest содержит входные данные суммаризатора.
type SummaryRequest struct {
	Week         WeekRange
	Days         []StandupDay
	Instructions string
}

// WeeklySummarizer строит командный итог недели. Никогда не возвращает ошибку:
// при сбое реализация деградирует до заглушки.
type WeeklySummarizer interface {
	SummarizeWeek(ctx context.Context, req SummaryRequest) WeeklyReportSummary
}

// CompletionRequest описывает один вызов LLM.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Completer выполняет запрос к внешнему LLM.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ReportNotifier доставляет готовый отчёт во внешний канал.
type ReportNotifier interface {
	NotifyReport(ctx context.Context, report WeeklyReport) error
}

// Locker обеспечивает межпроцессное взаимное исключение.
type Locker interface {
	// TryLock пытается захватить ключ. ok=false означает, что ключ уже занят.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}
