package domain

import (
	"context"
	"time"
)

// ReportJobCause описывает источник запроса на отчёт.
type ReportJobCause string

const (
	// ReportCauseManual — отчёт запрошен пользователем через API или CLI.
	ReportCauseManual ReportJobCause = "manual"
	// ReportCauseRegenerate — запрошена перегенерация итогов существующего отчёта.
	ReportCauseRegenerate ReportJobCause = "regenerate"
)

// ReportJob содержит информацию об асинхронной задаче построения отчёта.
type ReportJob struct {
	ID           string         `json:"job_id"`
	WeekStart    string         `json:"week_start,omitempty"`
	WeekEnd      string         `json:"week_end,omitempty"`
	ReportID     string         `json:"report_id,omitempty"`
	Force        bool           `json:"force,omitempty"`
	UseAI        bool           `json:"use_ai"`
	Instructions string         `json:"instructions,omitempty"`
	Cause        ReportJobCause `json:"cause"`
	RequestedAt  time.Time      `json:"requested_at"`
}

// ReportQueue описывает очередь задач на построение отчётов.
type ReportQueue interface {
	Enqueue(ctx context.Context, job ReportJob) error
	// Pop блокируется до появления задачи или отмены контекста.
	Pop(ctx context.Context) (ReportJob, error)
}
