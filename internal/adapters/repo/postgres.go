package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"standup-tracker/internal/domain"
	"standup-tracker/internal/infra/metrics"
)

const uniqueViolation = "23505"

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.UpdateRepo         = (*Postgres)(nil)
	_ domain.ReportRepo         = (*Postgres)(nil)
	_ domain.BusinessMetricRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// reportData хранит содержимое колонки report_data.
type reportData struct {
	Entries []domain.StandupDay        `json:"entries"`
	Summary domain.WeeklyReportSummary `json:"summary"`
}

func encodeReportData(report domain.WeeklyReport) ([]byte, error) {
	entries := report.Entries
	if entries == nil {
		entries = []domain.StandupDay{}
	}
	return json.Marshal(reportData{Entries: entries, Summary: report.Summary.Normalize()})
}

func decodeReportData(raw []byte) (reportData, error) {
	var data reportData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return reportData{}, fmt.Errorf("decode report data: %w", err)
		}
	}
	if data.Entries == nil {
		data.Entries = []domain.StandupDay{}
	}
	data.Summary = data.Summary.Normalize()
	return data, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// ListUpdatesInRange возвращает апдейты, чья дата (явная или по времени создания) попадает в неделю.
// start и end должны быть полуночью в опорной временной зоне.
func (p *Postgres) ListUpdatesInRange(ctx context.Context, start, end time.Time) ([]domain.TeamMemberUpdate, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	startKey := start.Format(domain.DateLayout)
	endKey := end.Format(domain.DateLayout)
	until := end.AddDate(0, 0, 1)

	begin := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id::text, member_id, name, role, yesterday, today, blockers,
       to_char(update_date, 'YYYY-MM-DD'), created_at
FROM standup_updates
WHERE (update_date IS NOT NULL AND update_date BETWEEN $1::date AND $2::date)
   OR (update_date IS NULL AND created_at >= $3 AND created_at < $4)
ORDER BY created_at ASC, id ASC
`, startKey, endKey, start, until)
	metrics.ObserveNetworkRequest("postgres", "updates_in_range", "standup_updates", begin, err)
	if err != nil {
		return nil, fmt.Errorf("query updates: %w", err)
	}
	defer rows.Close()

	updates := make([]domain.TeamMemberUpdate, 0)
	for rows.Next() {
		var (
			u    domain.TeamMemberUpdate
			date *string
		)
		if err := rows.Scan(&u.ID, &u.MemberID, &u.Name, &u.Role, &u.Yesterday, &u.Today, &u.Blockers, &date, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		if date != nil {
			u.Date = *date
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate updates: %w", err)
	}
	return updates, nil
}

const reportColumns = `id::text, to_char(week_start, 'YYYY-MM-DD'), to_char(week_end, 'YYYY-MM-DD'),
       total_updates, unique_members, report_data, generated_at, status, error, source`

func scanReport(row pgx.Row) (domain.WeeklyReport, error) {
	var (
		report     domain.WeeklyReport
		start, end string
		raw        []byte
		status     string
		source     string
	)
	if err := row.Scan(&report.ID, &start, &end, &report.TotalUpdates, &report.UniqueMembers, &raw, &report.GeneratedAt, &status, &report.Error, &source); err != nil {
		return domain.WeeklyReport{}, err
	}
	week, err := parseWeek(start, end)
	if err != nil {
		return domain.WeeklyReport{}, err
	}
	data, err := decodeReportData(raw)
	if err != nil {
		return domain.WeeklyReport{}, err
	}
	report.Week = week
	report.Entries = data.Entries
	report.Summary = data.Summary
	report.Status = domain.ReportStatus(status)
	report.Source = domain.ReportSource(source)
	return report, nil
}

func parseWeek(start, end string) (domain.WeekRange, error) {
	s, err := time.Parse(domain.DateLayout, start)
	if err != nil {
		return domain.WeekRange{}, fmt.Errorf("parse week_start: %w", err)
	}
	e, err := time.Parse(domain.DateLayout, end)
	if err != nil {
		return domain.WeekRange{}, fmt.Errorf("parse week_end: %w", err)
	}
	return domain.WeekRange{Start: s, End: e}, nil
}

// GetReportByWeek возвращает последний отчёт с точно такими датами недели, в любом статусе.
func (p *Postgres) GetReportByWeek(ctx context.Context, week domain.WeekRange) (domain.WeeklyReport, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT `+reportColumns+`
FROM weekly_reports
WHERE week_start = $1::date AND week_end = $2::date
ORDER BY generated_at DESC
LIMIT 1
`, week.StartKey(), week.EndKey())
	report, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveNetworkRequest("postgres", "report_by_week", "weekly_reports", start, nil)
		return domain.WeeklyReport{}, domain.ErrReportNotFound
	}
	metrics.ObserveNetworkRequest("postgres", "report_by_week", "weekly_reports", start, err)
	if err != nil {
		return domain.WeeklyReport{}, fmt.Errorf("get report by week: %w", err)
	}
	return report, nil
}

// GetReport возвращает отчёт по идентификатору.
func (p *Postgres) GetReport(ctx context.Context, id string) (domain.WeeklyReport, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.WeeklyReport{}, domain.ErrReportNotFound
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM weekly_reports WHERE id = $1::uuid`, id)
	report, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveNetworkRequest("postgres", "report_get", "weekly_reports", start, nil)
		return domain.WeeklyReport{}, domain.ErrReportNotFound
	}
	metrics.ObserveNetworkRequest("postgres", "report_get", "weekly_reports", start, err)
	if err != nil {
		return domain.WeeklyReport{}, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

// ListReports возвращает последние отчёты, новые первыми.
func (p *Postgres) ListReports(ctx context.Context, limit int) ([]domain.WeeklyReport, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+reportColumns+`
FROM weekly_reports
ORDER BY week_start DESC, generated_at DESC
LIMIT $1
`, limit)
	metrics.ObserveNetworkRequest("postgres", "report_list", "weekly_reports", start, err)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]domain.WeeklyReport, 0, limit)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// SaveReport вставляет новый отчёт. Нарушение уникальности недели возвращается как domain.ErrReportExists.
func (p *Postgres) SaveReport(ctx context.Context, report domain.WeeklyReport) (domain.WeeklyReport, error) {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now().UTC()
	}
	if report.Status == "" {
		report.Status = domain.ReportStatusPending
	}
	if report.Source == "" {
		report.Source = domain.ReportSourceManual
	}
	if report.Entries == nil {
		report.Entries = []domain.StandupDay{}
	}
	report.Summary = report.Summary.Normalize()
	payload, err := encodeReportData(report)
	if err != nil {
		return domain.WeeklyReport{}, fmt.Errorf("encode report: %w", err)
	}

	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err = p.pool.Exec(ctx, `
INSERT INTO weekly_reports (id, week_start, week_end, total_updates, unique_members, report_data, generated_at, status, error, source)
VALUES ($1::uuid, $2::date, $3::date, $4, $5, $6, $7, $8, $9, $10)
`, report.ID, report.Week.StartKey(), report.Week.EndKey(), report.TotalUpdates, report.UniqueMembers, payload,
		report.GeneratedAt, string(report.Status), report.Error, string(report.Source))
	metrics.ObserveNetworkRequest("postgres", "report_insert", "weekly_reports", start, err)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WeeklyReport{}, domain.ErrReportExists
		}
		return domain.WeeklyReport{}, fmt.Errorf("insert report: %w", err)
	}
	return report, nil
}

// UpdateReportSummary перезаписывает только summary внутри report_data.
func (p *Postgres) UpdateReportSummary(ctx context.Context, id string, summary domain.WeeklyReportSummary) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrReportNotFound
	}
	payload, err := json.Marshal(summary.Normalize())
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE weekly_reports
SET report_data = jsonb_set(report_data, '{summary}', $2::jsonb, true)
WHERE id = $1::uuid
`, id, payload)
	metrics.ObserveNetworkRequest("postgres", "report_update_summary", "weekly_reports", start, err)
	if err != nil {
		return fmt.Errorf("update report summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

// RecordBusinessMetric сохраняет бизнесовую метрику в БД.
func (p *Postgres) RecordBusinessMetric(ctx context.Context, metric domain.BusinessMetric) error {
	if metric.Event == "" {
		return nil
	}
	if metric.OccurredAt.IsZero() {
		metric.OccurredAt = time.Now().UTC()
	}

	var payload []byte
	if metric.Metadata != nil {
		if data, err := json.Marshal(metric.Metadata); err == nil {
			payload = data
		}
	}

	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO business_metrics (event, report_id, week_start, week_end, metadata, occurred_at)
VALUES ($1, NULLIF($2, '')::uuid, NULLIF($3, '')::date, NULLIF($4, '')::date, $5, $6)
`, metric.Event, metric.ReportID, metric.WeekStart, metric.WeekEnd, payload, metric.OccurredAt)
	metrics.ObserveNetworkRequest("postgres", "business_metrics_insert", "business_metrics", start, err)
	return err
}
