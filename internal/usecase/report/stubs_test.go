package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"standup-tracker/internal/calendar"
	"standup-tracker/internal/domain"
)

type stubUpdates struct {
	mu      sync.Mutex
	updates []domain.TeamMemberUpdate
	err     error
	calls   int
}

func (s *stubUpdates) ListUpdatesInRange(_ context.Context, _, _ time.Time) ([]domain.TeamMemberUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.TeamMemberUpdate(nil), s.updates...), nil
}

type memReports struct {
	mu        sync.Mutex
	reports   []domain.WeeklyReport
	saveErr   error
	getErr    error
	saveCalls int
}

func (m *memReports) GetReportByWeek(_ context.Context, week domain.WeekRange) (domain.WeeklyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.WeeklyReport{}, m.getErr
	}
	for i := len(m.reports) - 1; i >= 0; i-- {
		if m.reports[i].Week.Key() == week.Key() {
			return m.reports[i], nil
		}
	}
	return domain.WeeklyReport{}, domain.ErrReportNotFound
}

func (m *memReports) GetReport(_ context.Context, id string) (domain.WeeklyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.WeeklyReport{}, domain.ErrReportNotFound
}

func (m *memReports) ListReports(_ context.Context, limit int) ([]domain.WeeklyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.WeeklyReport(nil), m.reports...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveReport повторяет частичный уникальный индекс по плановым отчётам.
func (m *memReports) SaveReport(_ context.Context, r domain.WeeklyReport) (domain.WeeklyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return domain.WeeklyReport{}, m.saveErr
	}
	if r.Source == domain.ReportSourceScheduled && r.Status == domain.ReportStatusGenerated {
		for _, existing := range m.reports {
			if existing.Week.Key() == r.Week.Key() && existing.Source == r.Source && existing.Status == r.Status {
				return domain.WeeklyReport{}, domain.ErrReportExists
			}
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.reports = append(m.reports, r)
	return r, nil
}

func (m *memReports) UpdateReportSummary(_ context.Context, id string, summary domain.WeeklyReportSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.reports {
		if m.reports[i].ID == id {
			m.reports[i].Summary = summary
			return nil
		}
	}
	return domain.ErrReportNotFound
}

func (m *memReports) byStatus(status domain.ReportStatus) []domain.WeeklyReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.WeeklyReport
	for _, r := range m.reports {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

type fakeSummarizer struct {
	mu       sync.Mutex
	calls    int
	captured domain.SummaryRequest
	summary  domain.WeeklyReportSummary
	delay    time.Duration
}

func (f *fakeSummarizer) SummarizeWeek(_ context.Context, req domain.SummaryRequest) domain.WeeklyReportSummary {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.captured = req
	return f.summary
}

func (f *fakeSummarizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLocker struct {
	busy bool
	err  error
}

func (f *fakeLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	if f.busy {
		return nil, false, nil
	}
	return func() {}, true, nil
}

type fakeNotifier struct {
	sent []domain.WeeklyReport
	err  error
}

func (f *fakeNotifier) NotifyReport(_ context.Context, r domain.WeeklyReport) error {
	f.sent = append(f.sent, r)
	return f.err
}

type memEvents struct {
	mu     sync.Mutex
	events []domain.BusinessMetric
}

func (m *memEvents) RecordBusinessMetric(_ context.Context, metric domain.BusinessMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, metric)
	return nil
}

func (m *memEvents) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Event)
	}
	return out
}

var errStore = errors.New("connection refused")

func mustCalendar(t *testing.T) *calendar.Calendar {
	t.Helper()
	cal, err := calendar.New("America/Vancouver")
	if err != nil {
		t.Fatalf("календарь: %v", err)
	}
	return cal
}

func mustWeek(t *testing.T, cal *calendar.Calendar) domain.WeekRange {
	t.Helper()
	week, err := cal.ParseWeekRange("2025-01-06", "2025-01-12")
	if err != nil {
		t.Fatalf("неделя: %v", err)
	}
	return week
}

func localTime(t *testing.T, cal *calendar.Calendar, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02T15:04:05", value, cal.Location())
	if err != nil {
		t.Fatalf("время: %v", err)
	}
	return ts
}

type fixture struct {
	cal      *calendar.Calendar
	week     domain.WeekRange
	updates  *stubUpdates
	reports  *memReports
	basic    *fakeSummarizer
	ai       *fakeSummarizer
	notifier *fakeNotifier
	events   *memEvents
	service  *Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	cal := mustCalendar(t)
	f := &fixture{
		cal:      cal,
		week:     mustWeek(t, cal),
		updates:  &stubUpdates{},
		reports:  &memReports{},
		basic:    &fakeSummarizer{summary: domain.WeeklyReportSummary{TeamInsights: "basic"}},
		ai:       &fakeSummarizer{summary: domain.WeeklyReportSummary{TeamInsights: "ai"}},
		notifier: &fakeNotifier{},
		events:   &memEvents{},
	}
	f.updates.updates = []domain.TeamMemberUpdate{
		{ID: "1", Name: "Francois", Role: "Developer", Yesterday: "Login", CreatedAt: localTime(t, cal, "2025-01-06T09:00:00")},
		{ID: "2", Name: "Atena", Role: "Designer", Yesterday: "Mockups", CreatedAt: localTime(t, cal, "2025-01-07T09:00:00")},
	}
	all := append([]Option{WithNotifier(f.notifier), WithBusinessMetrics(f.events)}, opts...)
	f.service = NewService(NewAggregator(f.updates, cal, domain.MemberKeyNameRole), f.reports, f.basic, f.ai, zerolog.Nop(), all...)
	return f
}
