package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"standup-tracker/internal/domain"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "wrapped", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), want: true},
		{name: "other pg error", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isUniqueViolation(tc.err); got != tc.want {
				t.Fatalf("ожидали %v, получили %v", tc.want, got)
			}
		})
	}
}

func TestEncodeReportDataNeverWritesNull(t *testing.T) {
	payload, err := encodeReportData(domain.WeeklyReport{})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("невалидный JSON: %v", err)
	}
	if string(raw["entries"]) != "[]" {
		t.Fatalf("ожидали пустой список entries, получили %s", raw["entries"])
	}
	var summary map[string]json.RawMessage
	if err := json.Unmarshal(raw["summary"], &summary); err != nil {
		t.Fatalf("невалидный summary: %v", err)
	}
	for _, key := range []string{"keyAccomplishments", "ongoingWork", "blockers", "recommendations"} {
		if string(summary[key]) != "[]" {
			t.Fatalf("ожидали [] для %s, получили %s", key, summary[key])
		}
	}
	if string(summary["memberSummaries"]) != "{}" {
		t.Fatalf("ожидали {} для memberSummaries, получили %s", summary["memberSummaries"])
	}
}

func TestDecodeReportDataRoundTripsEntries(t *testing.T) {
	report := domain.WeeklyReport{
		Entries: []domain.StandupDay{{Date: "2025-01-06", Members: []domain.TeamMemberUpdate{{Name: "Alex", Role: "PM", CreatedAt: time.Date(2025, 1, 6, 17, 0, 0, 0, time.UTC)}}}},
		Summary: domain.WeeklyReportSummary{TeamInsights: "ok"},
	}
	payload, err := encodeReportData(report)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	data, err := decodeReportData(payload)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(data.Entries) != 1 || data.Entries[0].Members[0].Name != "Alex" || data.Summary.TeamInsights != "ok" {
		t.Fatalf("неожиданный результат: %+v", data)
	}
	if data.Summary.MemberSummaries == nil {
		t.Fatalf("ожидали нормализованную карту участников")
	}
}

func TestDecodeReportDataHandlesEmptyColumn(t *testing.T) {
	data, err := decodeReportData(nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if data.Entries == nil || data.Summary.KeyAccomplishments == nil {
		t.Fatalf("ожидали пустые значения вместо nil")
	}
}

func TestParseWeek(t *testing.T) {
	week, err := parseWeek("2025-01-06", "2025-01-12")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if week.Key() != "2025-01-06_2025-01-12" {
		t.Fatalf("неожиданный ключ %s", week.Key())
	}
	if _, err := parseWeek("06.01.2025", "2025-01-12"); err == nil {
		t.Fatalf("ожидали ошибку формата")
	}
}
