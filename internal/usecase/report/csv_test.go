package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"standup-tracker/internal/domain"
)

func TestWriteCSVQuotesEveryField(t *testing.T) {
	r := domain.WeeklyReport{Entries: []domain.StandupDay{
		{Date: "2025-01-06", Members: []domain.TeamMemberUpdate{
			{Name: "Francois", Role: "Developer", Yesterday: `Fixed "login"`, Today: "Tests, docs", Blockers: ""},
		}},
		{Date: "2025-01-07", Members: []domain.TeamMemberUpdate{
			{Name: "Atena", Role: "Designer", Yesterday: "<p>Mockups</p>", Today: "Line1\nLine2", Blockers: "None"},
		}},
	}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, r, nil); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	want := strings.Join([]string{
		`"Date","Team Member","Role","Yesterday","Today","Blockers"`,
		`"2025-01-06","Francois","Developer","Fixed ""login""","Tests, docs",""`,
		`"2025-01-07","Atena","Designer","<p>Mockups</p>","Line1` + "\n" + `Line2","None"`,
	}, "\n") + "\n"
	if buf.String() != want {
		t.Fatalf("неожиданный CSV:\n%s\nожидали:\n%s", buf.String(), want)
	}
}

func TestWriteCSVAppliesCleaner(t *testing.T) {
	r := domain.WeeklyReport{Entries: []domain.StandupDay{{Date: "2025-01-06", Members: []domain.TeamMemberUpdate{{Name: "A", Yesterday: "<b>x</b>"}}}}}
	var buf bytes.Buffer
	clean := func(s string) string { return strings.NewReplacer("<b>", "", "</b>", "").Replace(s) }
	if err := WriteCSV(&buf, r, clean); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !strings.Contains(buf.String(), `"A","","x"`) {
		t.Fatalf("ожидали очищенное поле: %s", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWriteCSVReportsWriterError(t *testing.T) {
	if err := WriteCSV(failingWriter{}, domain.WeeklyReport{}, nil); err == nil {
		t.Fatalf("ожидали ошибку записи")
	}
}
