package report

import (
	"bufio"
	"io"
	"strings"

	"standup-tracker/internal/domain"
)

var csvHeader = []string{"Date", "Team Member", "Role", "Yesterday", "Today", "Blockers"}

// WriteCSV выгружает записи отчёта построчно: одна строка на апдейт, все поля в кавычках.
// clean применяется к текстовым полям апдейта, nil означает вывод как есть.
func WriteCSV(w io.Writer, r domain.WeeklyReport, clean func(string) string) error {
	if clean == nil {
		clean = func(s string) string { return s }
	}
	bw := bufio.NewWriter(w)
	if err := writeCSVRow(bw, csvHeader); err != nil {
		return err
	}
	for _, day := range r.Entries {
		for _, u := range day.Members {
			row := []string{day.Date, u.Name, u.Role, clean(u.Yesterday), clean(u.Today), clean(u.Blockers)}
			if err := writeCSVRow(bw, row); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func writeCSVRow(w *bufio.Writer, fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(field, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}
