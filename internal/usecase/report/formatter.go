package report

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"standup-tracker/internal/adapters/summarizer"
	"standup-tracker/internal/domain"
)

// FormatReport формирует HTML-представление отчёта для отправки в Telegram.
func FormatReport(r domain.WeeklyReport) string {
	var sections []string

	header := fmt.Sprintf("📅 <b>Weekly report %s – %s</b>\n%d updates from %d team members",
		r.Week.StartKey(), r.Week.EndKey(), r.TotalUpdates, r.UniqueMembers)
	if r.Status == domain.ReportStatusFailed {
		header += "\n⚠️ Generation failed: " + escapeHTML(r.Error)
	}
	sections = append(sections, header)

	if insights := strings.TrimSpace(r.Summary.TeamInsights); insights != "" {
		sections = append(sections, "🧭 <b>Team insights</b>\n"+plainHTML(insights))
	}
	sections = appendList(sections, "✅ <b>Key accomplishments</b>", r.Summary.KeyAccomplishments)
	sections = appendList(sections, "🔧 <b>Ongoing work</b>", r.Summary.OngoingWork)
	sections = appendList(sections, "🚧 <b>Blockers</b>", r.Summary.Blockers)
	sections = appendList(sections, "💡 <b>Recommendations</b>", r.Summary.Recommendations)

	if members := buildMemberSections(r.Summary.MemberSummaries); members != "" {
		sections = append(sections, members)
	}

	return strings.TrimSpace(strings.Join(sections, "\n\n"))
}

func appendList(sections []string, title string, items []string) []string {
	items = filterNonEmptyStrings(items)
	if len(items) == 0 {
		return sections
	}
	var b strings.Builder
	b.WriteString(title)
	for _, item := range items {
		b.WriteString("\n• " + plainHTML(item))
	}
	return append(sections, b.String())
}

func buildMemberSections(members map[string]domain.MemberSummary) string {
	if len(members) == 0 {
		return ""
	}
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("👥 <b>Team members</b>")
	for _, name := range names {
		m := members[name]
		b.WriteString("\n\n<b>" + escapeHTML(name) + "</b>")
		if role := strings.TrimSpace(m.Role); role != "" {
			b.WriteString(" <i>" + escapeHTML(role) + "</i>")
		}
		if progress := strings.TrimSpace(m.Progress); progress != "" {
			b.WriteString("\n" + plainHTML(progress))
		}
		for _, item := range filterNonEmptyStrings(m.KeyContributions) {
			b.WriteString("\n• " + plainHTML(item))
		}
		for _, concern := range filterNonEmptyStrings(m.Concerns) {
			b.WriteString("\n⚠️ " + plainHTML(concern))
		}
		if focus := strings.TrimSpace(m.NextWeekFocus); focus != "" {
			b.WriteString("\n➡️ " + plainHTML(focus))
		}
	}
	return b.String()
}

func filterNonEmptyStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func escapeHTML(s string) string {
	return html.EscapeString(s)
}

// plainHTML убирает rich-text разметку апдейтов и экранирует остаток для Telegram.
func plainHTML(s string) string {
	return html.EscapeString(summarizer.StripHTML(s))
}
