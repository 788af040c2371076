package summarizer

import (
	"strings"
	"unicode/utf8"

	"standup-tracker/internal/domain"
)

type section int

const (
	sectionNone section = iota
	sectionAccomplishments
	sectionOngoing
	sectionBlockers
	sectionRecommendations
	sectionInsights
	sectionMember
)

// Порядок важен: "Member summaries" и "Weekly Summary" должны попасть в участников, а не в инсайты.
var sectionKeywords = []struct {
	section  section
	keywords []string
}{
	{sectionMember, []string{"member", "summaries", "summary", "individual"}},
	{sectionAccomplishments, []string{"accomplish", "achievement", "completed"}},
	{sectionOngoing, []string{"ongoing", "progress", "in flight", "current work", "working on"}},
	{sectionBlockers, []string{"blocker", "challenge", "blocked", "impediment"}},
	{sectionRecommendations, []string{"recommendation", "recommend", "suggestion", "next steps"}},
	{sectionInsights, []string{"insight", "observation", "overview"}},
}

var bulletPrefixes = []string{"- ", "• ", "* ", "•", "-"}

// extractFromText выполняет эвристический разбор ответа, который не является JSON.
// Никогда не паникует и не возвращает ошибку: в худшем случае списки пустые.
func extractFromText(text string) domain.WeeklyReportSummary {
	summary := domain.WeeklyReportSummary{MemberSummaries: map[string]domain.MemberSummary{}}
	current := sectionNone
	member := ""
	var insights []string

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if item, ok := bulletItem(line); ok {
			switch current {
			case sectionAccomplishments:
				summary.KeyAccomplishments = append(summary.KeyAccomplishments, item)
			case sectionOngoing:
				summary.OngoingWork = append(summary.OngoingWork, item)
			case sectionBlockers:
				summary.Blockers = append(summary.Blockers, item)
			case sectionRecommendations:
				summary.Recommendations = append(summary.Recommendations, item)
			case sectionInsights:
				insights = append(insights, item)
			case sectionMember:
				if member != "" {
					ms := summary.MemberSummaries[member]
					ms.KeyContributions = append(ms.KeyContributions, item)
					summary.MemberSummaries[member] = ms
				}
			}
			continue
		}

		heading := stripHeadingMarks(line)
		head := heading
		colon := strings.Index(heading, ":")
		if colon >= 0 {
			head = heading[:colon]
		}
		if next, ok := detectSection(strings.ToLower(head)); ok {
			current = next
			member = ""
			continue
		}

		if current == sectionMember && colon >= 0 {
			name := strings.TrimSpace(heading[:colon])
			if n := utf8.RuneCountInString(name); n >= 1 && n < 50 {
				member = name
				if _, exists := summary.MemberSummaries[name]; !exists {
					summary.MemberSummaries[name] = domain.MemberSummary{}
				}
				if rest := strings.TrimSpace(heading[colon+1:]); rest != "" {
					ms := summary.MemberSummaries[name]
					ms.Progress = rest
					summary.MemberSummaries[name] = ms
				}
			}
			continue
		}

		if current == sectionInsights {
			insights = append(insights, heading)
		}
	}

	summary.TeamInsights = strings.Join(insights, " ")
	return summary.Normalize()
}

func detectSection(lower string) (section, bool) {
	for _, candidate := range sectionKeywords {
		for _, keyword := range candidate.keywords {
			if strings.Contains(lower, keyword) {
				return candidate.section, true
			}
		}
	}
	return sectionNone, false
}

func bulletItem(line string) (string, bool) {
	if strings.HasPrefix(line, "**") || strings.HasPrefix(line, "--") {
		return "", false
	}
	for _, prefix := range bulletPrefixes {
		if strings.HasPrefix(line, prefix) {
			item := strings.TrimSpace(strings.TrimPrefix(line, prefix))
			if item == "" {
				return "", false
			}
			return item, true
		}
	}
	return "", false
}

func stripHeadingMarks(line string) string {
	line = strings.TrimLeft(line, "#")
	line = strings.TrimSpace(line)
	line = strings.ReplaceAll(line, "**", "")
	return strings.TrimSpace(line)
}
