package summarizer

import (
	"fmt"
	"strings"

	"standup-tracker/internal/domain"
)

const (
	maxSynthContributions = 3
	contributionFallback  = 100
	focusLimit            = 200
)

// synthesizeMemberSummaries строит итоги участников прямо из их апдейтов,
// когда модель не вернула ни одного пригодного итога.
func synthesizeMemberSummaries(days []domain.StandupDay, members []string) map[string]domain.MemberSummary {
	type memberData struct {
		role          string
		days          int
		contributions []string
		concerns      []string
		focus         string
	}
	byName := make(map[string]*memberData, len(members))
	for _, name := range members {
		byName[name] = &memberData{}
	}

	for _, day := range days {
		for _, update := range day.Members {
			data, ok := byName[strings.TrimSpace(update.Name)]
			if !ok {
				continue
			}
			data.days++
			if role := strings.TrimSpace(update.Role); role != "" {
				data.role = role
			}
			if len(data.contributions) < maxSynthContributions {
				if contribution := firstSentence(StripHTML(update.Yesterday)); contribution != "" {
					data.contributions = append(data.contributions, contribution)
				}
			}
			if blocker := StripHTML(update.Blockers); blocker != "" && !isNoneValue(blocker) {
				data.concerns = append(data.concerns, blocker)
			}
			if today := StripHTML(update.Today); today != "" {
				data.focus = clipRunes(today, focusLimit)
			}
		}
	}

	out := make(map[string]domain.MemberSummary, len(members))
	for _, name := range members {
		data := byName[name]
		out[name] = domain.MemberSummary{
			Role:             data.role,
			KeyContributions: nonEmpty(data.contributions),
			Progress: fmt.Sprintf("%s posted updates on %d day(s) this week with %d key contribution(s) recorded.",
				name, data.days, len(data.contributions)),
			Concerns:      nonEmpty(data.concerns),
			NextWeekFocus: data.focus,
		}
	}
	return out
}

// firstSentence возвращает текст до первого из ".!?", а если его нет, первые 100 символов.
func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if idx := strings.IndexAny(text, ".!?"); idx >= 0 {
		if sentence := strings.TrimSpace(text[:idx]); sentence != "" {
			return sentence
		}
	}
	return clipRunes(text, contributionFallback)
}

func isNoneValue(s string) bool {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(s), ".!")) {
	case "none", "n/a", "na", "no", "nothing", "-":
		return true
	}
	return false
}

func nonEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func clipRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
