package summarizer

import (
	"context"
	"fmt"
	"strings"

	"standup-tracker/internal/domain"
)

const basicListLimit = 10

// Basic строит итог недели без LLM: сырые строки апдейтов, не более basicListLimit на список.
type Basic struct{}

// NewBasic создаёт детерминированный суммаризатор.
func NewBasic() *Basic {
	return &Basic{}
}

var _ domain.WeeklySummarizer = (*Basic)(nil)

// SummarizeWeek собирает достижения, текущую работу и блокеры в формате "{имя}: {текст}".
func (b *Basic) SummarizeWeek(_ context.Context, req domain.SummaryRequest) domain.WeeklyReportSummary {
	accomplishments := []string{}
	ongoing := []string{}
	blockers := []string{}
	for _, day := range req.Days {
		for _, update := range day.Members {
			if text := strings.TrimSpace(update.Yesterday); text != "" {
				accomplishments = append(accomplishments, update.Name+": "+text)
			}
			if text := strings.TrimSpace(update.Today); text != "" {
				ongoing = append(ongoing, update.Name+": "+text)
			}
			if text := strings.TrimSpace(update.Blockers); text != "" {
				blockers = append(blockers, update.Name+": "+text)
			}
		}
	}
	accomplishments = capList(accomplishments, basicListLimit)
	ongoing = capList(ongoing, basicListLimit)
	blockers = capList(blockers, basicListLimit)

	insights := fmt.Sprintf("Team had %d days of standups with %d accomplishments, %d ongoing work items, and %d blockers.",
		len(req.Days), len(accomplishments), len(ongoing), len(blockers))

	return domain.WeeklyReportSummary{
		KeyAccomplishments: accomplishments,
		OngoingWork:        ongoing,
		Blockers:           blockers,
		TeamInsights:       insights,
	}.Normalize()
}

func capList(values []string, limit int) []string {
	if len(values) > limit {
		return values[:limit]
	}
	return values
}
