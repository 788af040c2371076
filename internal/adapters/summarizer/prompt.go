package summarizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"standup-tracker/internal/domain"
)

const defaultInstructions = `Analyze the following week of team standup updates and produce a weekly report.
Summarize the most important accomplishments, the work still in progress and any blockers.
Add a short paragraph of team insights and concrete recommendations for next week.
Write one summary per team member based only on that member's own updates.`

type promptMember struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	Yesterday string `json:"yesterday"`
	Today     string `json:"today"`
	Blockers  string `json:"blockers"`
}

type promptDay struct {
	Date    string         `json:"date"`
	Members []promptMember `json:"members"`
}

// memberNames возвращает уникальные имена участников в порядке первого появления.
func memberNames(days []domain.StandupDay) []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, day := range days {
		for _, update := range day.Members {
			name := strings.TrimSpace(update.Name)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

func systemInstruction(members []string) string {
	quoted := make([]string, 0, len(members))
	for _, name := range members {
		quoted = append(quoted, fmt.Sprintf("%q", name))
	}
	return fmt.Sprintf(`You are an assistant that writes weekly engineering team reports from daily standup updates.
Respond with ONLY a JSON object. Do not wrap it in markdown code fences and do not add any text before or after it.
The JSON object must have exactly these keys:
- "keyAccomplishments": array of strings
- "ongoingWork": array of strings
- "blockers": array of strings
- "teamInsights": string
- "recommendations": array of strings
- "memberSummaries": object whose keys are the exact team member names listed below; each value is an object with
  "role" (string), "keyContributions" (array of strings), "progress" (string), "concerns" (array of strings), "nextWeekFocus" (string).
Team member names (use them exactly as written as the memberSummaries keys): [%s].
Never use generic field names such as "role", "progress", "concerns", "keyContributions" or "nextWeekFocus" as memberSummaries keys.
Use only facts present in the updates and do not invent team members.`, strings.Join(quoted, ", "))
}

func userPrompt(req domain.SummaryRequest, members []string) (string, error) {
	days := make([]promptDay, 0, len(req.Days))
	for _, day := range req.Days {
		pd := promptDay{Date: day.Date, Members: make([]promptMember, 0, len(day.Members))}
		for _, update := range day.Members {
			pd.Members = append(pd.Members, promptMember{
				Name:      update.Name,
				Role:      update.Role,
				Yesterday: update.Yesterday,
				Today:     update.Today,
				Blockers:  update.Blockers,
			})
		}
		days = append(days, pd)
	}
	// Rich-text поля уходят в модель как есть, без \u003c-экранирования.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(days); err != nil {
		return "", fmt.Errorf("marshal standup days: %w", err)
	}
	body := strings.TrimRight(buf.String(), "\n")

	instructions := strings.TrimSpace(req.Instructions)
	if instructions == "" {
		instructions = defaultInstructions
	}
	return fmt.Sprintf(`%s

Week: %s to %s
Team members: %s

Standup updates in JSON:
%s`, instructions, req.Week.StartKey(), req.Week.EndKey(), strings.Join(members, ", "), body), nil
}
