package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"standup-tracker/internal/calendar"
	"standup-tracker/internal/domain"
)

// Aggregation содержит апдейты недели, сгруппированные по дням.
type Aggregation struct {
	Days          []domain.StandupDay
	TotalUpdates  int
	UniqueMembers int
}

// Aggregator читает апдейты недели и раскладывает их по календарным датам опорной зоны.
type Aggregator struct {
	updates   domain.UpdateRepo
	cal       *calendar.Calendar
	memberKey domain.MemberKeyMode
}

// NewAggregator создаёт агрегатор.
func NewAggregator(updates domain.UpdateRepo, cal *calendar.Calendar, memberKey domain.MemberKeyMode) *Aggregator {
	if memberKey == "" {
		memberKey = domain.MemberKeyNameRole
	}
	return &Aggregator{updates: updates, cal: cal, memberKey: memberKey}
}

// Aggregate возвращает дни недели по возрастанию даты и счётчики.
func (a *Aggregator) Aggregate(ctx context.Context, week domain.WeekRange) (Aggregation, error) {
	week, err := a.localWeek(week)
	if err != nil {
		return Aggregation{}, err
	}
	updates, err := a.updates.ListUpdatesInRange(ctx, week.Start, week.End)
	if err != nil {
		return Aggregation{}, fmt.Errorf("получение апдейтов: %w", err)
	}

	days, included := a.groupByDay(week, updates)
	return Aggregation{
		Days:          days,
		TotalUpdates:  len(included),
		UniqueMembers: domain.CountUniqueMembers(included, a.memberKey),
	}, nil
}

// localWeek переносит даты недели в опорную зону, сохраняя календарные ключи.
func (a *Aggregator) localWeek(week domain.WeekRange) (domain.WeekRange, error) {
	return a.cal.ParseWeekRange(week.StartKey(), week.EndKey())
}

// dayOf возвращает дату, к которой относится апдейт: явную, если она задана, иначе дату создания.
func (a *Aggregator) dayOf(u domain.TeamMemberUpdate) string {
	if date := strings.TrimSpace(u.Date); date != "" {
		return date
	}
	return a.cal.DateKey(u.CreatedAt)
}

func (a *Aggregator) groupByDay(week domain.WeekRange, updates []domain.TeamMemberUpdate) ([]domain.StandupDay, []domain.TeamMemberUpdate) {
	grouped := make(map[string][]domain.TeamMemberUpdate)
	included := make([]domain.TeamMemberUpdate, 0, len(updates))
	for _, u := range updates {
		date := a.dayOf(u)
		if !week.Contains(date) {
			continue
		}
		grouped[date] = append(grouped[date], u)
		included = append(included, u)
	}

	dates := make([]string, 0, len(grouped))
	for date := range grouped {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	days := make([]domain.StandupDay, 0, len(dates))
	for _, date := range dates {
		members := grouped[date]
		sort.SliceStable(members, func(i, j int) bool { return members[i].CreatedAt.Before(members[j].CreatedAt) })
		days = append(days, domain.StandupDay{Date: date, Members: members})
	}
	return days, included
}
